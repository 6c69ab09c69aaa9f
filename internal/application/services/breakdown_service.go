package services

import (
	"context"

	"github.com/atlasschools/finboard-go/internal/domain/breakdown"
	"github.com/atlasschools/finboard-go/internal/infrastructure/caching"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/sheets"
	"github.com/atlasschools/finboard-go/internal/infrastructure/tenant"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// breakdownRanges are the four sparse columns of a breakdown worksheet:
// amount, counterparty, purpose, article.
var breakdownRanges = []string{"B3:B1000", "D3:D1000", "E3:E1000", "F3:F1000"}

// BreakdownResult is one page of breakdown rows for an HTTP response.
type BreakdownResult struct {
	Branch string          `json:"branch"`
	Scope  string          `json:"scope"`
	Total  int             `json:"total"`
	Rows   []breakdown.Row `json:"data"`
}

// BreakdownService serves reconciled cash-flow breakdown rows. The full
// reconciled row set is what gets cached; search and pagination run on
// every request over the cached rows.
type BreakdownService struct {
	cache   *caching.Store
	fetcher sheets.Fetcher
	logger  *logging.ChanneledLogger
}

// NewBreakdownService creates the breakdown read service.
func NewBreakdownService(cache *caching.Store, fetcher sheets.Fetcher, logger *logging.ChanneledLogger) *BreakdownService {
	return &BreakdownService{cache: cache, fetcher: fetcher, logger: logger}
}

// Rows returns the full reconciled breakdown for a branch and mode, reading
// through the cache.
func (s *BreakdownService) Rows(ctx context.Context, branch tenant.Branch, mode tenant.Mode) ([]breakdown.Row, error) {
	key := caching.NewKey("breakdown", string(branch), string(mode))
	value, err := s.cache.GetOrCompute(ctx, key, config.BreakdownTTL, func(ctx context.Context) (any, error) {
		return s.computeRows(ctx, branch, mode)
	})
	if err != nil {
		return nil, err
	}
	return value.([]breakdown.Row), nil
}

func (s *BreakdownService) computeRows(ctx context.Context, branch tenant.Branch, mode tenant.Mode) (any, error) {
	src := tenant.LedgerSourceFor(branch)
	sheet := tenant.BreakdownSheetFor(mode)

	var blocks []sheets.RangeBlock
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		blocks, fetchErr = s.fetcher.BatchGet(ctx, src.SpreadsheetID, sheet, breakdownRanges)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	rows := breakdown.Reconcile(blocks[0], blocks[1], blocks[2], blocks[3])
	if s.logger != nil {
		s.logger.Cache().Debug("Breakdown reconciled",
			"branch", branch, "mode", mode, "rows", len(rows))
	}
	return rows, nil
}

// Page returns one filtered, paginated slice of the breakdown.
func (s *BreakdownService) Page(ctx context.Context, branch tenant.Branch, mode tenant.Mode, search string, page, limit int) (BreakdownResult, error) {
	rows, err := s.Rows(ctx, branch, mode)
	if err != nil {
		return BreakdownResult{}, err
	}

	sliced := breakdown.Paginate(breakdown.Filter(rows, search), page, limit)
	return BreakdownResult{
		Branch: string(branch),
		Scope:  string(mode),
		Total:  sliced.Total,
		Rows:   sliced.Rows,
	}, nil
}

// Invalidate drops every cached breakdown mode for a branch.
func (s *BreakdownService) Invalidate(branch tenant.Branch) {
	s.cache.InvalidateOp("breakdown", string(branch))
}

package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/atlasschools/finboard-go/internal/infrastructure/caching"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/sheets"
	"github.com/atlasschools/finboard-go/internal/infrastructure/tenant"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// trimCell trims a cell and normalizes the non-breaking spaces sheet number
// formatting inserts.
func trimCell(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, " ", " "))
}

// Balance is the current cash position of one branch.
type Balance struct {
	Branch    string     `json:"branch"`
	Worksheet string     `json:"worksheet"`
	Balance   string     `json:"balance"`
	Wallets   [][]string `json:"wallets"`
}

// Trend is the balance history series for charting.
type Trend struct {
	Branch string    `json:"branch"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// LedgerService serves cash-flow data from each branch's ledger workbook.
type LedgerService struct {
	cache   *caching.Store
	fetcher sheets.Fetcher
	logger  *logging.ChanneledLogger
}

// NewLedgerService creates the ledger read/write service.
func NewLedgerService(cache *caching.Store, fetcher sheets.Fetcher, logger *logging.ChanneledLogger) *LedgerService {
	return &LedgerService{cache: cache, fetcher: fetcher, logger: logger}
}

// Balance returns the branch's balance cell and wallet rows. Wallet rows
// with neither a name nor a value are dropped.
func (s *LedgerService) Balance(ctx context.Context, branch tenant.Branch) (Balance, error) {
	key := caching.NewKey("ledger-balance", string(branch), "")
	value, err := s.cache.GetOrCompute(ctx, key, config.DefaultTTL, func(ctx context.Context) (any, error) {
		return s.computeBalance(ctx, branch)
	})
	if err != nil {
		return Balance{}, err
	}
	return value.(Balance), nil
}

func (s *LedgerService) computeBalance(ctx context.Context, branch tenant.Branch) (any, error) {
	src := tenant.LedgerSourceFor(branch)

	var blocks []sheets.RangeBlock
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		blocks, fetchErr = s.fetcher.BatchGet(ctx, src.SpreadsheetID, src.Sheet,
			[]string{"D6", "C2:D5"})
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	balance := ""
	if len(blocks[0]) > 0 && len(blocks[0][0]) > 0 {
		balance = trimCell(blocks[0][0][0])
	}

	wallets := make([][]string, 0, len(blocks[1]))
	for _, row := range blocks[1] {
		name, val := "", ""
		if len(row) > 0 {
			name = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			val = trimCell(row[1])
		}
		if name != "" || val != "" {
			wallets = append(wallets, []string{name, val})
		}
	}

	return Balance{
		Branch:    string(branch),
		Worksheet: src.Sheet,
		Balance:   balance,
		Wallets:   wallets,
	}, nil
}

// Summary returns the concatenated ledger summary rows for a mode.
func (s *LedgerService) Summary(ctx context.Context, branch tenant.Branch, mode tenant.Mode) ([][]string, error) {
	key := caching.NewKey("ledger-summary", string(branch), string(mode))
	value, err := s.cache.GetOrCompute(ctx, key, config.DefaultTTL, func(ctx context.Context) (any, error) {
		return s.computeSummary(ctx, branch, mode)
	})
	if err != nil {
		return nil, err
	}
	return value.([][]string), nil
}

func (s *LedgerService) computeSummary(ctx context.Context, branch tenant.Branch, mode tenant.Mode) (any, error) {
	src := tenant.LedgerSourceFor(branch)
	ranges := tenant.SummaryRangesFor(mode)

	var blocks []sheets.RangeBlock
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		blocks, fetchErr = s.fetcher.BatchGet(ctx, src.SpreadsheetID, src.Sheet, ranges)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0)
	for _, block := range blocks {
		rows = append(rows, block...)
	}
	return rows, nil
}

// Trend returns the balance history series. Dates parse as DD.MM.YYYY and
// render as DD.MM; unparseable dates pass through verbatim. Values strip
// grouping spaces and use a comma decimal separator; unparseable values
// chart as zero.
func (s *LedgerService) Trend(ctx context.Context, branch tenant.Branch) (Trend, error) {
	key := caching.NewKey("ledger-trend", string(branch), "")
	value, err := s.cache.GetOrCompute(ctx, key, config.DefaultTTL, func(ctx context.Context) (any, error) {
		return s.computeTrend(ctx, branch)
	})
	if err != nil {
		return Trend{}, err
	}
	return value.(Trend), nil
}

func (s *LedgerService) computeTrend(ctx context.Context, branch tenant.Branch) (any, error) {
	moneySheet := tenant.WorksheetsFor(branch).Money

	var block sheets.RangeBlock
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		block, fetchErr = s.fetcher.GetRange(ctx, config.MainSpreadsheetID, moneySheet, "J2:K200")
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	trend := Trend{Branch: string(branch), Labels: []string{}, Values: []float64{}}
	for _, row := range block {
		if len(row) < 2 {
			continue
		}
		dateStr := strings.TrimSpace(row[0])
		valStr := strings.TrimSpace(row[1])
		if dateStr == "" || valStr == "" {
			continue
		}

		if parsed, parseErr := time.Parse("02.01.2006", dateStr); parseErr == nil {
			trend.Labels = append(trend.Labels, parsed.Format("02.01"))
		} else {
			trend.Labels = append(trend.Labels, dateStr)
		}

		trend.Values = append(trend.Values, parseTrendValue(valStr))
	}
	return trend, nil
}

func parseTrendValue(raw string) float64 {
	clean := strings.NewReplacer(" ", "", "?", "", " ", "", ",", ".").Replace(raw)
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return value
}

// Raw returns the full fact worksheet without caching. Diagnostic endpoint;
// readings must reflect the sheet as-is.
func (s *LedgerService) Raw(ctx context.Context) ([][]string, error) {
	var block sheets.RangeBlock
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		block, fetchErr = s.fetcher.GetRange(ctx, config.MainSpreadsheetID, "ДДС:факт Private", "A1:Z1000")
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// SetDate writes the report date cell of the branch's ledger and drops the
// cached values derived from it.
func (s *LedgerService) SetDate(ctx context.Context, branch tenant.Branch, value string) error {
	return s.writeLedgerCell(ctx, branch, "F1", value)
}

// SetMonth writes the report month cell of the branch's ledger and drops
// the cached values derived from it.
func (s *LedgerService) SetMonth(ctx context.Context, branch tenant.Branch, value string) error {
	return s.writeLedgerCell(ctx, branch, "H1", value)
}

func (s *LedgerService) writeLedgerCell(ctx context.Context, branch tenant.Branch, cell, value string) error {
	src := tenant.LedgerSourceFor(branch)

	err := sheets.Retry(ctx, func() error {
		return s.fetcher.UpdateCell(ctx, src.SpreadsheetID, src.Sheet, cell, value)
	})
	if err != nil {
		return err
	}

	// The write changes what the ledger formulas produce, so every cached
	// ledger and breakdown read for this branch is now stale.
	s.cache.InvalidateOp("ledger-summary", string(branch))
	s.cache.InvalidateOp("ledger-balance", string(branch))
	s.cache.InvalidateOp("breakdown", string(branch))

	if s.logger != nil {
		s.logger.Cache().Info("Ledger caches invalidated after cell write",
			"branch", branch, "cell", cell)
	}
	return nil
}

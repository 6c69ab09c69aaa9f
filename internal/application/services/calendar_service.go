package services

import (
	"context"

	"github.com/atlasschools/finboard-go/internal/infrastructure/caching"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/sheets"
	"github.com/atlasschools/finboard-go/internal/infrastructure/tenant"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// Calendar is one branch's slice of the shared payment calendar.
type Calendar struct {
	Branch string            `json:"branch"`
	Header sheets.RangeBlock `json:"header"`
	Table  sheets.RangeBlock `json:"table"`
}

// CalendarService serves the payment calendar worksheet. All branches live
// on one worksheet in separate column groups.
type CalendarService struct {
	cache   *caching.Store
	fetcher sheets.Fetcher
	logger  *logging.ChanneledLogger
}

// NewCalendarService creates the calendar read service.
func NewCalendarService(cache *caching.Store, fetcher sheets.Fetcher, logger *logging.ChanneledLogger) *CalendarService {
	return &CalendarService{cache: cache, fetcher: fetcher, logger: logger}
}

// CalendarKey is the cache key for one branch's calendar slice.
func CalendarKey(branch tenant.Branch) caching.Key {
	return caching.NewKey("calendar", string(branch), "")
}

// Get returns the branch's calendar header and table blocks.
func (s *CalendarService) Get(ctx context.Context, branch tenant.Branch) (Calendar, error) {
	value, err := s.cache.GetOrCompute(ctx, CalendarKey(branch), config.DefaultTTL, func(ctx context.Context) (any, error) {
		return s.compute(ctx, branch)
	})
	if err != nil {
		return Calendar{}, err
	}
	return value.(Calendar), nil
}

// Refresh recomputes one branch's calendar slice in place. The previous
// value survives when the recompute fails.
func (s *CalendarService) Refresh(ctx context.Context, branch tenant.Branch) error {
	return s.cache.ForceRefresh(ctx, CalendarKey(branch), config.DefaultTTL, func(ctx context.Context) (any, error) {
		return s.compute(ctx, branch)
	})
}

func (s *CalendarService) compute(ctx context.Context, branch tenant.Branch) (any, error) {
	ranges := tenant.CalendarRangesFor(branch)

	var blocks []sheets.RangeBlock
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		blocks, fetchErr = s.fetcher.BatchGet(ctx, config.MainSpreadsheetID, config.CalendarSheetName,
			[]string{ranges.Header, ranges.Table})
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	return Calendar{Branch: string(branch), Header: blocks[0], Table: blocks[1]}, nil
}

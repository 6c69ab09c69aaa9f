package services

import (
	"context"
	"fmt"

	"github.com/atlasschools/finboard-go/internal/infrastructure/caching"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/sheets"
	"github.com/atlasschools/finboard-go/internal/infrastructure/tenant"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// RosterKind selects the students or the staff roster.
type RosterKind string

const (
	RosterStudents RosterKind = "students"
	RosterStaff    RosterKind = "staff"
)

// RosterMode selects the current or the per-month roster columns.
type RosterMode string

const (
	RosterModeCurrent RosterMode = "current"
	RosterModeMonth   RosterMode = "month"
)

// NormalizeRosterMode maps a raw mode string onto the roster mode set.
func NormalizeRosterMode(raw string) (RosterMode, bool) {
	switch raw {
	case "", "current":
		return RosterModeCurrent, true
	case "month":
		return RosterModeMonth, true
	default:
		return "", false
	}
}

// RosterSummary is one roster block for an HTTP response.
type RosterSummary struct {
	Branch string     `json:"branch"`
	Mode   string     `json:"mode"`
	Rows   [][]string `json:"rows"`
}

// rosterRanges maps kind and mode to the worksheet range holding the block.
var rosterRanges = map[RosterKind]map[RosterMode]string{
	RosterStudents: {RosterModeCurrent: "A3:B7", RosterModeMonth: "C3:D7"},
	RosterStaff:    {RosterModeCurrent: "A3:B13", RosterModeMonth: "C3:D13"},
}

// rosterMonthCells maps kind to the cell the selected report month is
// written into.
var rosterMonthCells = map[RosterKind]string{
	RosterStudents: "D2",
	RosterStaff:    "D1",
}

// RosterService serves the students and staff headcount blocks of each
// branch.
type RosterService struct {
	cache   *caching.Store
	fetcher sheets.Fetcher
	logger  *logging.ChanneledLogger
}

// NewRosterService creates the roster read/write service.
func NewRosterService(cache *caching.Store, fetcher sheets.Fetcher, logger *logging.ChanneledLogger) *RosterService {
	return &RosterService{cache: cache, fetcher: fetcher, logger: logger}
}

func rosterSheet(kind RosterKind, branch tenant.Branch) string {
	ws := tenant.WorksheetsFor(branch)
	if kind == RosterStaff {
		return ws.Staff
	}
	return ws.Students
}

// Summary returns one roster block through the cache.
func (s *RosterService) Summary(ctx context.Context, kind RosterKind, branch tenant.Branch, mode RosterMode) (RosterSummary, error) {
	key := caching.NewKey(string(kind), string(branch), string(mode))
	value, err := s.cache.GetOrCompute(ctx, key, config.DefaultTTL, func(ctx context.Context) (any, error) {
		return s.computeSummary(ctx, kind, branch, mode)
	})
	if err != nil {
		return RosterSummary{}, err
	}
	return value.(RosterSummary), nil
}

func (s *RosterService) computeSummary(ctx context.Context, kind RosterKind, branch tenant.Branch, mode RosterMode) (any, error) {
	rangeExpr, ok := rosterRanges[kind][mode]
	if !ok {
		return nil, fmt.Errorf("unknown roster mode %q", mode)
	}

	var block sheets.RangeBlock
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		block, fetchErr = s.fetcher.GetRange(ctx, config.MainSpreadsheetID, rosterSheet(kind, branch), rangeExpr)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	return RosterSummary{Branch: string(branch), Mode: string(mode), Rows: block}, nil
}

// SetMonth writes the roster's report-month cell and drops the cached
// blocks it feeds.
func (s *RosterService) SetMonth(ctx context.Context, kind RosterKind, branch tenant.Branch, value string) error {
	cell := rosterMonthCells[kind]

	err := sheets.Retry(ctx, func() error {
		return s.fetcher.UpdateCell(ctx, config.MainSpreadsheetID, rosterSheet(kind, branch), cell, value)
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateOp(string(kind), string(branch))

	if s.logger != nil {
		s.logger.Cache().Info("Roster cache invalidated after month write",
			"kind", kind, "branch", branch, "value", value)
	}
	return nil
}

// Package services holds the read-through services the HTTP layer calls.
// Each service owns its cache keys and computes values against the sheets
// backend on miss.
package services

import (
	"context"

	"github.com/atlasschools/finboard-go/internal/infrastructure/caching"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/sheets"
	"github.com/atlasschools/finboard-go/pkg/config"
)

const summarySheet = "Свод"

// SummaryOverview is the three range blocks shown on the dashboard's main
// screen.
type SummaryOverview struct {
	P1 sheets.RangeBlock `json:"p1"`
	P2 sheets.RangeBlock `json:"p2"`
	P3 sheets.RangeBlock `json:"p3"`
}

// SummaryDetail is the per-branch detail blocks of the summary worksheet.
type SummaryDetail struct {
	Private    sheets.RangeBlock `json:"private"`
	Highschool sheets.RangeBlock `json:"highschool"`
	Academy    sheets.RangeBlock `json:"academy"`
}

// SummaryService serves the consolidated summary workbook. All reads are
// branch-agnostic: the summary worksheet aggregates every branch already.
type SummaryService struct {
	cache   *caching.Store
	fetcher sheets.Fetcher
	logger  *logging.ChanneledLogger
}

// NewSummaryService creates the summary read service.
func NewSummaryService(cache *caching.Store, fetcher sheets.Fetcher, logger *logging.ChanneledLogger) *SummaryService {
	return &SummaryService{cache: cache, fetcher: fetcher, logger: logger}
}

// OverviewKey is the cache key for the overview blocks.
func OverviewKey() caching.Key { return caching.NewKey("summary-overview", "all", "") }

// MetricKey is the cache key for the headline metric.
func MetricKey() caching.Key { return caching.NewKey("summary-metric", "all", "") }

// DetailKey is the cache key for the per-branch detail blocks.
func DetailKey() caching.Key { return caching.NewKey("summary-detail", "all", "") }

// Overview returns the dashboard's main summary blocks.
func (s *SummaryService) Overview(ctx context.Context) (SummaryOverview, error) {
	value, err := s.cache.GetOrCompute(ctx, OverviewKey(), config.DefaultTTL, s.computeOverview)
	if err != nil {
		return SummaryOverview{}, err
	}
	return value.(SummaryOverview), nil
}

func (s *SummaryService) computeOverview(ctx context.Context) (any, error) {
	var blocks []sheets.RangeBlock
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		blocks, fetchErr = s.fetcher.BatchGet(ctx, config.SummarySpreadsheetID, summarySheet,
			[]string{"A2:B5", "D2:E7", "G2:H12"})
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return SummaryOverview{P1: blocks[0], P2: blocks[1], P3: blocks[2]}, nil
}

// Metric returns the headline metric cell, trimmed.
func (s *SummaryService) Metric(ctx context.Context) (string, error) {
	value, err := s.cache.GetOrCompute(ctx, MetricKey(), config.DefaultTTL, s.computeMetric)
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (s *SummaryService) computeMetric(ctx context.Context) (any, error) {
	var metric string
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		metric, fetchErr = s.fetcher.GetCell(ctx, config.SummarySpreadsheetID, summarySheet, "B6")
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return trimCell(metric), nil
}

// Detail returns the three per-branch summary blocks.
func (s *SummaryService) Detail(ctx context.Context) (SummaryDetail, error) {
	value, err := s.cache.GetOrCompute(ctx, DetailKey(), config.DefaultTTL, s.computeDetail)
	if err != nil {
		return SummaryDetail{}, err
	}
	return value.(SummaryDetail), nil
}

// RefreshOverview recomputes the overview blocks in place. The previous
// value survives when the recompute fails.
func (s *SummaryService) RefreshOverview(ctx context.Context) error {
	return s.cache.ForceRefresh(ctx, OverviewKey(), config.DefaultTTL, s.computeOverview)
}

// RefreshMetric recomputes the headline metric in place.
func (s *SummaryService) RefreshMetric(ctx context.Context) error {
	return s.cache.ForceRefresh(ctx, MetricKey(), config.DefaultTTL, s.computeMetric)
}

// RefreshDetail recomputes the per-branch detail blocks in place.
func (s *SummaryService) RefreshDetail(ctx context.Context) error {
	return s.cache.ForceRefresh(ctx, DetailKey(), config.DefaultTTL, s.computeDetail)
}

func (s *SummaryService) computeDetail(ctx context.Context) (any, error) {
	var blocks []sheets.RangeBlock
	err := sheets.Retry(ctx, func() error {
		var fetchErr error
		blocks, fetchErr = s.fetcher.BatchGet(ctx, config.SummarySpreadsheetID, summarySheet,
			[]string{"A18:B22", "A32:B36", "A46:B50"})
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return SummaryDetail{Private: blocks[0], Highschool: blocks[1], Academy: blocks[2]}, nil
}

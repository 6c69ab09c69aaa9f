package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atlasschools/finboard-go/internal/infrastructure/messaging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/tenant"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// hotKey is one cache entry the scheduler keeps warm.
type hotKey struct {
	name    string
	refresh func(ctx context.Context) error
}

// RefreshService periodically rebuilds the hot cache entries and announces
// completed cycles to connected clients. A cycle that rebuilds at least one
// entry publishes a refresh event; a cycle where every entry fails stays
// silent, since clients would refetch the same stale data.
type RefreshService struct {
	summary     *SummaryService
	calendar    *CalendarService
	broadcaster *messaging.RefreshBroadcaster
	logger      *logging.ChanneledLogger
	interval    time.Duration

	running atomic.Bool
	cancel  context.CancelFunc

	mu        sync.Mutex
	lastRun   time.Time
	lastStats RefreshStats
}

// RefreshStats summarizes the most recent refresh cycle.
type RefreshStats struct {
	Refreshed int       `json:"refreshed"`
	Failed    int       `json:"failed"`
	At        time.Time `json:"at"`
}

// NewRefreshService creates the scheduler. Call Start to begin cycling.
func NewRefreshService(summary *SummaryService, calendar *CalendarService, broadcaster *messaging.RefreshBroadcaster, logger *logging.ChanneledLogger) *RefreshService {
	return &RefreshService{
		summary:     summary,
		calendar:    calendar,
		broadcaster: broadcaster,
		logger:      logger,
		interval:    config.RefreshInterval,
	}
}

func (s *RefreshService) hotKeys() []hotKey {
	keys := []hotKey{
		{name: "summary-overview", refresh: s.summary.RefreshOverview},
		{name: "summary-metric", refresh: s.summary.RefreshMetric},
		{name: "summary-detail", refresh: s.summary.RefreshDetail},
	}
	for _, branch := range tenant.Branches {
		branch := branch
		keys = append(keys, hotKey{
			name: "calendar/" + string(branch),
			refresh: func(ctx context.Context) error {
				return s.calendar.Refresh(ctx, branch)
			},
		})
	}
	return keys
}

// Start launches the refresh loop in its own goroutine. Calling Start on a
// running service is a no-op.
func (s *RefreshService) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.run(loopCtx)
}

// Stop halts the refresh loop. Safe to call on a stopped service.
func (s *RefreshService) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Running reports whether the refresh loop is active.
func (s *RefreshService) Running() bool {
	return s.running.Load()
}

// LastRun returns when the last cycle finished and what it did. The zero
// time means no cycle has run yet.
func (s *RefreshService) LastRun() (time.Time, RefreshStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastStats
}

func (s *RefreshService) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.logger != nil {
		s.logger.Refresh().Info("Background refresh started", "interval", s.interval)
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Refresh().Info("Background refresh stopping")
			}
			s.running.Store(false)
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle executes one refresh pass over every hot key. Exported so an
// admin endpoint can trigger a cycle out of schedule.
func (s *RefreshService) RunCycle(ctx context.Context) RefreshStats {
	start := time.Now()
	stats := RefreshStats{}

	for _, key := range s.hotKeys() {
		select {
		case <-ctx.Done():
			return stats
		default:
		}

		if err := key.refresh(ctx); err != nil {
			stats.Failed++
			if s.logger != nil {
				s.logger.Refresh().Warn("Hot key refresh failed", "key", key.name, "error", err)
			}
			continue
		}
		stats.Refreshed++
	}

	stats.At = time.Now().UTC()

	s.mu.Lock()
	s.lastRun = stats.At
	s.lastStats = stats
	s.mu.Unlock()

	if stats.Refreshed > 0 {
		s.broadcaster.Publish(messaging.RefreshEvent{
			Status:    "ok",
			Refreshed: stats.Refreshed,
			Failed:    stats.Failed,
		})
	}

	if s.logger != nil {
		s.logger.Refresh().Info("Refresh cycle completed",
			"refreshed", stats.Refreshed, "failed", stats.Failed,
			"duration", time.Since(start))
	}
	return stats
}

// Package container provides dependency injection for singleton services.
package container

import (
	"fmt"

	"github.com/atlasschools/finboard-go/internal/application/services"
	"github.com/atlasschools/finboard-go/internal/infrastructure/caching"
	"github.com/atlasschools/finboard-go/internal/infrastructure/messaging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/sheets"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// Container holds every singleton the handlers depend on.
type Container struct {
	Logger *logging.ChanneledLogger
	Cache  *caching.Store

	Fetcher     sheets.Fetcher
	Broadcaster *messaging.RefreshBroadcaster
	Hub         *messaging.WSHub

	SummaryService   *services.SummaryService
	LedgerService    *services.LedgerService
	BreakdownService *services.BreakdownService
	RosterService    *services.RosterService
	CalendarService  *services.CalendarService
	ReportsService   *services.ReportsService
	RefreshService   *services.RefreshService
}

// NewContainer wires all singleton services together.
func NewContainer() (*Container, error) {
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cache := caching.NewStore(logger)

	fetcher, err := sheets.NewClient(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	broadcaster := messaging.NewRefreshBroadcaster(logger)
	hub := messaging.NewWSHub(broadcaster, logger)

	reportsService, err := services.NewReportsService(config.ReportsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reports service: %w", err)
	}

	summaryService := services.NewSummaryService(cache, fetcher, logger)
	calendarService := services.NewCalendarService(cache, fetcher, logger)

	return &Container{
		Logger:           logger,
		Cache:            cache,
		Fetcher:          fetcher,
		Broadcaster:      broadcaster,
		Hub:              hub,
		SummaryService:   summaryService,
		LedgerService:    services.NewLedgerService(cache, fetcher, logger),
		BreakdownService: services.NewBreakdownService(cache, fetcher, logger),
		RosterService:    services.NewRosterService(cache, fetcher, logger),
		CalendarService:  calendarService,
		ReportsService:   reportsService,
		RefreshService:   services.NewRefreshService(summaryService, calendarService, broadcaster, logger),
	}, nil
}

// Close releases container resources.
func (c *Container) Close() {
	c.RefreshService.Stop()
	if c.Logger != nil {
		c.Logger.Close()
	}
}

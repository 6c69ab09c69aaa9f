// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/application/container"
	"github.com/atlasschools/finboard-go/internal/presentation/http/handlers"
	"github.com/atlasschools/finboard-go/internal/presentation/http/middleware"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(c *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.BranchMiddleware())

	// Stored PDF reports are served as plain static files.
	r.Static("/static/reports", config.ReportsDir)

	summaryHandlers := handlers.NewSummaryHandlers(c.SummaryService, c.Logger)
	ledgerHandlers := handlers.NewLedgerHandlers(c.LedgerService, c.Logger)
	breakdownHandlers := handlers.NewBreakdownHandlers(c.BreakdownService, c.Logger)
	rosterHandlers := handlers.NewRosterHandlers(c.RosterService, c.Logger)
	calendarHandlers := handlers.NewCalendarHandlers(c.CalendarService, c.Logger)
	reportsHandlers := handlers.NewReportsHandlers(c.ReportsService, c.Logger)
	refreshHandlers := handlers.NewRefreshHandlers(c.RefreshService, c.Broadcaster, c.Hub, c.Logger)
	systemHandlers := handlers.NewSystemHandlers(c.Cache, c.RefreshService, c.Logger)

	r.GET("/health", systemHandlers.Health)

	api := r.Group("/api/v1")
	{
		// Consolidated summary
		api.GET("/summary/overview", summaryHandlers.GetOverview)
		api.GET("/summary/metric", summaryHandlers.GetMetric)
		api.GET("/summary/detail", summaryHandlers.GetDetail)

		// Cash-flow ledger
		api.GET("/ledger/balance", ledgerHandlers.GetBalance)
		api.GET("/ledger/summary", ledgerHandlers.GetSummary)
		api.GET("/ledger/breakdown", breakdownHandlers.GetBreakdown)
		api.GET("/ledger/trend", ledgerHandlers.GetTrend)
		api.GET("/ledger/raw", ledgerHandlers.GetRaw)
		api.POST("/ledger/date", ledgerHandlers.SetDate)
		api.POST("/ledger/month", ledgerHandlers.SetMonth)

		// Rosters
		api.GET("/students", rosterHandlers.GetStudents)
		api.POST("/students/month", rosterHandlers.SetStudentsMonth)
		api.GET("/staff", rosterHandlers.GetStaff)
		api.POST("/staff/month", rosterHandlers.SetStaffMonth)

		// Payment calendar
		api.GET("/calendar", calendarHandlers.GetCalendar)

		// Report archive
		api.GET("/reports", reportsHandlers.ListReports)

		// Refresh streams
		api.GET("/refresh/sse", refreshHandlers.GetSSE)
		api.GET("/refresh/ws", refreshHandlers.GetWS)
		api.GET("/refresh/status", refreshHandlers.GetStatus)

		api.POST("/auth/login", systemHandlers.Login)

		// Admin endpoints require a bearer token from /auth/login.
		admin := api.Group("/")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.POST("/reports/upload", reportsHandlers.UploadReport)
			admin.POST("/reports/delete", reportsHandlers.DeleteReport)
			admin.POST("/admin/refresh", refreshHandlers.TriggerRefresh)
			admin.GET("/admin/cache/stats", systemHandlers.CacheStats)
			admin.POST("/admin/cache/flush", systemHandlers.FlushCache)
		}
	}

	return r
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/application/services"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/presentation/http/middleware"
)

// CalendarHandlers serves the payment calendar endpoint.
type CalendarHandlers struct {
	calendarService *services.CalendarService
	logger          *logging.ChanneledLogger
}

// NewCalendarHandlers creates calendar endpoint handlers.
func NewCalendarHandlers(calendarService *services.CalendarService, logger *logging.ChanneledLogger) *CalendarHandlers {
	return &CalendarHandlers{calendarService: calendarService, logger: logger}
}

// GetCalendar handles GET /api/v1/calendar
func (h *CalendarHandlers) GetCalendar(c *gin.Context) {
	branch := middleware.BranchFrom(c)

	calendar, err := h.calendarService.Get(c.Request.Context(), branch)
	if err != nil {
		h.logger.System().Error("Calendar read failed", "branch", branch, "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, calendar)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/application/services"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/presentation/http/middleware"
)

// RosterHandlers serves the students and staff endpoints.
type RosterHandlers struct {
	rosterService *services.RosterService
	logger        *logging.ChanneledLogger
}

// NewRosterHandlers creates roster endpoint handlers.
func NewRosterHandlers(rosterService *services.RosterService, logger *logging.ChanneledLogger) *RosterHandlers {
	return &RosterHandlers{rosterService: rosterService, logger: logger}
}

// GetStudents handles GET /api/v1/students?mode=
func (h *RosterHandlers) GetStudents(c *gin.Context) {
	h.getSummary(c, services.RosterStudents)
}

// GetStaff handles GET /api/v1/staff?mode=
func (h *RosterHandlers) GetStaff(c *gin.Context) {
	h.getSummary(c, services.RosterStaff)
}

func (h *RosterHandlers) getSummary(c *gin.Context, kind services.RosterKind) {
	branch := middleware.BranchFrom(c)

	mode, ok := services.NormalizeRosterMode(c.Query("mode"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mode"})
		return
	}

	summary, err := h.rosterService.Summary(c.Request.Context(), kind, branch, mode)
	if err != nil {
		h.logger.System().Error("Roster read failed", "kind", kind, "branch", branch, "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SetStudentsMonth handles POST /api/v1/students/month?value=
func (h *RosterHandlers) SetStudentsMonth(c *gin.Context) {
	h.setMonth(c, services.RosterStudents)
}

// SetStaffMonth handles POST /api/v1/staff/month?value=
func (h *RosterHandlers) SetStaffMonth(c *gin.Context) {
	h.setMonth(c, services.RosterStaff)
}

func (h *RosterHandlers) setMonth(c *gin.Context, kind services.RosterKind) {
	branch := middleware.BranchFrom(c)

	value := c.Query("value")
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}

	if err := h.rosterService.SetMonth(c.Request.Context(), kind, branch, value); err != nil {
		h.logger.System().Error("Roster month write failed", "kind", kind, "branch", branch, "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "written": value, "branch": string(branch)})
}

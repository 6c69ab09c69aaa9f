package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/application/services"
	"github.com/atlasschools/finboard-go/internal/domain/breakdown"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/tenant"
	"github.com/atlasschools/finboard-go/internal/presentation/http/middleware"
)

// BreakdownHandlers serves the cash-flow breakdown endpoint.
type BreakdownHandlers struct {
	breakdownService *services.BreakdownService
	logger           *logging.ChanneledLogger
}

// NewBreakdownHandlers creates breakdown endpoint handlers.
func NewBreakdownHandlers(breakdownService *services.BreakdownService, logger *logging.ChanneledLogger) *BreakdownHandlers {
	return &BreakdownHandlers{breakdownService: breakdownService, logger: logger}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// GetBreakdown handles GET /api/v1/ledger/breakdown?scope=&page=&limit=&search=
func (h *BreakdownHandlers) GetBreakdown(c *gin.Context) {
	branch := middleware.BranchFrom(c)

	mode, ok := tenant.NormalizeMode(c.Query("scope"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown scope"})
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", breakdown.DefaultLimit)
	search := c.Query("search")

	result, err := h.breakdownService.Page(c.Request.Context(), branch, mode, search, page, limit)
	if err != nil {
		h.logger.System().Error("Breakdown read failed", "branch", branch, "mode", mode, "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

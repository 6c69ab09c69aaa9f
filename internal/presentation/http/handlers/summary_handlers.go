// Package handlers provides the HTTP endpoint implementations.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/application/services"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
)

// SummaryHandlers serves the consolidated summary endpoints.
type SummaryHandlers struct {
	summaryService *services.SummaryService
	logger         *logging.ChanneledLogger
}

// NewSummaryHandlers creates summary endpoint handlers.
func NewSummaryHandlers(summaryService *services.SummaryService, logger *logging.ChanneledLogger) *SummaryHandlers {
	return &SummaryHandlers{summaryService: summaryService, logger: logger}
}

// GetOverview handles GET /api/v1/summary/overview
func (h *SummaryHandlers) GetOverview(c *gin.Context) {
	overview, err := h.summaryService.Overview(c.Request.Context())
	if err != nil {
		h.logger.System().Error("Summary overview failed", "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// GetMetric handles GET /api/v1/summary/metric
func (h *SummaryHandlers) GetMetric(c *gin.Context) {
	metric, err := h.summaryService.Metric(c.Request.Context())
	if err != nil {
		h.logger.System().Error("Summary metric failed", "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metric": metric})
}

// GetDetail handles GET /api/v1/summary/detail
func (h *SummaryHandlers) GetDetail(c *gin.Context) {
	detail, err := h.summaryService.Detail(c.Request.Context())
	if err != nil {
		h.logger.System().Error("Summary detail failed", "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

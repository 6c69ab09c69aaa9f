package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/application/services"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/infrastructure/tenant"
	"github.com/atlasschools/finboard-go/internal/presentation/http/middleware"
)

// LedgerHandlers serves the cash-flow ledger endpoints.
type LedgerHandlers struct {
	ledgerService *services.LedgerService
	logger        *logging.ChanneledLogger
}

// NewLedgerHandlers creates ledger endpoint handlers.
func NewLedgerHandlers(ledgerService *services.LedgerService, logger *logging.ChanneledLogger) *LedgerHandlers {
	return &LedgerHandlers{ledgerService: ledgerService, logger: logger}
}

// GetBalance handles GET /api/v1/ledger/balance
func (h *LedgerHandlers) GetBalance(c *gin.Context) {
	branch := middleware.BranchFrom(c)

	balance, err := h.ledgerService.Balance(c.Request.Context(), branch)
	if err != nil {
		h.logger.System().Error("Balance read failed", "branch", branch, "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// GetSummary handles GET /api/v1/ledger/summary?mode=
func (h *LedgerHandlers) GetSummary(c *gin.Context) {
	branch := middleware.BranchFrom(c)

	mode, ok := tenant.NormalizeMode(c.Query("mode"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mode"})
		return
	}

	rows, err := h.ledgerService.Summary(c.Request.Context(), branch, mode)
	if err != nil {
		h.logger.System().Error("Ledger summary failed", "branch", branch, "mode", mode, "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetTrend handles GET /api/v1/ledger/trend
func (h *LedgerHandlers) GetTrend(c *gin.Context) {
	branch := middleware.BranchFrom(c)

	trend, err := h.ledgerService.Trend(c.Request.Context(), branch)
	if err != nil {
		h.logger.System().Error("Balance trend failed", "branch", branch, "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

// GetRaw handles GET /api/v1/ledger/raw. Uncached diagnostic dump of the fact sheet.
func (h *LedgerHandlers) GetRaw(c *gin.Context) {
	rows, err := h.ledgerService.Raw(c.Request.Context())
	if err != nil {
		h.logger.System().Error("Raw ledger read failed", "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// SetDate handles POST /api/v1/ledger/date?value=
func (h *LedgerHandlers) SetDate(c *gin.Context) {
	h.writeCell(c, h.ledgerService.SetDate)
}

// SetMonth handles POST /api/v1/ledger/month?value=
func (h *LedgerHandlers) SetMonth(c *gin.Context) {
	h.writeCell(c, h.ledgerService.SetMonth)
}

func (h *LedgerHandlers) writeCell(c *gin.Context, write func(ctx context.Context, branch tenant.Branch, value string) error) {
	branch := middleware.BranchFrom(c)

	value := c.Query("value")
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}

	if err := write(c.Request.Context(), branch, value); err != nil {
		h.logger.System().Error("Ledger cell write failed", "branch", branch, "error", err)
		respondBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "written": value, "branch": string(branch)})
}

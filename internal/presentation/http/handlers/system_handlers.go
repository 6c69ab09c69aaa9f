package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/application/services"
	"github.com/atlasschools/finboard-go/internal/infrastructure/caching"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/internal/presentation/http/middleware"
)

// SystemHandlers serves health, cache stats, and admin login.
type SystemHandlers struct {
	cache          *caching.Store
	refreshService *services.RefreshService
	logger         *logging.ChanneledLogger
}

// NewSystemHandlers creates system endpoint handlers.
func NewSystemHandlers(cache *caching.Store, refreshService *services.RefreshService, logger *logging.ChanneledLogger) *SystemHandlers {
	return &SystemHandlers{cache: cache, refreshService: refreshService, logger: logger}
}

// Health handles GET /health
func (h *SystemHandlers) Health(c *gin.Context) {
	stats := h.cache.GetStats()
	payload := gin.H{
		"status": "ok",
		"cache": gin.H{
			"entries": stats.Entries,
			"hits":    stats.Hits,
			"misses":  stats.Misses,
		},
	}
	if lastRun, _ := h.refreshService.LastRun(); !lastRun.IsZero() {
		payload["lastRefresh"] = lastRun.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, payload)
}

// CacheStats handles GET /api/v1/admin/cache/stats
func (h *SystemHandlers) CacheStats(c *gin.Context) {
	stats := h.cache.GetStats()
	c.JSON(http.StatusOK, gin.H{
		"entries":     stats.Entries,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"staleServes": stats.StaleServes,
	})
}

// FlushCache handles POST /api/v1/admin/cache/flush
func (h *SystemHandlers) FlushCache(c *gin.Context) {
	h.cache.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Login handles POST /api/v1/auth/login (JSON body: password)
func (h *SystemHandlers) Login(c *gin.Context) {
	var payload struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	token, err := middleware.IssueAdminToken(payload.Password)
	if err != nil {
		h.logger.System().Warn("Admin login rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/application/services"
	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
)

// ReportsHandlers serves the monthly PDF report archive endpoints.
type ReportsHandlers struct {
	reportsService *services.ReportsService
	logger         *logging.ChanneledLogger
}

// NewReportsHandlers creates report archive endpoint handlers.
func NewReportsHandlers(reportsService *services.ReportsService, logger *logging.ChanneledLogger) *ReportsHandlers {
	return &ReportsHandlers{reportsService: reportsService, logger: logger}
}

// ListReports handles GET /api/v1/reports
func (h *ReportsHandlers) ListReports(c *gin.Context) {
	months, err := h.reportsService.List()
	if err != nil {
		h.logger.System().Error("Report listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"months": months})
}

// UploadReport handles POST /api/v1/reports/upload (multipart form: ym, file)
func (h *ReportsHandlers) UploadReport(c *gin.Context) {
	ym := c.PostForm("ym")
	header, err := c.FormFile("file")
	if ym == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ym (YYYY-MM) and file are required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer file.Close()

	if err := h.reportsService.Save(ym, header.Filename, file); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DeleteReport handles POST /api/v1/reports/delete (JSON body: ym, name)
func (h *ReportsHandlers) DeleteReport(c *gin.Context) {
	var payload struct {
		YM   string `json:"ym"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.YM == "" || payload.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ym and name are required"})
		return
	}

	if err := h.reportsService.Delete(payload.YM, payload.Name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		h.logger.System().Error("Report deletion failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

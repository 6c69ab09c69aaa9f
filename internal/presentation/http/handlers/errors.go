package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/infrastructure/sheets"
)

// respondBackendError translates sheet backend failures into HTTP status
// codes at the boundary: missing documents map to 404, retriable upstream
// conditions to 503, anything else to 502.
func respondBackendError(c *gin.Context, err error) {
	switch {
	case sheets.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case sheets.IsTransient(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "retriable": true})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

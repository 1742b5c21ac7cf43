// Package handlers exposes the marketplace over HTTP.
package handlers

import (
	"context"
	"net/http"

	"venuebook/models"
	"venuebook/services/booking"
	"venuebook/services/documents"
	"venuebook/services/settings"
	"venuebook/services/verification"
	"venuebook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsStore reads and edits the platform settings.
type SettingsStore interface {
	Current() models.PlatformSettings
	Update(ctx context.Context, adminID string, u settings.Update) (models.PlatformSettings, error)
}

// Handler holds the services behind every endpoint.
type Handler struct {
	Listings  verification.VerificationService
	Bookings  booking.BookingService
	Documents *documents.DocumentService
	Settings  SettingsStore
	Health    *utils.HealthMonitor
	Logger    *zap.Logger
}

// HealthCheck reports the last probe of every backing service.
func (h *Handler) HealthCheck(c *gin.Context) {
	if h.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	status := h.Health.Status()
	code, label := http.StatusOK, "ok"
	if !status.Healthy() {
		code, label = http.StatusServiceUnavailable, "degraded"
	}
	c.JSON(code, gin.H{"status": label, "services": status.Services, "checkedAt": status.CheckedAt})
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"venuebook/models"
	"venuebook/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthCheckReportsDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	monitor := utils.NewHealthMonitor(map[string]utils.Pinger{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	monitor.Check(context.Background())

	h := &Handler{Health: monitor, Logger: zap.NewNop()}
	r := gin.New()
	r.GET("/health", h.HealthCheck)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

func TestSettingsHoursConversion(t *testing.T) {
	assert.Nil(t, hours(nil))
	h := 1.5
	require.NotNil(t, hours(&h))
	assert.Equal(t, 90*time.Minute, *hours(&h))

	v := viewSettings(models.DefaultPlatformSettings())
	assert.Equal(t, 168.0, v.VenueRefundWindowHours)
	assert.Equal(t, 48.0, v.ServiceRefundWindowHours)
}

func TestSessionRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{Logger: zap.NewNop()}
	r := gin.New()
	r.GET("/mine", h.ListMyBookings)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mine", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

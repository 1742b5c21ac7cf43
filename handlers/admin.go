package handlers

import (
	"net/http"
	"time"

	"venuebook/models"
	"venuebook/services/settings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type reviewNotes struct {
	Notes string `json:"notes"`
}

// AdminListListings returns listings in one review state, under_review by default.
func (h *Handler) AdminListListings(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	status := models.VerificationStatus(c.DefaultQuery("status", string(models.StatusUnderReview)))
	listings, err := h.Listings.ListByStatus(c.Request.Context(), s, status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

func (h *Handler) ApproveListing(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body reviewNotes
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.badRequest(c, err)
			return
		}
	}
	l, err := h.Listings.ApproveListing(c.Request.Context(), s, c.Param("id"), body.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

func (h *Handler) RejectListing(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body reviewNotes
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	l, err := h.Listings.RejectListing(c.Request.Context(), s, c.Param("id"), body.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

func (h *Handler) ReviewDocument(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body struct {
		Verified *bool  `json:"verified" binding:"required"`
		Notes    string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	doc, err := h.Documents.Review(c.Request.Context(), s, c.Param("id"), *body.Verified, body.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// settingsView is PlatformSettings with refund windows in hours.
type settingsView struct {
	CommissionRate           float64   `json:"commission_rate"`
	TransactionFeeRate       float64   `json:"transaction_fee_rate"`
	VenueRefundWindowHours   float64   `json:"venue_refund_window_hours"`
	ServiceRefundWindowHours float64   `json:"service_refund_window_hours"`
	UpdatedAt                time.Time `json:"updated_at"`
	UpdatedBy                string    `json:"updated_by,omitempty"`
}

func viewSettings(s models.PlatformSettings) settingsView {
	return settingsView{
		CommissionRate:           s.CommissionRate,
		TransactionFeeRate:       s.TransactionFeeRate,
		VenueRefundWindowHours:   s.VenueRefundWindow.Hours(),
		ServiceRefundWindowHours: s.ServiceRefundWindow.Hours(),
		UpdatedAt:                s.UpdatedAt,
		UpdatedBy:                s.UpdatedBy,
	}
}

func hours(h *float64) *time.Duration {
	if h == nil {
		return nil
	}
	d := time.Duration(*h * float64(time.Hour))
	return &d
}

func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": viewSettings(h.Settings.Current())})
}

// UpdateSettings applies a partial edit; omitted fields keep their value.
func (h *Handler) UpdateSettings(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body struct {
		CommissionRate           *float64 `json:"commission_rate"`
		TransactionFeeRate       *float64 `json:"transaction_fee_rate"`
		VenueRefundWindowHours   *float64 `json:"venue_refund_window_hours"`
		ServiceRefundWindowHours *float64 `json:"service_refund_window_hours"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	updated, err := h.Settings.Update(c.Request.Context(), s.UserID, settings.Update{
		CommissionRate:      body.CommissionRate,
		TransactionFeeRate:  body.TransactionFeeRate,
		VenueRefundWindow:   hours(body.VenueRefundWindowHours),
		ServiceRefundWindow: hours(body.ServiceRefundWindowHours),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": viewSettings(updated)})
}

// MarkPayout releases a booking's payout once its refund window has closed.
func (h *Handler) MarkPayout(c *gin.Context) {
	b, err := h.Bookings.MarkPayoutProcessed(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// RunPayoutSweep processes every booking whose payout is due.
func (h *Handler) RunPayoutSweep(c *gin.Context) {
	n, err := h.Bookings.ProcessDuePayouts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": n})
}

func (h *Handler) RunStorageCleanup(c *gin.Context) {
	report, err := h.Documents.CleanupOrphans(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log(c).Info("storage cleanup finished",
		zap.Int("deletionsFinished", report.DeletionsFinished),
		zap.Int("orphansRemoved", report.OrphansRemoved),
		zap.Int("failures", report.Failures))
	c.JSON(http.StatusOK, gin.H{"report": report})
}

package handlers

import (
	"io"
	"net/http"

	"venuebook/services/booking"
	"venuebook/services/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// webhookBodyLimit bounds gateway callback payloads.
const webhookBodyLimit = 1 << 20

func (h *Handler) CreateBooking(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req booking.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	b, err := h.Bookings.CreateBooking(c.Request.Context(), s, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) GetBooking(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	b, err := h.Bookings.GetBooking(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) ListMyBookings(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	bookings, err := h.Bookings.ListMine(c.Request.Context(), s)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// BookingTransactions returns the ledger entries of one booking.
func (h *Handler) BookingTransactions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	txns, err := h.Bookings.Ledger(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// PayBooking starts a payment through the gateway named in the body.
func (h *Handler) PayBooking(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req booking.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.BookingID = c.Param("id")
	started, err := h.Bookings.InitiatePayment(c.Request.Context(), s, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, started)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	b, err := h.Bookings.CancelBooking(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// PaymentWebhook receives asynchronous notifications from a gateway. The
// gateway verifies the payload itself; duplicates are harmless.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	gateway := c.Param("gateway")
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		h.badRequest(c, err)
		return
	}
	b, err := h.Bookings.HandleGatewayCallback(c.Request.Context(), gateway, payment.Callback{
		Header: c.Request.Header,
		Query:  c.Request.URL.Query(),
		Body:   body,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if b != nil {
		h.log(c).Info("payment callback applied",
			zap.String("gateway", gateway),
			zap.String("bookingId", b.ID),
			zap.String("paymentStatus", string(b.PaymentStatus)))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

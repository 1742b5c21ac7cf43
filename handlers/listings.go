package handlers

import (
	"net/http"
	"strconv"

	listingRepo "venuebook/database/repository/listing"
	"venuebook/models"
	"venuebook/services/verification"
	"venuebook/utils/apperr"

	"github.com/gin-gonic/gin"
)

// SubmitListing creates a pending listing and emails its verification link.
func (h *Handler) SubmitListing(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var draft verification.ListingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c, err)
		return
	}
	l, err := h.Listings.SubmitListing(c.Request.Context(), s, draft)
	if err != nil && l != nil && apperr.IsExternal(err) {
		// Saved, but the email bounced; the owner can ask for another one.
		c.JSON(http.StatusAccepted, gin.H{
			"listing": l,
			"warning": "verification email could not be sent, request a new one",
		})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing": l})
}

// ResendVerification issues a fresh verification link for a pending listing.
func (h *Handler) ResendVerification(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if _, err := h.Listings.InitiateVerification(c.Request.Context(), "", c.Param("id"), s.UserID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "verification email sent"})
}

// VerifyListing consumes the emailed token.
func (h *Handler) VerifyListing(c *gin.Context) {
	l, err := h.Listings.VerifyListing(c.Request.Context(), c.Query("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified, your listing is now under review", "listing": l})
}

// SetListingActive toggles a verified listing's public visibility.
func (h *Handler) SetListingActive(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	l, err := h.Listings.SetListingActive(c.Request.Context(), s, c.Param("id"), *body.Active)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

func (h *Handler) ResubmitListing(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	l, err := h.Listings.ResubmitListing(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing": l})
}

// ListPublic returns verified, active listings. Accepts ?type= and ?limit=.
func (h *Handler) ListPublic(c *gin.Context) {
	f := listingRepo.PublicFilter{Type: models.ListingType(c.Query("type"))}
	if f.Type != "" && !f.Type.Valid() {
		h.fail(c, apperr.Validation("type", "must be venue or service_provider"))
		return
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(c, apperr.Validation("limit", "must be a non-negative integer"))
			return
		}
		f.Limit = n
	}
	listings, err := h.Listings.ListPublic(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

func (h *Handler) ListMyListings(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	listings, err := h.Listings.ListMine(c.Request.Context(), s)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// GetListing returns one listing. Anonymous callers only see public ones.
func (h *Handler) GetListing(c *gin.Context) {
	l, err := h.Listings.GetListing(c.Request.Context(), optionalSession(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

package routes

import (
	"time"

	"venuebook/handlers"
	"venuebook/middleware"
	"venuebook/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterListingRoutes registers listing submission, verification and browsing.
func RegisterListingRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Authenticator) {
	api := r.Group("/api/listings")
	{
		// Public endpoints
		api.GET("", h.ListPublic)
		api.GET("/verify", h.VerifyListing)

		owner := api.Group("")
		owner.Use(auth.RequireAuth(utils.RoleOwner))
		owner.POST("", h.SubmitListing)
		owner.GET("/mine", h.ListMyListings)
		owner.POST("/:id/resend-verification", h.ResendVerification)
		owner.PATCH("/:id/active", h.SetListingActive)
		owner.POST("/:id/resubmit", h.ResubmitListing)

		// Owners and admins see non-public listings; everyone else gets 404.
		api.GET("/:id", auth.OptionalAuth(), h.GetListing)
	}
}

// RegisterBookingRoutes registers the client booking flow.
func RegisterBookingRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Authenticator) {
	api := r.Group("/api/bookings")
	{
		api.Use(auth.RequireAuth())
		api.POST("", auth.RequireAuth(utils.RoleClient), h.CreateBooking)
		api.GET("/mine", h.ListMyBookings)
		api.GET("/:id", h.GetBooking)
		api.GET("/:id/transactions", h.BookingTransactions)
		api.POST("/:id/pay", auth.RequireAuth(utils.RoleClient), h.PayBooking)
		api.POST("/:id/cancel", h.CancelBooking)
	}
}

// RegisterPaymentRoutes registers gateway webhooks. They carry their own signatures.
func RegisterPaymentRoutes(r *gin.Engine, h *handlers.Handler) {
	r.POST("/api/payments/webhook/:gateway", h.PaymentWebhook)
	// Pesapal sends IPNs as GET by default.
	r.GET("/api/payments/webhook/:gateway", h.PaymentWebhook)
}

// RegisterDocumentRoutes registers owner document storage.
func RegisterDocumentRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Authenticator) {
	api := r.Group("/api/documents")
	{
		api.GET("/:id/url", auth.OptionalAuth(), h.DocumentURL)

		protected := api.Group("")
		protected.Use(auth.RequireAuth())
		protected.POST("", h.UploadDocument)
		protected.GET("", h.ListMyDocuments)
		protected.DELETE("/:id", h.DeleteDocument)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Authenticator) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(auth.RequireAuth(utils.RoleAdmin))
		adminGroup.GET("/listings", h.AdminListListings)
		adminGroup.POST("/listings/:id/approve", h.ApproveListing)
		adminGroup.POST("/listings/:id/reject", h.RejectListing)
		adminGroup.POST("/documents/:id/review", h.ReviewDocument)
		adminGroup.GET("/settings", h.GetSettings)
		adminGroup.PUT("/settings", h.UpdateSettings)
		adminGroup.POST("/bookings/:id/payout", h.MarkPayout)
		adminGroup.POST("/maintenance/payouts", h.RunPayoutSweep)
		adminGroup.POST("/maintenance/storage-cleanup", h.RunStorageCleanup)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Authenticator) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.HealthCheck)
	RegisterListingRoutes(r, h, auth)
	RegisterBookingRoutes(r, h, auth)
	RegisterPaymentRoutes(r, h)
	RegisterDocumentRoutes(r, h, auth)
	RegisterAdminRoutes(r, h, auth)
}

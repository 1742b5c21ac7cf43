package utils

import (
	"errors"
	"net/http"

	"venuebook/utils/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
					Code:    "internal_error",
				})
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, logger *zap.Logger, status int, code, message, details string) {
	logger.Warn(message, zap.String("details", details), zap.String("path", c.Request.URL.Path))
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Details: details, Code: code})
}

// RespondError maps err onto the HTTP error taxonomy and writes the response.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	status, resp := Describe(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("code", resp.Code),
		zap.String("path", c.Request.URL.Path),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(resp.Message, fields...)
	} else {
		logger.Warn(resp.Message, fields...)
	}
	c.AbortWithStatusJSON(status, resp)
}

// Describe returns the status and body RespondError would send for err.
func Describe(err error) (int, ErrorResponse) {
	var (
		validation *apperr.ValidationError
		verify     *apperr.VerificationError
		external   *apperr.ExternalServiceError
		payout     *apperr.PayoutPolicyViolation
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Invalid request",
			Details: validation.Message,
			Field:   validation.Field,
			Code:    "validation_error",
		}
	case errors.As(err, &verify):
		return http.StatusBadRequest, ErrorResponse{
			Message: "Verification failed, please resubmit",
			Reason:  string(verify.Reason),
			Code:    "verification_failed",
		}
	case errors.As(err, &payout):
		return http.StatusConflict, ErrorResponse{
			Message: "Payout not allowed",
			Details: payout.Reason,
			Code:    "payout_policy_violation",
		}
	case errors.As(err, &external):
		return http.StatusBadGateway, ErrorResponse{
			Message: "Upstream service unavailable, please retry",
			Details: external.Service,
			Code:    "external_service_error",
		}
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Message: "Not found", Code: "not_found"}
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict, ErrorResponse{Message: "Conflicting update, please reload", Code: "conflict"}
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Message: "Forbidden", Code: "forbidden"}
	}
	return http.StatusInternalServerError, ErrorResponse{
		Message: "Internal Server Error",
		Details: "An unexpected error occurred. Please try again later.",
		Code:    "internal_error",
	}
}

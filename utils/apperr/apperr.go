// Package apperr holds the error taxonomy shared by stores, services and handlers.
//
// Stores return the sentinels below (optionally wrapped) to report facts about
// records. Services translate them into the typed errors, which handlers map to
// HTTP responses.
package apperr

import (
	"errors"
	"fmt"
)

// Store sentinels.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	// ErrForbidden is returned by services when the actor may not touch a record.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed or out-of-range input. It is always raised
// before any state mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// VerificationReason says why a verification token was refused.
type VerificationReason string

const (
	ReasonInvalid     VerificationReason = "invalid"
	ReasonExpired     VerificationReason = "expired"
	ReasonAlreadyUsed VerificationReason = "already_used"
)

// VerificationError is returned when a token cannot be consumed. The token is
// dead for good; the owner has to request a new one.
type VerificationError struct {
	Reason VerificationReason
}

func (e *VerificationError) Error() string {
	return "verification failed: token " + string(e.Reason)
}

// Is matches any VerificationError with the same reason, so callers can use
// errors.Is(err, apperr.ErrTokenExpired).
func (e *VerificationError) Is(target error) bool {
	t, ok := target.(*VerificationError)
	return ok && t.Reason == e.Reason
}

var (
	ErrTokenInvalid = &VerificationError{Reason: ReasonInvalid}
	ErrTokenExpired = &VerificationError{Reason: ReasonExpired}
	ErrTokenUsed    = &VerificationError{Reason: ReasonAlreadyUsed}
)

// ExternalServiceError wraps a failure of a payment gateway, the mailer or
// object storage. It is retryable at the caller's discretion.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// External wraps err as an ExternalServiceError. A nil err stays nil.
func External(service string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalServiceError{Service: service, Err: err}
}

// PayoutPolicyViolation is returned when a payout is requested before the
// refund window closed or for a booking that is not paid.
type PayoutPolicyViolation struct {
	Reason string
}

func (e *PayoutPolicyViolation) Error() string {
	return "payout not allowed: " + e.Reason
}

// PayoutViolation builds a PayoutPolicyViolation.
func PayoutViolation(reason string) error {
	return &PayoutPolicyViolation{Reason: reason}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsVerification reports whether err carries a VerificationError.
func IsVerification(err error) bool {
	var v *VerificationError
	return errors.As(err, &v)
}

// IsExternal reports whether err carries an ExternalServiceError.
func IsExternal(err error) bool {
	var v *ExternalServiceError
	return errors.As(err, &v)
}

// IsPayoutViolation reports whether err carries a PayoutPolicyViolation.
func IsPayoutViolation(err error) bool {
	var v *PayoutPolicyViolation
	return errors.As(err, &v)
}

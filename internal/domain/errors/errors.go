package errors

import (
	"errors"
	"fmt"
)

var (
	// Campaign errors
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrCampaignInactive = errors.New("campaign is not accepting donations")

	// Donation errors
	ErrDonationNotFound       = errors.New("donation not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateTransaction   = errors.New("duplicate transaction id")

	// Provider errors
	ErrProviderNotFound = errors.New("payment provider not found")
	ErrProviderAuth     = errors.New("provider authentication failed")
	ErrProviderRequest  = errors.New("provider request failed")
	ErrProviderProtocol = errors.New("unexpected provider response")

	// Payment outcome errors
	ErrCancelledByPayer = errors.New("payment request cancelled by user")
	ErrPollTimeout      = errors.New("payment confirmation timed out")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

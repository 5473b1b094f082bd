package providers

import (
	"context"
	"encoding/json"
)

// OutcomeState is the canonical result of a payment status inquiry.
type OutcomeState string

const (
	// OutcomePending means no terminal state has been observed yet.
	OutcomePending OutcomeState = "pending"
	// OutcomeSucceeded means the payer authorized and the payment settled.
	OutcomeSucceeded OutcomeState = "succeeded"
	// OutcomeCancelled means the payer declined the prompt on their handset.
	// Terminal, but distinct from a provider-side failure: callers may offer
	// an immediate retry of the same donation.
	OutcomeCancelled OutcomeState = "cancelled"
	// OutcomeFailed means the provider reported a hard failure.
	OutcomeFailed OutcomeState = "failed"
)

// Outcome is the canonical translation of a provider's proprietary result
// code, plus the raw payload for audit logging.
type Outcome struct {
	State             OutcomeState
	ProviderReference string
	Reason            string
	Raw               json.RawMessage
}

// Terminal reports whether no further status change is expected.
func (o Outcome) Terminal() bool {
	return o.State != OutcomePending
}

// InitiateRequest holds the input for starting a payment with a provider.
type InitiateRequest struct {
	TransactionID    string
	AmountCents      int64
	Currency         string
	Msisdn           string
	Email            string
	AccountReference string
	Description      string
	Metadata         map[string]string
}

// InitiateResult holds the provider's response to a payment initiation.
type InitiateResult struct {
	// CheckoutRequestID is the correlation handle for providers whose
	// confirmation arrives asynchronously; empty for one-shot providers.
	CheckoutRequestID string
	ProviderRef       string
	ClientSecret      string
	CustomerMessage   string
	// RequiresConfirmation is true when the caller must poll for the
	// terminal outcome instead of treating initiation as settlement.
	RequiresConfirmation bool
}

// Initiator starts a payment through a provider.
type Initiator interface {
	// Name returns the provider name used for dispatch.
	Name() string
	// Initiate asks the provider to start a payment. Input validation must
	// happen before any network call is made.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
}

// StatusChecker translates a correlation handle into a canonical Outcome.
type StatusChecker interface {
	CheckStatus(ctx context.Context, checkoutRequestID string) (Outcome, error)
}

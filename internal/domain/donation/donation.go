package donation

import (
	"fmt"
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/google/uuid"
)

// MinAmountCents is the smallest accepted donation (KES 10).
const MinAmountCents = 1000

// Method represents the payment rail used for a donation
type Method string

const (
	MethodMpesa  Method = "mpesa"
	MethodAirtel Method = "airtel"
	MethodStripe Method = "stripe"
)

// DonationStatus represents the donation status in the state machine.
// Pending is the only non-terminal status: once a donation reaches any
// other status it is frozen, so replayed confirmations are no-ops.
type DonationStatus string

const (
	StatusPending   DonationStatus = "pending"
	StatusCompleted DonationStatus = "completed"
	StatusFailed    DonationStatus = "failed"
	StatusCancelled DonationStatus = "cancelled"
	StatusTimedOut  DonationStatus = "timed_out"
)

// Donation represents a single donation attempt against a campaign
type Donation struct {
	ID            uuid.UUID
	TransactionID string
	CampaignID    uuid.UUID
	AmountCents   int64
	Currency      string
	Method        Method
	Msisdn        string
	Email         string
	DonorName     string
	Status        DonationStatus
	// CheckoutRequestID is the provider-issued correlation handle for
	// mobile-money donations. Retained so a crashed poller can be resumed
	// by a later status inquiry.
	CheckoutRequestID string
	ProviderRef       string
	MpesaReceipt      string
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

// NewDonation creates a new pending donation
func NewDonation(transactionID string, campaignID uuid.UUID, amountCents int64, currency string, method Method) (*Donation, error) {
	if transactionID == "" {
		return nil, errors.ErrInvalidInput
	}
	if amountCents < MinAmountCents {
		return nil, errors.NewValidationError("amount", fmt.Sprintf("must be at least %d cents", MinAmountCents))
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	switch method {
	case MethodMpesa, MethodAirtel, MethodStripe:
	default:
		return nil, errors.NewValidationError("method", "unsupported payment method")
	}

	now := time.Now()
	return &Donation{
		ID:            uuid.New(),
		TransactionID: transactionID,
		CampaignID:    campaignID,
		AmountCents:   amountCents,
		Currency:      currency,
		Method:        method,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// WholeAmount returns the amount in whole currency units, which is what
// mobile-money providers expect on the wire.
func (d *Donation) WholeAmount() int64 {
	return d.AmountCents / 100
}

// IsTerminal checks if the donation is in a terminal state
func (d *Donation) IsTerminal() bool {
	return d.Status != StatusPending
}

// CanTransitionTo checks if the donation can transition to the given status
func (d *Donation) CanTransitionTo(newStatus DonationStatus) bool {
	if d.Status != StatusPending {
		return false
	}
	switch newStatus {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

// TransitionTo transitions the donation to a new status
func (d *Donation) TransitionTo(newStatus DonationStatus) error {
	if !d.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(d.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	d.Status = newStatus
	now := time.Now()
	d.UpdatedAt = now
	d.CompletedAt = &now
	return nil
}

// MarkCompleted records a successful payment confirmation
func (d *Donation) MarkCompleted(mpesaReceipt string) error {
	if err := d.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	d.MpesaReceipt = mpesaReceipt
	return nil
}

// MarkFailed records a provider-reported failure
func (d *Donation) MarkFailed(reason string) error {
	if err := d.TransitionTo(StatusFailed); err != nil {
		return err
	}
	d.FailureReason = reason
	return nil
}

// MarkCancelled records a payer-cancelled prompt
func (d *Donation) MarkCancelled() error {
	return d.TransitionTo(StatusCancelled)
}

// MarkTimedOut records an exhausted confirmation poll. The true outcome is
// unknown at this point, not negative.
func (d *Donation) MarkTimedOut() error {
	return d.TransitionTo(StatusTimedOut)
}

package donation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter holds filters for listing donations
type ListFilter struct {
	CampaignID *uuid.UUID
	Status     *DonationStatus
	Method     *Method
	Limit      int
	Offset     int
}

// Repository defines donation persistence operations
type Repository interface {
	Create(ctx context.Context, d *Donation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Donation, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Donation, error)
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*Donation, error)
	// SetCheckoutRequestID attaches the provider correlation handle after the
	// payment prompt has been dispatched.
	SetCheckoutRequestID(ctx context.Context, id uuid.UUID, checkoutRequestID, providerRef string) error
	List(ctx context.Context, filter ListFilter) ([]*Donation, error)
	// Finalize moves a pending donation into the given terminal status.
	// It returns false when the donation was already terminal, which makes
	// replayed confirmations (callback and poller racing) no-ops.
	Finalize(ctx context.Context, id uuid.UUID, status DonationStatus, mpesaReceipt, failureReason string) (bool, error)
	// ListStalePending returns pending donations for the given method whose
	// last update is older than the cutoff, for the reconciler to resume.
	ListStalePending(ctx context.Context, method Method, olderThan time.Duration, limit int) ([]*Donation, error)
}

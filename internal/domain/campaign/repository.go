package campaign

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter holds filters for listing campaigns
type ListFilter struct {
	Status    *CampaignStatus
	Category  *Category
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// Repository defines campaign persistence operations
type Repository interface {
	Create(ctx context.Context, c *Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	List(ctx context.Context, filter ListFilter) ([]*Campaign, error)
	// RecordDonation atomically adds a completed donation to the campaign
	// totals. Implementations must use a single relative UPDATE, not a
	// read-modify-write, so concurrent donations cannot lose updates.
	RecordDonation(ctx context.Context, id uuid.UUID, amountCents int64) error
}

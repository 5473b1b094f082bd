package campaign

import (
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/google/uuid"
)

// CampaignStatus represents the lifecycle status of a campaign
type CampaignStatus string

const (
	StatusActive    CampaignStatus = "active"
	StatusCompleted CampaignStatus = "completed"
	StatusSuspended CampaignStatus = "suspended"
)

// Category groups campaigns for discovery
type Category string

const (
	CategoryMedical   Category = "medical"
	CategoryEducation Category = "education"
	CategoryEmergency Category = "emergency"
	CategoryWedding   Category = "wedding"
	CategoryCommunity Category = "community"
)

// Campaign represents a fundraising campaign
type Campaign struct {
	ID          uuid.UUID
	Title       string
	Description string
	Category    Category
	OwnerID     string
	GoalCents   int64
	RaisedCents int64
	DonorCount  int
	Currency    string
	Status      CampaignStatus
	ImageURL    string
	EndDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewCampaign creates a new active campaign
func NewCampaign(title, description string, category Category, ownerID string, goalCents int64, currency string) (*Campaign, error) {
	if title == "" {
		return nil, errors.NewValidationError("title", "cannot be empty")
	}
	if goalCents <= 0 {
		return nil, errors.NewValidationError("goal", "must be greater than 0")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}

	now := time.Now()
	return &Campaign{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Category:    category,
		OwnerID:     ownerID,
		GoalCents:   goalCents,
		Currency:    currency,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AcceptsDonations reports whether the campaign can receive new donations.
func (c *Campaign) AcceptsDonations() bool {
	if c.Status != StatusActive {
		return false
	}
	if c.EndDate != nil && time.Now().After(*c.EndDate) {
		return false
	}
	return true
}

// Progress returns the funding progress as a fraction in [0, 1+].
func (c *Campaign) Progress() float64 {
	if c.GoalCents <= 0 {
		return 0
	}
	return float64(c.RaisedCents) / float64(c.GoalCents)
}

package controller

import (
	"math"
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/campaign"
	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/donation"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for shilling amounts, string
// IDs, validation tags). Controllers convert them to service layer DTOs
// before calling business logic.

// CreateCampaignRequest holds the input for creating a campaign.
type CreateCampaignRequest struct {
	Title       string     `json:"title" validate:"required,max=120"`
	Description string     `json:"description" validate:"required"`
	Category    string     `json:"category" validate:"required,oneof=medical education emergency wedding community"`
	OwnerID     string     `json:"owner_id" validate:"required"`
	Goal        float64    `json:"goal" validate:"required,gt=0"`
	Currency    string     `json:"currency" validate:"required,len=3"`
	ImageURL    string     `json:"image_url,omitempty" validate:"omitempty,url"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// ProcessDonationRequest holds the input for initiating a donation.
type ProcessDonationRequest struct {
	CampaignID string  `json:"campaign_id" validate:"required,uuid"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Currency   string  `json:"currency" validate:"required,len=3"`
	Method     string  `json:"method" validate:"required,oneof=mpesa airtel stripe"`
	Msisdn     string  `json:"phone_number,omitempty"`
	Email      string  `json:"email,omitempty" validate:"omitempty,email"`
	DonorName  string  `json:"donor_name,omitempty"`
}

// StatusQueryRequest asks for the current state of a mobile-money payment.
type StatusQueryRequest struct {
	CheckoutRequestID string `json:"checkout_request_id" validate:"required"`
}

// --- Response DTOs ---

// CampaignResponse represents a campaign in API responses.
type CampaignResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	OwnerID     string     `json:"owner_id"`
	Goal        float64    `json:"goal"`
	Raised      float64    `json:"raised"`
	Progress    float64    `json:"progress"`
	DonorCount  int        `json:"donor_count"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	ImageURL    string     `json:"image_url,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DonationResponse represents a donation in API responses.
type DonationResponse struct {
	ID                string     `json:"id"`
	TransactionID     string     `json:"transaction_id"`
	CampaignID        string     `json:"campaign_id"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	Method            string     `json:"method"`
	Status            string     `json:"status"`
	DonorName         string     `json:"donor_name,omitempty"`
	CheckoutRequestID string     `json:"checkout_request_id,omitempty"`
	MpesaReceipt      string     `json:"mpesa_receipt,omitempty"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// InitiateDonationResponse is returned after a donation has been dispatched.
type InitiateDonationResponse struct {
	Donation          *DonationResponse `json:"donation"`
	CheckoutRequestID string            `json:"checkout_request_id,omitempty"`
	ClientSecret      string            `json:"client_secret,omitempty"`
	CustomerMessage   string            `json:"customer_message,omitempty"`
}

// StatusQueryResponse reports the current payment state for a handle.
type StatusQueryResponse struct {
	Status       string            `json:"status"`
	ResultDesc   string            `json:"result_desc,omitempty"`
	MpesaReceipt string            `json:"mpesa_receipt,omitempty"`
	Donation     *DonationResponse `json:"donation,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromCampaign converts a domain campaign to API response.
func FromCampaign(c *campaign.Campaign) *CampaignResponse {
	return &CampaignResponse{
		ID:          c.ID.String(),
		Title:       c.Title,
		Description: c.Description,
		Category:    string(c.Category),
		OwnerID:     c.OwnerID,
		Goal:        centsToFloat(c.GoalCents),
		Raised:      centsToFloat(c.RaisedCents),
		Progress:    c.Progress(),
		DonorCount:  c.DonorCount,
		Currency:    c.Currency,
		Status:      string(c.Status),
		ImageURL:    c.ImageURL,
		EndDate:     c.EndDate,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// FromDonation converts a domain donation to API response.
func FromDonation(d *donation.Donation) *DonationResponse {
	return &DonationResponse{
		ID:                d.ID.String(),
		TransactionID:     d.TransactionID,
		CampaignID:        d.CampaignID.String(),
		Amount:            centsToFloat(d.AmountCents),
		Currency:          d.Currency,
		Method:            string(d.Method),
		Status:            string(d.Status),
		DonorName:         d.DonorName,
		CheckoutRequestID: d.CheckoutRequestID,
		MpesaReceipt:      d.MpesaReceipt,
		FailureReason:     d.FailureReason,
		CreatedAt:         d.CreatedAt,
		CompletedAt:       d.CompletedAt,
	}
}

// outcomeLabel maps a provider outcome state to the API status vocabulary.
func outcomeLabel(state providers.OutcomeState) string {
	switch state {
	case providers.OutcomeSucceeded:
		return "succeeded"
	case providers.OutcomeCancelled:
		return "cancelled"
	case providers.OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// floatToCents converts a shilling amount to cents, rounding to the nearest
// cent. Plain truncation turns 10.10 into 1009 because of float
// representation.
func floatToCents(f float64) int64 {
	return int64(math.Round(f * 100))
}

// centsToFloat converts cents to a shilling amount.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100.0
}

package testutil

import (
	"testing"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/campaign"
	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/donation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// ActiveCampaign builds a campaign that accepts donations.
func ActiveCampaign(t *testing.T) *campaign.Campaign {
	t.Helper()
	c, err := campaign.NewCampaign(
		"Kibera Water Project",
		"Clean water access for the community",
		campaign.CategoryCommunity,
		"owner-1",
		1_000_000_00,
		"KES",
	)
	require.NoError(t, err)
	return c
}

// PendingMpesaDonation builds a pending donation awaiting confirmation.
func PendingMpesaDonation(t *testing.T, campaignID uuid.UUID) *donation.Donation {
	t.Helper()
	d, err := donation.NewDonation("TXN20250314150926ABCD1234", campaignID, 50000, "KES", donation.MethodMpesa)
	require.NoError(t, err)
	d.Msisdn = "254712345678"
	d.CheckoutRequestID = "ws_CO_14032025150926123456"
	return d
}

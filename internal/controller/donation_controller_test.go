package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/donation"
	"github.com/JAMESMUTISYA1/harambeFund/internal/poller"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/JAMESMUTISYA1/harambeFund/internal/service"
	"github.com/JAMESMUTISYA1/harambeFund/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type controllerFixture struct {
	handler      *DonationController
	donationRepo *testutil.MockDonationRepository
	campaignRepo *testutil.MockCampaignRepository
	initiator    *testutil.MockInitiator
	checker      *testutil.MockStatusChecker
}

func setupDonationController(t *testing.T) *controllerFixture {
	t.Helper()
	donationRepo := testutil.NewMockDonationRepository()
	campaignRepo := testutil.NewMockCampaignRepository()
	initiator := testutil.NewMockInitiator("mpesa")
	checker := &testutil.MockStatusChecker{}

	svc := service.NewDonationService(
		donationRepo,
		campaignRepo,
		testutil.NewMockTransactionManager(),
		providers.NewFactory(initiator),
		map[string]providers.StatusChecker{"mpesa": checker},
		poller.Poller{MaxAttempts: 3, Interval: time.Millisecond},
	)
	return &controllerFixture{
		handler:      NewDonationController(svc, zerolog.Nop()),
		donationRepo: donationRepo,
		campaignRepo: campaignRepo,
		initiator:    initiator,
		checker:      checker,
	}
}

func TestDonationController_ProcessDonation_Accepted(t *testing.T) {
	f := setupDonationController(t)
	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)

	body, _ := json.Marshal(ProcessDonationRequest{
		CampaignID: c.ID.String(),
		Amount:     500,
		Currency:   "KES",
		Method:     "mpesa",
		Msisdn:     "0712345678",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/process", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.ProcessDonation(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp InitiateDonationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CheckoutRequestID)
	assert.Equal(t, "pending", resp.Donation.Status)
	assert.Equal(t, float64(500), resp.Donation.Amount)
}

func TestDonationController_ProcessDonation_ValidationError(t *testing.T) {
	f := setupDonationController(t)

	tests := []struct {
		name string
		body ProcessDonationRequest
	}{
		{"missing campaign", ProcessDonationRequest{Amount: 500, Currency: "KES", Method: "mpesa"}},
		{"zero amount", ProcessDonationRequest{CampaignID: uuid.New().String(), Currency: "KES", Method: "mpesa"}},
		{"unknown method", ProcessDonationRequest{CampaignID: uuid.New().String(), Amount: 500, Currency: "KES", Method: "cash"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/process", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			f.handler.ProcessDonation(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, 0, f.initiator.InitiateCalls)
		})
	}
}

func TestDonationController_ProcessDonation_InactiveCampaign(t *testing.T) {
	f := setupDonationController(t)
	c := testutil.ActiveCampaign(t)
	c.Status = "suspended"
	f.campaignRepo.AddCampaign(c)

	body, _ := json.Marshal(ProcessDonationRequest{
		CampaignID: c.ID.String(),
		Amount:     500,
		Currency:   "KES",
		Method:     "mpesa",
		Msisdn:     "0712345678",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/process", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.ProcessDonation(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "campaign_inactive", resp.Code)
}

func TestDonationController_QueryStatus_Succeeded(t *testing.T) {
	f := setupDonationController(t)
	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	f.checker.Outcomes = []providers.Outcome{
		{State: providers.OutcomeSucceeded, ProviderReference: "QGR7TJ61SV"},
	}

	body, _ := json.Marshal(StatusQueryRequest{CheckoutRequestID: d.CheckoutRequestID})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mpesa/status", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.QueryStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp StatusQueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "succeeded", resp.Status)
	assert.Equal(t, "QGR7TJ61SV", resp.MpesaReceipt)
	assert.Equal(t, "completed", resp.Donation.Status)
}

func TestDonationController_QueryStatus_UnknownHandle(t *testing.T) {
	f := setupDonationController(t)

	body, _ := json.Marshal(StatusQueryRequest{CheckoutRequestID: "ws_CO_unknown"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mpesa/status", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.QueryStatus(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func mpesaCallbackPayload(checkoutRequestID string, resultCode int, withMetadata bool) []byte {
	metadata := ""
	if withMetadata {
		metadata = `,
			"CallbackMetadata": {"Item": [
				{"Name": "Amount", "Value": 500.0},
				{"Name": "MpesaReceiptNumber", "Value": "QGR7TJ61SV"},
				{"Name": "PhoneNumber", "Value": 254712345678}
			]}`
	}
	return []byte(fmt.Sprintf(`{
		"Body": {"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": %q,
			"ResultCode": %d,
			"ResultDesc": "desc"%s
		}}
	}`, checkoutRequestID, resultCode, metadata))
}

func TestDonationController_MpesaCallback_ConfirmsDonation(t *testing.T) {
	f := setupDonationController(t)
	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mpesa/callback",
		bytes.NewReader(mpesaCallbackPayload(d.CheckoutRequestID, 0, true)))
	rec := httptest.NewRecorder()

	f.handler.MpesaCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	stored := f.donationRepo.GetDonationByID(d.ID)
	assert.Equal(t, donation.StatusCompleted, stored.Status)
	assert.Equal(t, "QGR7TJ61SV", stored.MpesaReceipt)
	assert.Equal(t, d.AmountCents, f.campaignRepo.GetCampaignByID(c.ID).RaisedCents)
}

func TestDonationController_MpesaCallback_CancelledByPayer(t *testing.T) {
	f := setupDonationController(t)
	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mpesa/callback",
		bytes.NewReader(mpesaCallbackPayload(d.CheckoutRequestID, 1032, false)))
	rec := httptest.NewRecorder()

	f.handler.MpesaCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	stored := f.donationRepo.GetDonationByID(d.ID)
	assert.Equal(t, donation.StatusCancelled, stored.Status)
	assert.Zero(t, f.campaignRepo.GetCampaignByID(c.ID).RaisedCents)
}

func TestDonationController_MpesaCallback_UnknownHandleStillAcknowledged(t *testing.T) {
	f := setupDonationController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mpesa/callback",
		bytes.NewReader(mpesaCallbackPayload("ws_CO_unknown", 0, true)))
	rec := httptest.NewRecorder()

	f.handler.MpesaCallback(rec, req)

	// Daraja must not keep retrying a callback we cannot match.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDonationController_MpesaCallback_MalformedPayload(t *testing.T) {
	f := setupDonationController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mpesa/callback",
		bytes.NewReader([]byte(`{"Body": {}}`)))
	rec := httptest.NewRecorder()

	f.handler.MpesaCallback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDonationController_GetDonation(t *testing.T) {
	f := setupDonationController(t)
	c := testutil.ActiveCampaign(t)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	r := chi.NewRouter()
	r.Get("/api/v1/donations/{id}", f.handler.GetDonation)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations/"+d.ID.String(), nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DonationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, d.TransactionID, resp.TransactionID)
}

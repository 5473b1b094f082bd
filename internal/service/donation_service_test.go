package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/campaign"
	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/donation"
	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/poller"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/JAMESMUTISYA1/harambeFund/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

type donationServiceFixture struct {
	svc          *DonationService
	donationRepo *testutil.MockDonationRepository
	campaignRepo *testutil.MockCampaignRepository
	initiator    *testutil.MockInitiator
	checker      *testutil.MockStatusChecker
}

func setupDonationService(t *testing.T) *donationServiceFixture {
	t.Helper()
	donationRepo := testutil.NewMockDonationRepository()
	campaignRepo := testutil.NewMockCampaignRepository()
	txManager := testutil.NewMockTransactionManager()

	initiator := testutil.NewMockInitiator("mpesa")
	factory := providers.NewFactory(initiator)
	checker := &testutil.MockStatusChecker{}

	svc := NewDonationService(
		donationRepo,
		campaignRepo,
		txManager,
		factory,
		map[string]providers.StatusChecker{"mpesa": checker},
		poller.Poller{MaxAttempts: 5, Interval: time.Millisecond},
	)
	return &donationServiceFixture{
		svc:          svc,
		donationRepo: donationRepo,
		campaignRepo: campaignRepo,
		initiator:    initiator,
		checker:      checker,
	}
}

// --- ProcessDonation Tests ---

func TestProcessDonation_Mpesa_Success(t *testing.T) {
	f := setupDonationService(t)
	ctx := context.Background()

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)

	resp, err := f.svc.ProcessDonation(ctx, ProcessDonationRequest{
		CampaignID:  c.ID,
		AmountCents: 50000,
		Currency:    "KES",
		Method:      donation.MethodMpesa,
		Msisdn:      "0712345678",
	})
	require.NoError(t, err)
	assert.Equal(t, donation.StatusPending, resp.Donation.Status)
	assert.NotEmpty(t, resp.CheckoutRequestID)
	assert.NotEmpty(t, resp.Donation.TransactionID)

	// the prompt goes to the normalized number
	assert.Equal(t, "254712345678", f.initiator.LastRequest.Msisdn)
	assert.Equal(t, int64(50000), f.initiator.LastRequest.AmountCents)

	stored := f.donationRepo.GetDonationByID(resp.Donation.ID)
	require.NotNil(t, stored)
	assert.Equal(t, resp.CheckoutRequestID, stored.CheckoutRequestID)
}

func TestProcessDonation_InvalidMsisdn_NoProviderCall(t *testing.T) {
	f := setupDonationService(t)
	ctx := context.Background()

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)

	_, err := f.svc.ProcessDonation(ctx, ProcessDonationRequest{
		CampaignID:  c.ID,
		AmountCents: 50000,
		Currency:    "KES",
		Method:      donation.MethodMpesa,
		Msisdn:      "12345",
	})
	require.Error(t, err)
	assert.Equal(t, 0, f.initiator.InitiateCalls, "validation failures must not reach the provider")
}

func TestProcessDonation_FractionalAmount_Rejected(t *testing.T) {
	f := setupDonationService(t)
	ctx := context.Background()

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)

	_, err := f.svc.ProcessDonation(ctx, ProcessDonationRequest{
		CampaignID:  c.ID,
		AmountCents: 50050,
		Currency:    "KES",
		Method:      donation.MethodMpesa,
		Msisdn:      "0712345678",
	})
	require.Error(t, err)
	var vErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, f.initiator.InitiateCalls)
}

func TestProcessDonation_BelowMinimum_Rejected(t *testing.T) {
	f := setupDonationService(t)
	ctx := context.Background()

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)

	_, err := f.svc.ProcessDonation(ctx, ProcessDonationRequest{
		CampaignID:  c.ID,
		AmountCents: 500,
		Currency:    "KES",
		Method:      donation.MethodMpesa,
		Msisdn:      "0712345678",
	})
	require.Error(t, err)
	assert.Equal(t, 0, f.initiator.InitiateCalls)
}

func TestProcessDonation_CampaignNotFound(t *testing.T) {
	f := setupDonationService(t)

	_, err := f.svc.ProcessDonation(context.Background(), ProcessDonationRequest{
		CampaignID:  uuid.New(),
		AmountCents: 50000,
		Currency:    "KES",
		Method:      donation.MethodMpesa,
		Msisdn:      "0712345678",
	})
	assert.ErrorIs(t, err, domainErrors.ErrCampaignNotFound)
}

func TestProcessDonation_InactiveCampaign(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	c.Status = campaign.StatusSuspended
	f.campaignRepo.AddCampaign(c)

	_, err := f.svc.ProcessDonation(context.Background(), ProcessDonationRequest{
		CampaignID:  c.ID,
		AmountCents: 50000,
		Currency:    "KES",
		Method:      donation.MethodMpesa,
		Msisdn:      "0712345678",
	})
	assert.ErrorIs(t, err, domainErrors.ErrCampaignInactive)
	assert.Equal(t, 0, f.initiator.InitiateCalls)
}

func TestProcessDonation_UnknownMethod(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)

	_, err := f.svc.ProcessDonation(context.Background(), ProcessDonationRequest{
		CampaignID:  c.ID,
		AmountCents: 50000,
		Currency:    "KES",
		Method:      donation.Method("paypal"),
		Msisdn:      "0712345678",
	})
	assert.ErrorIs(t, err, domainErrors.ErrProviderNotFound)
}

func TestProcessDonation_ProviderFailure_MarksDonationFailed(t *testing.T) {
	f := setupDonationService(t)
	ctx := context.Background()

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	f.initiator.Err = errors.New("daraja unavailable")

	_, err := f.svc.ProcessDonation(ctx, ProcessDonationRequest{
		CampaignID:  c.ID,
		AmountCents: 50000,
		Currency:    "KES",
		Method:      donation.MethodMpesa,
		Msisdn:      "0712345678",
	})
	require.Error(t, err)

	donations, lerr := f.donationRepo.List(ctx, donation.ListFilter{})
	require.NoError(t, lerr)
	require.Len(t, donations, 1)
	assert.Equal(t, donation.StatusFailed, donations[0].Status)
}

// --- AwaitOutcome Tests ---

func TestAwaitOutcome_PendingPendingSucceeded(t *testing.T) {
	f := setupDonationService(t)
	ctx := context.Background()

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	f.checker.Outcomes = []providers.Outcome{
		{State: providers.OutcomePending},
		{State: providers.OutcomePending},
		{State: providers.OutcomeSucceeded, ProviderReference: "QGR7TJ61SV"},
	}

	got, outcome, err := f.svc.AwaitOutcome(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, f.checker.Calls, "stops on the first terminal answer")
	assert.Equal(t, providers.OutcomeSucceeded, outcome.State)
	assert.Equal(t, donation.StatusCompleted, got.Status)
	assert.Equal(t, "QGR7TJ61SV", got.MpesaReceipt)

	// campaign totals credited exactly once
	after := f.campaignRepo.GetCampaignByID(c.ID)
	assert.Equal(t, d.AmountCents, after.RaisedCents)
	assert.Equal(t, 1, after.DonorCount)
}

func TestAwaitOutcome_CancelledByPayer_IsTerminal(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	f.checker.Outcomes = []providers.Outcome{
		{State: providers.OutcomeCancelled, Reason: "payment request cancelled by user"},
	}

	got, outcome, err := f.svc.AwaitOutcome(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.checker.Calls)
	assert.Equal(t, providers.OutcomeCancelled, outcome.State)
	assert.Equal(t, donation.StatusCancelled, got.Status)

	// no credit for a cancelled payment
	after := f.campaignRepo.GetCampaignByID(c.ID)
	assert.Zero(t, after.RaisedCents)
}

func TestAwaitOutcome_Timeout_MarksTimedOut(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	f.checker.Outcomes = []providers.Outcome{{State: providers.OutcomePending}}

	got, _, err := f.svc.AwaitOutcome(context.Background(), d.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrPollTimeout)
	assert.Equal(t, 5, f.checker.Calls)
	assert.Equal(t, donation.StatusTimedOut, got.Status)
}

func TestAwaitOutcome_AlreadyTerminal_NoInquiry(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	d.Status = donation.StatusCompleted
	d.MpesaReceipt = "QGR7TJ61SV"
	f.donationRepo.AddDonation(d)

	got, outcome, err := f.svc.AwaitOutcome(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.checker.Calls)
	assert.Equal(t, providers.OutcomeSucceeded, outcome.State)
	assert.Equal(t, donation.StatusCompleted, got.Status)
}

// --- CheckDonationStatus Tests ---

func TestCheckDonationStatus_PendingLeavesDonationUntouched(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	f.checker.Outcomes = []providers.Outcome{{State: providers.OutcomePending}}

	got, outcome, err := f.svc.CheckDonationStatus(context.Background(), d.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, providers.OutcomePending, outcome.State)
	assert.Equal(t, donation.StatusPending, got.Status)
	assert.Equal(t, 0, f.donationRepo.FinalizeCalls)
}

func TestCheckDonationStatus_TerminalFinalizes(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	f.checker.Outcomes = []providers.Outcome{
		{State: providers.OutcomeSucceeded, ProviderReference: "QGR7TJ61SV"},
	}

	got, outcome, err := f.svc.CheckDonationStatus(context.Background(), d.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, providers.OutcomeSucceeded, outcome.State)
	assert.Equal(t, donation.StatusCompleted, got.Status)
}

func TestCheckDonationStatus_UnknownHandle(t *testing.T) {
	f := setupDonationService(t)

	_, _, err := f.svc.CheckDonationStatus(context.Background(), "ws_CO_unknown")
	assert.ErrorIs(t, err, domainErrors.ErrDonationNotFound)
}

// --- ResolveByHandle Tests ---

func TestResolveByHandle_CallbackConfirmsDonation(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	err := f.svc.ResolveByHandle(context.Background(), d.CheckoutRequestID, providers.Outcome{
		State:             providers.OutcomeSucceeded,
		ProviderReference: "QGR7TJ61SV",
	})
	require.NoError(t, err)

	stored := f.donationRepo.GetDonationByID(d.ID)
	assert.Equal(t, donation.StatusCompleted, stored.Status)
	assert.Equal(t, "QGR7TJ61SV", stored.MpesaReceipt)

	after := f.campaignRepo.GetCampaignByID(c.ID)
	assert.Equal(t, d.AmountCents, after.RaisedCents)
}

func TestResolveByHandle_ReplayedCallbackIsNoOp(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	outcome := providers.Outcome{State: providers.OutcomeSucceeded, ProviderReference: "QGR7TJ61SV"}
	require.NoError(t, f.svc.ResolveByHandle(context.Background(), d.CheckoutRequestID, outcome))
	require.NoError(t, f.svc.ResolveByHandle(context.Background(), d.CheckoutRequestID, outcome))

	// totals credited once despite the replay
	after := f.campaignRepo.GetCampaignByID(c.ID)
	assert.Equal(t, d.AmountCents, after.RaisedCents)
	assert.Equal(t, 1, after.DonorCount)
}

func TestResolveByHandle_PendingOutcomeIgnored(t *testing.T) {
	f := setupDonationService(t)

	c := testutil.ActiveCampaign(t)
	f.campaignRepo.AddCampaign(c)
	d := testutil.PendingMpesaDonation(t, c.ID)
	f.donationRepo.AddDonation(d)

	err := f.svc.ResolveByHandle(context.Background(), d.CheckoutRequestID, providers.Outcome{
		State: providers.OutcomePending,
	})
	require.NoError(t, err)
	assert.Equal(t, donation.StatusPending, f.donationRepo.GetDonationByID(d.ID).Status)
}

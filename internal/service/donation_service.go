package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/campaign"
	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/donation"
	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/infrastructure/observability"
	"github.com/JAMESMUTISYA1/harambeFund/internal/poller"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("harambee/service")

// DonationService orchestrates the donation flow: initiation against the
// payment provider, confirmation via callback or status poll, and crediting
// of campaign totals.
type DonationService struct {
	donationRepo    donation.Repository
	campaignRepo    campaign.Repository
	txManager       TransactionManager
	providerFactory *providers.Factory
	statusCheckers  map[string]providers.StatusChecker
	confirmPoller   poller.Poller
	metrics         *observability.Metrics
}

// DonationServiceOption configures optional collaborators.
type DonationServiceOption func(*DonationService)

// WithMetrics attaches payment metrics to the service.
func WithMetrics(m *observability.Metrics) DonationServiceOption {
	return func(s *DonationService) { s.metrics = m }
}

// NewDonationService creates a new DonationService.
func NewDonationService(
	donationRepo donation.Repository,
	campaignRepo campaign.Repository,
	txManager TransactionManager,
	providerFactory *providers.Factory,
	statusCheckers map[string]providers.StatusChecker,
	confirmPoller poller.Poller,
	opts ...DonationServiceOption,
) *DonationService {
	s := &DonationService{
		donationRepo:    donationRepo,
		campaignRepo:    campaignRepo,
		txManager:       txManager,
		providerFactory: providerFactory,
		statusCheckers:  statusCheckers,
		confirmPoller:   confirmPoller,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessDonationRequest holds the input for initiating a donation.
type ProcessDonationRequest struct {
	CampaignID  uuid.UUID
	AmountCents int64
	Currency    string
	Method      donation.Method
	Msisdn      string
	Email       string
	DonorName   string
}

// ProcessDonationResponse holds the result of initiating a donation.
type ProcessDonationResponse struct {
	Donation          *donation.Donation
	CheckoutRequestID string
	ClientSecret      string
	CustomerMessage   string
}

// ProcessDonation validates the request, persists a pending donation and
// dispatches the payment prompt through the provider for the chosen method.
// All validation happens before the provider is touched: a bad request must
// never cost a network call.
func (s *DonationService) ProcessDonation(ctx context.Context, req ProcessDonationRequest) (*ProcessDonationResponse, error) {
	ctx, span := tracer.Start(ctx, "DonationService.ProcessDonation", trace.WithAttributes(
		attribute.String("campaign.id", req.CampaignID.String()),
		attribute.String("donation.method", string(req.Method)),
	))
	defer span.End()

	c, err := s.campaignRepo.GetByID(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if !c.AcceptsDonations() {
		return nil, domainErrors.ErrCampaignInactive
	}

	if req.AmountCents%100 != 0 {
		return nil, domainErrors.NewValidationError("amount", "must be a whole number of shillings")
	}

	msisdn := req.Msisdn
	if req.Method == donation.MethodMpesa || req.Method == donation.MethodAirtel {
		msisdn, err = providers.NormalizeMSISDN(req.Msisdn)
		if err != nil {
			return nil, err
		}
	}

	provider, breaker, err := s.providerFactory.Get(string(req.Method))
	if err != nil {
		return nil, err
	}

	d, err := donation.NewDonation(newTransactionID(), req.CampaignID, req.AmountCents, req.Currency, req.Method)
	if err != nil {
		return nil, err
	}
	d.Msisdn = msisdn
	d.Email = req.Email
	d.DonorName = req.DonorName

	if err := s.donationRepo.Create(ctx, d); err != nil {
		return nil, err
	}

	result, err := breaker.Execute(func() (*providers.InitiateResult, error) {
		return provider.Initiate(ctx, providers.InitiateRequest{
			TransactionID:    d.TransactionID,
			AmountCents:      d.AmountCents,
			Currency:         d.Currency,
			Msisdn:           msisdn,
			Email:            req.Email,
			AccountReference: d.TransactionID,
			Description:      "Donation to " + c.Title,
			Metadata:         map[string]string{"campaign_id": c.ID.String()},
		})
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.DonationErrors.WithLabelValues(string(req.Method), "initiate").Inc()
		}
		if _, ffErr := s.donationRepo.Finalize(ctx, d.ID, donation.StatusFailed, "", err.Error()); ffErr != nil {
			return nil, fmt.Errorf("record initiation failure: %w", ffErr)
		}
		return nil, fmt.Errorf("initiate payment: %w", err)
	}

	if result.CheckoutRequestID != "" || result.ProviderRef != "" {
		if err := s.donationRepo.SetCheckoutRequestID(ctx, d.ID, result.CheckoutRequestID, result.ProviderRef); err != nil {
			return nil, err
		}
		d.CheckoutRequestID = result.CheckoutRequestID
		d.ProviderRef = result.ProviderRef
	}

	// Card payments confirm client-side against the provider; mobile money
	// confirms asynchronously via callback or status poll.
	if !result.RequiresConfirmation {
		if err := s.finalize(ctx, d, providers.Outcome{
			State:             providers.OutcomeSucceeded,
			ProviderReference: result.ProviderRef,
		}); err != nil {
			return nil, err
		}
	}

	return &ProcessDonationResponse{
		Donation:          d,
		CheckoutRequestID: result.CheckoutRequestID,
		ClientSecret:      result.ClientSecret,
		CustomerMessage:   result.CustomerMessage,
	}, nil
}

// CheckDonationStatus performs a single status inquiry for the donation
// identified by the provider correlation handle. A terminal answer finalizes
// the donation before returning; a pending answer leaves it untouched so the
// client can ask again.
func (s *DonationService) CheckDonationStatus(ctx context.Context, checkoutRequestID string) (*donation.Donation, providers.Outcome, error) {
	d, err := s.donationRepo.GetByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		return nil, providers.Outcome{}, err
	}
	if d.IsTerminal() {
		return d, outcomeFromStatus(d), nil
	}

	checker, ok := s.statusCheckers[string(d.Method)]
	if !ok {
		return nil, providers.Outcome{}, fmt.Errorf("no status oracle for method %q: %w", d.Method, domainErrors.ErrProviderNotFound)
	}

	outcome, err := checker.CheckStatus(ctx, checkoutRequestID)
	if err != nil {
		return nil, providers.Outcome{}, err
	}

	if outcome.Terminal() {
		if err := s.finalize(ctx, d, outcome); err != nil {
			return nil, providers.Outcome{}, err
		}
	}
	return d, outcome, nil
}

// AwaitOutcome blocks until the donation reaches a terminal state or the
// confirmation window closes. On timeout the donation is marked timed out;
// the reconciler picks it up later in case the payer confirmed after the
// window.
func (s *DonationService) AwaitOutcome(ctx context.Context, donationID uuid.UUID) (*donation.Donation, providers.Outcome, error) {
	ctx, span := tracer.Start(ctx, "DonationService.AwaitOutcome", trace.WithAttributes(
		attribute.String("donation.id", donationID.String()),
	))
	defer span.End()

	d, err := s.donationRepo.GetByID(ctx, donationID)
	if err != nil {
		return nil, providers.Outcome{}, err
	}
	if d.IsTerminal() {
		return d, outcomeFromStatus(d), nil
	}
	if d.CheckoutRequestID == "" {
		return nil, providers.Outcome{}, domainErrors.NewValidationError("donation", "has no provider correlation handle")
	}

	checker, ok := s.statusCheckers[string(d.Method)]
	if !ok {
		return nil, providers.Outcome{}, fmt.Errorf("no status oracle for method %q: %w", d.Method, domainErrors.ErrProviderNotFound)
	}

	outcome, err := s.confirmPoller.Wait(ctx, func(ctx context.Context) (providers.Outcome, error) {
		return checker.CheckStatus(ctx, d.CheckoutRequestID)
	})
	switch {
	case err == nil:
		if s.metrics != nil {
			s.metrics.PollOutcomes.WithLabelValues(string(d.Method), string(outcome.State)).Inc()
		}
		if ferr := s.finalize(ctx, d, outcome); ferr != nil {
			return nil, providers.Outcome{}, ferr
		}
		return d, outcome, nil
	case errors.Is(err, domainErrors.ErrPollTimeout):
		if s.metrics != nil {
			s.metrics.PollOutcomes.WithLabelValues(string(d.Method), "timeout").Inc()
		}
		if _, ferr := s.donationRepo.Finalize(ctx, d.ID, donation.StatusTimedOut, "", "confirmation window elapsed"); ferr != nil {
			return nil, providers.Outcome{}, ferr
		}
		d.Status = donation.StatusTimedOut
		return d, outcome, err
	default:
		return nil, providers.Outcome{}, err
	}
}

// ResolveByHandle applies a provider-confirmed outcome (typically from the
// asynchronous callback) to the donation holding the correlation handle.
// Replays and races with the poller are no-ops.
func (s *DonationService) ResolveByHandle(ctx context.Context, checkoutRequestID string, outcome providers.Outcome) error {
	d, err := s.donationRepo.GetByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		return err
	}
	if !outcome.Terminal() {
		return nil
	}
	return s.finalize(ctx, d, outcome)
}

// GetDonation returns a donation by ID.
func (s *DonationService) GetDonation(ctx context.Context, id uuid.UUID) (*donation.Donation, error) {
	return s.donationRepo.GetByID(ctx, id)
}

// ListDonations lists donations with optional filters.
func (s *DonationService) ListDonations(ctx context.Context, f donation.ListFilter) ([]*donation.Donation, error) {
	return s.donationRepo.List(ctx, f)
}

// finalize freezes the donation in the status matching the outcome and, for
// a successful payment, credits the campaign totals in the same transaction.
// A donation that is already terminal absorbs the outcome silently.
func (s *DonationService) finalize(ctx context.Context, d *donation.Donation, outcome providers.Outcome) error {
	status, receipt, reason := statusFromOutcome(outcome)

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		applied, err := s.donationRepo.Finalize(txCtx, d.ID, status, receipt, reason)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}

		d.Status = status
		d.MpesaReceipt = receipt
		d.FailureReason = reason

		if s.metrics != nil {
			s.metrics.DonationsTotal.WithLabelValues(string(d.Method), string(status)).Inc()
			s.metrics.DonationDuration.WithLabelValues(string(d.Method), string(status)).Observe(time.Since(d.CreatedAt).Seconds())
		}

		if status == donation.StatusCompleted {
			return s.campaignRepo.RecordDonation(txCtx, d.CampaignID, d.AmountCents)
		}
		return nil
	})
}

// statusFromOutcome maps a provider outcome to the donation state machine.
func statusFromOutcome(outcome providers.Outcome) (donation.DonationStatus, string, string) {
	switch outcome.State {
	case providers.OutcomeSucceeded:
		return donation.StatusCompleted, outcome.ProviderReference, ""
	case providers.OutcomeCancelled:
		return donation.StatusCancelled, "", outcome.Reason
	default:
		return donation.StatusFailed, "", outcome.Reason
	}
}

// outcomeFromStatus reconstructs the outcome for an already-terminal
// donation, so repeated status checks give consistent answers.
func outcomeFromStatus(d *donation.Donation) providers.Outcome {
	switch d.Status {
	case donation.StatusCompleted:
		return providers.Outcome{State: providers.OutcomeSucceeded, ProviderReference: d.MpesaReceipt}
	case donation.StatusCancelled:
		return providers.Outcome{State: providers.OutcomeCancelled, Reason: d.FailureReason}
	case donation.StatusFailed, donation.StatusTimedOut:
		return providers.Outcome{State: providers.OutcomeFailed, Reason: d.FailureReason}
	default:
		return providers.Outcome{State: providers.OutcomePending}
	}
}

// newTransactionID builds the merchant reference attached to every donation.
func newTransactionID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("TXN%s%s", time.Now().UTC().Format("20060102150405"), suffix)
}

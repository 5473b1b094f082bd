package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/campaign"
	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/donation"
	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/google/uuid"
)

// --- Campaign Repository Mock ---

// MockCampaignRepository is a mock implementation of campaign.Repository.
type MockCampaignRepository struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*campaign.Campaign

	RecordDonationCalls int

	CreateFunc         func(ctx context.Context, c *campaign.Campaign) error
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error)
	ListFunc           func(ctx context.Context, filter campaign.ListFilter) ([]*campaign.Campaign, error)
	RecordDonationFunc func(ctx context.Context, id uuid.UUID, amountCents int64) error
}

func NewMockCampaignRepository() *MockCampaignRepository {
	return &MockCampaignRepository{
		campaigns: make(map[uuid.UUID]*campaign.Campaign),
	}
}

func (m *MockCampaignRepository) AddCampaign(c *campaign.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
}

func (m *MockCampaignRepository) GetCampaignByID(id uuid.UUID) *campaign.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.campaigns[id]
}

func (m *MockCampaignRepository) Create(ctx context.Context, c *campaign.Campaign) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
	return nil
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, domainErrors.ErrCampaignNotFound
	}
	return c, nil
}

func (m *MockCampaignRepository) List(ctx context.Context, filter campaign.ListFilter) ([]*campaign.Campaign, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*campaign.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && c.Category != *filter.Category {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (m *MockCampaignRepository) RecordDonation(ctx context.Context, id uuid.UUID, amountCents int64) error {
	if m.RecordDonationFunc != nil {
		return m.RecordDonationFunc(ctx, id, amountCents)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domainErrors.ErrCampaignNotFound
	}
	m.RecordDonationCalls++
	c.RaisedCents += amountCents
	c.DonorCount++
	return nil
}

// --- Donation Repository Mock ---

// MockDonationRepository is a mock implementation of donation.Repository.
type MockDonationRepository struct {
	mu        sync.Mutex
	donations map[uuid.UUID]*donation.Donation

	FinalizeCalls int

	CreateFunc   func(ctx context.Context, d *donation.Donation) error
	GetByIDFunc  func(ctx context.Context, id uuid.UUID) (*donation.Donation, error)
	FinalizeFunc func(ctx context.Context, id uuid.UUID, status donation.DonationStatus, mpesaReceipt, failureReason string) (bool, error)
}

func NewMockDonationRepository() *MockDonationRepository {
	return &MockDonationRepository{
		donations: make(map[uuid.UUID]*donation.Donation),
	}
}

func (m *MockDonationRepository) AddDonation(d *donation.Donation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donations[d.ID] = d
}

func (m *MockDonationRepository) GetDonationByID(id uuid.UUID) *donation.Donation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.donations[id]
}

func (m *MockDonationRepository) Create(ctx context.Context, d *donation.Donation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.donations {
		if existing.TransactionID == d.TransactionID {
			return domainErrors.ErrDuplicateTransaction
		}
	}
	m.donations[d.ID] = d
	return nil
}

func (m *MockDonationRepository) GetByID(ctx context.Context, id uuid.UUID) (*donation.Donation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok {
		return nil, domainErrors.ErrDonationNotFound
	}
	return d, nil
}

func (m *MockDonationRepository) GetByTransactionID(ctx context.Context, transactionID string) (*donation.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.donations {
		if d.TransactionID == transactionID {
			return d, nil
		}
	}
	return nil, domainErrors.ErrDonationNotFound
}

func (m *MockDonationRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*donation.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.donations {
		if d.CheckoutRequestID == checkoutRequestID && checkoutRequestID != "" {
			return d, nil
		}
	}
	return nil, domainErrors.ErrDonationNotFound
}

func (m *MockDonationRepository) SetCheckoutRequestID(ctx context.Context, id uuid.UUID, checkoutRequestID, providerRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok {
		return domainErrors.ErrDonationNotFound
	}
	d.CheckoutRequestID = checkoutRequestID
	d.ProviderRef = providerRef
	return nil
}

func (m *MockDonationRepository) List(ctx context.Context, filter donation.ListFilter) ([]*donation.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*donation.Donation, 0, len(m.donations))
	for _, d := range m.donations {
		if filter.CampaignID != nil && d.CampaignID != *filter.CampaignID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.Method != nil && d.Method != *filter.Method {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

func (m *MockDonationRepository) Finalize(ctx context.Context, id uuid.UUID, status donation.DonationStatus, mpesaReceipt, failureReason string) (bool, error) {
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, id, status, mpesaReceipt, failureReason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok {
		return false, domainErrors.ErrDonationNotFound
	}
	m.FinalizeCalls++
	if d.Status != donation.StatusPending {
		return false, nil
	}
	d.Status = status
	d.MpesaReceipt = mpesaReceipt
	d.FailureReason = failureReason
	now := time.Now()
	d.UpdatedAt = now
	d.CompletedAt = &now
	return true, nil
}

func (m *MockDonationRepository) ListStalePending(ctx context.Context, method donation.Method, olderThan time.Duration, limit int) ([]*donation.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var result []*donation.Donation
	for _, d := range m.donations {
		if d.Status != donation.StatusPending || d.Method != method {
			continue
		}
		if d.CheckoutRequestID == "" || d.UpdatedAt.After(cutoff) {
			continue
		}
		result = append(result, d)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// --- Transaction Manager Mock ---

// MockTransactionManager runs the function without a real transaction.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Provider Mocks ---

// MockInitiator is a scriptable payment initiator.
type MockInitiator struct {
	mu            sync.Mutex
	ProviderName  string
	Result        *providers.InitiateResult
	Err           error
	InitiateCalls int
	LastRequest   providers.InitiateRequest
}

func NewMockInitiator(name string) *MockInitiator {
	return &MockInitiator{
		ProviderName: name,
		Result: &providers.InitiateResult{
			CheckoutRequestID:    "ws_CO_" + uuid.New().String(),
			CustomerMessage:      "Success. Request accepted for processing",
			RequiresConfirmation: true,
		},
	}
}

func (m *MockInitiator) Name() string { return m.ProviderName }

func (m *MockInitiator) Initiate(ctx context.Context, req providers.InitiateRequest) (*providers.InitiateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitiateCalls++
	m.LastRequest = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// MockStatusChecker replays a scripted sequence of outcomes, repeating the
// last entry once exhausted. The reconciler queries it from concurrent
// goroutines, so all state access is guarded.
type MockStatusChecker struct {
	mu       sync.Mutex
	Outcomes []providers.Outcome
	Errs     []error
	Calls    int
}

func (m *MockStatusChecker) CheckStatus(ctx context.Context, checkoutRequestID string) (providers.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.Calls
	m.Calls++
	if len(m.Outcomes) == 0 {
		return providers.Outcome{State: providers.OutcomePending}, nil
	}
	if i >= len(m.Outcomes) {
		i = len(m.Outcomes) - 1
	}
	var err error
	if i < len(m.Errs) {
		err = m.Errs[i]
	}
	return m.Outcomes[i], err
}

package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test doubles ---

type memoryTokenCache struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemoryTokenCache() *memoryTokenCache {
	return &memoryTokenCache{tokens: make(map[string]string)}
}

func (c *memoryTokenCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[key], nil
}

func (c *memoryTokenCache) Set(_ context.Context, key, token string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = token
	return nil
}

func (c *memoryTokenCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
	return nil
}

type darajaStub struct {
	mu          sync.Mutex
	tokenCalls  int
	pushCalls   int
	queryCalls  int
	lastPush    map[string]any
	lastQuery   map[string]any
	tokenStatus   int
	lastTokenAuth string
	pushHandler   func(w http.ResponseWriter)
	queryFn     func(w http.ResponseWriter)
	rejectToken string // when set, bearer tokens equal to this get a 401
}

func newDarajaStub() *darajaStub {
	return &darajaStub{tokenStatus: http.StatusOK}
}

func (s *darajaStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.tokenCalls++
		n := s.tokenCalls
		status := s.tokenStatus
		s.lastTokenAuth = r.Header.Get("Authorization")
		s.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": tokenForCall(n)})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.pushCalls++
		reject := s.rejectToken
		handler := s.pushHandler
		s.mu.Unlock()

		if reject != "" && r.Header.Get("Authorization") == "Bearer "+reject {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.lastPush = body
		s.mu.Unlock()

		if handler != nil {
			handler(w)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"MerchantRequestID":   "29115-34620561-1",
			"CheckoutRequestID":   "ws_CO_191220191020363925",
			"ResponseCode":        "0",
			"ResponseDescription": "Success. Request accepted for processing",
			"CustomerMessage":     "Success. Request accepted for processing",
		})
	})
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.queryCalls++
		fn := s.queryFn
		s.mu.Unlock()

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.lastQuery = body
		s.mu.Unlock()

		if fn != nil {
			fn(w)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode": "0",
			"ResultCode":   "0",
			"ResultDesc":   "The service request is processed successfully.",
		})
	})
	return mux
}

func tokenForCall(n int) string {
	if n == 1 {
		return "token-first"
	}
	return "token-fresh"
}

func newTestClient(t *testing.T, stub *darajaStub, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	cfg := Config{
		ConsumerKey:    "test-key",
		ConsumerSecret: "test-secret",
		ShortCode:      "174379",
		Passkey:        "test-passkey",
		CallbackURL:    "https://harambee.example/api/v1/payments/mpesa/callback",
		BaseURL:        srv.URL,
	}
	fixed := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	return NewClient(cfg, zerolog.Nop(), opts...), srv
}

func validPush() providers.InitiateRequest {
	return providers.InitiateRequest{
		TransactionID:    "TXN-1",
		AmountCents:      50000,
		Currency:         "KES",
		Msisdn:           "0712345678",
		AccountReference: "campaign-42",
		Description:      "Donation for Mary's surgery",
	}
}

// --- Tests ---

func TestInitiate_SendsSignedRequest(t *testing.T) {
	stub := newDarajaStub()
	client, _ := newTestClient(t, stub)

	result, err := client.Initiate(context.Background(), validPush())
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_191220191020363925", result.CheckoutRequestID)
	assert.True(t, result.RequiresConfirmation)

	// Amount is whole shillings, phone is normalized, password matches
	// base64(shortCode + passkey + timestamp).
	assert.Equal(t, float64(500), stub.lastPush["Amount"])
	assert.Equal(t, "254712345678", stub.lastPush["PhoneNumber"])
	assert.Equal(t, "254712345678", stub.lastPush["PartyA"])
	assert.Equal(t, "174379", stub.lastPush["PartyB"])
	assert.Equal(t, "CustomerPayBillOnline", stub.lastPush["TransactionType"])
	assert.Equal(t, "20250314150926", stub.lastPush["Timestamp"])
	assert.Equal(t,
		base64.StdEncoding.EncodeToString([]byte("174379test-passkey20250314150926")),
		stub.lastPush["Password"],
	)
	// Account reference is truncated to the provider's bound.
	ref, _ := stub.lastPush["AccountReference"].(string)
	assert.LessOrEqual(t, len(ref), accountRefMaxLen)

	// Token exchange uses Basic auth over the configured credentials.
	assert.Equal(t,
		"Basic "+base64.StdEncoding.EncodeToString([]byte("test-key:test-secret")),
		stub.lastTokenAuth,
	)
}

func TestInitiate_InvalidInput_NoNetworkCall(t *testing.T) {
	stub := newDarajaStub()
	client, _ := newTestClient(t, stub)

	tests := []struct {
		name   string
		mutate func(*providers.InitiateRequest)
	}{
		{"zero amount", func(r *providers.InitiateRequest) { r.AmountCents = 0 }},
		{"negative amount", func(r *providers.InitiateRequest) { r.AmountCents = -100 }},
		{"fractional shillings", func(r *providers.InitiateRequest) { r.AmountCents = 50050 }},
		{"bad phone", func(r *providers.InitiateRequest) { r.Msisdn = "12" }},
		{"empty reference", func(r *providers.InitiateRequest) { r.AccountReference = "" }},
		{"empty description", func(r *providers.InitiateRequest) { r.Description = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validPush()
			tt.mutate(&req)

			_, err := client.Initiate(context.Background(), req)
			require.Error(t, err)

			var ve *domainErrors.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}

	// Validation failures must never reach the token supplier.
	assert.Equal(t, 0, stub.tokenCalls)
	assert.Equal(t, 0, stub.pushCalls)
}

func TestInitiate_TokenEndpointFailure(t *testing.T) {
	stub := newDarajaStub()
	stub.tokenStatus = http.StatusForbidden
	client, _ := newTestClient(t, stub)

	_, err := client.Initiate(context.Background(), validPush())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrProviderAuth)
	assert.Equal(t, 0, stub.pushCalls)
}

func TestInitiate_ProviderRejection(t *testing.T) {
	stub := newDarajaStub()
	stub.pushHandler = func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode":        "1",
			"ResponseDescription": "Invalid PhoneNumber",
		})
	}
	client, _ := newTestClient(t, stub)

	_, err := client.Initiate(context.Background(), validPush())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrProviderRequest)
}

func TestInitiate_MalformedResponse(t *testing.T) {
	stub := newDarajaStub()
	stub.pushHandler = func(w http.ResponseWriter) {
		w.Write([]byte("<html>gateway error</html>"))
	}
	client, _ := newTestClient(t, stub)

	_, err := client.Initiate(context.Background(), validPush())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrProviderProtocol)
}

func TestCheckStatus_Succeeded(t *testing.T) {
	stub := newDarajaStub()
	client, _ := newTestClient(t, stub)

	out, err := client.CheckStatus(context.Background(), "ws_CO_191220191020363925")
	require.NoError(t, err)
	assert.Equal(t, providers.OutcomeSucceeded, out.State)
	assert.NotEmpty(t, out.Raw)

	// The query is signed exactly like the push.
	assert.Equal(t, "20250314150926", stub.lastQuery["Timestamp"])
	assert.Equal(t,
		base64.StdEncoding.EncodeToString([]byte("174379test-passkey20250314150926")),
		stub.lastQuery["Password"],
	)
	assert.Equal(t, "ws_CO_191220191020363925", stub.lastQuery["CheckoutRequestID"])
}

func TestCheckStatus_StillProcessingMapsToPending(t *testing.T) {
	stub := newDarajaStub()
	stub.queryFn = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"requestId":    "12345-67890-1",
			"errorCode":    "500.001.1001",
			"errorMessage": "The transaction is being processed",
		})
	}
	client, _ := newTestClient(t, stub)

	out, err := client.CheckStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, providers.OutcomePending, out.State)
	assert.False(t, out.Terminal())
}

func TestCheckStatus_CancelledByPayer(t *testing.T) {
	stub := newDarajaStub()
	stub.queryFn = func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode": "0",
			"ResultCode":   "1032",
			"ResultDesc":   "Request cancelled by user",
		})
	}
	client, _ := newTestClient(t, stub)

	out, err := client.CheckStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, providers.OutcomeCancelled, out.State)
	assert.True(t, out.Terminal())
}

func TestCheckStatus_EmptyHandle(t *testing.T) {
	stub := newDarajaStub()
	client, _ := newTestClient(t, stub)

	_, err := client.CheckStatus(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, 0, stub.tokenCalls)
}

func TestTokenCache_ReusedAcrossCalls(t *testing.T) {
	stub := newDarajaStub()
	client, _ := newTestClient(t, stub, WithTokenCache(newMemoryTokenCache()))

	_, err := client.Initiate(context.Background(), validPush())
	require.NoError(t, err)
	_, err = client.CheckStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)

	assert.Equal(t, 1, stub.tokenCalls)
}

func TestTokenCache_DroppedOn401(t *testing.T) {
	stub := newDarajaStub()
	stub.rejectToken = "token-first"
	client, _ := newTestClient(t, stub, WithTokenCache(newMemoryTokenCache()))

	result, err := client.Initiate(context.Background(), validPush())
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_191220191020363925", result.CheckoutRequestID)

	// First token rejected with 401, cache invalidated, one re-auth, retry.
	assert.Equal(t, 2, stub.tokenCalls)
	assert.Equal(t, 2, stub.pushCalls)
}

func TestNoTokenCache_ReauthenticatesPerCall(t *testing.T) {
	stub := newDarajaStub()
	client, _ := newTestClient(t, stub)

	_, err := client.Initiate(context.Background(), validPush())
	require.NoError(t, err)
	_, err = client.CheckStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)

	assert.Equal(t, 2, stub.tokenCalls)
}

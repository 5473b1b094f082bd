package mpesa

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// SandboxBaseURL is the Daraja sandbox endpoint.
const SandboxBaseURL = "https://sandbox.safaricom.co.ke"

// Config holds the Daraja credentials and endpoints. All fields except
// BaseURL and TokenTTL are required; config validation fails startup when
// they are missing so malformed signed requests are never produced.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	BaseURL        string
	TokenTTL       time.Duration
}

// TokenCache stores short-lived access tokens keyed by a credential
// fingerprint. A Get miss is ("", nil).
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Client talks to the Daraja API. It implements both the payment initiation
// and the status-oracle side of the STK flow.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     TokenCache
	tokenKey   string
	sf         singleflight.Group
	logger     zerolog.Logger
	now        func() time.Time
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenCache enables access-token caching. Without a cache every call
// re-authenticates, which is correct but wasteful.
func WithTokenCache(tc TokenCache) Option {
	return func(c *Client) { c.tokens = tc }
}

// WithClock overrides the timestamp source used for request signing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(cfg Config, logger zerolog.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxBaseURL
	}
	if cfg.TokenTTL <= 0 {
		// Daraja tokens last an hour; expire ours early so a cached token
		// is never presented moments before the provider rejects it.
		cfg.TokenTTL = 50 * time.Minute
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokenKey:   credentialFingerprint(cfg.ConsumerKey, cfg.ConsumerSecret),
		logger:     logger,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string { return "mpesa" }

func credentialFingerprint(key, secret string) string {
	sum := sha256.Sum256([]byte(key + ":" + secret))
	return "mpesa:token:" + hex.EncodeToString(sum[:8])
}

// accessToken returns a bearer token, from the cache when possible.
// Concurrent refreshes for the same credentials are collapsed into a
// single provider round trip.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.tokens != nil {
		token, err := c.tokens.Get(ctx, c.tokenKey)
		if err != nil {
			c.logger.Warn().Err(err).Msg("token cache read failed, re-authenticating")
		} else if token != "" {
			return token, nil
		}
	}

	v, err, _ := c.sf.Do(c.tokenKey, func() (any, error) {
		token, err := c.fetchToken(ctx)
		if err != nil {
			return "", err
		}
		if c.tokens != nil {
			if err := c.tokens.Set(ctx, c.tokenKey, token, c.cfg.TokenTTL); err != nil {
				c.logger.Warn().Err(err).Msg("token cache write failed")
			}
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w: %v", domainErrors.ErrProviderAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d: %w", resp.StatusCode, domainErrors.ErrProviderAuth)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token response: %w", domainErrors.ErrProviderProtocol)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token: %w", domainErrors.ErrProviderProtocol)
	}
	return out.AccessToken, nil
}

func (c *Client) invalidateToken(ctx context.Context) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Delete(ctx, c.tokenKey); err != nil {
		c.logger.Warn().Err(err).Msg("token cache invalidation failed")
	}
}

// call posts a signed JSON payload to a Daraja endpoint and returns the
// status code plus raw body. A 401 drops the cached token and retries the
// request once with a fresh one.
func (c *Client) call(ctx context.Context, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	status, respBody, err := c.doOnce(ctx, path, body)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusUnauthorized {
		c.invalidateToken(ctx)
		status, respBody, err = c.doOnce(ctx, path, body)
		if err != nil {
			return 0, nil, err
		}
	}
	return status, respBody, nil
}

func (c *Client) doOnce(ctx context.Context, path string, body []byte) (int, []byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w: %v", path, domainErrors.ErrProviderRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w: %v", domainErrors.ErrProviderRequest, err)
	}
	return resp.StatusCode, respBody, nil
}

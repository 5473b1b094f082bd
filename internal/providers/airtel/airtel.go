package airtel

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/google/uuid"
)

// Provider is a stand-in for the Airtel Money API. The real integration is
// out of scope; this adapter accepts the payment immediately so the rest of
// the donation flow can be exercised end to end.
type Provider struct {
	latency time.Duration
}

type Option func(*Provider)

func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

func New(opts ...Option) *Provider {
	p := &Provider{latency: 100 * time.Millisecond}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Provider) Name() string { return "airtel" }

func (p *Provider) Initiate(ctx context.Context, req providers.InitiateRequest) (*providers.InitiateResult, error) {
	if req.AmountCents <= 0 {
		return nil, domainErrors.NewValidationError("amount", "must be greater than 0")
	}
	if _, err := providers.NormalizeMSISDN(req.Msisdn); err != nil {
		return nil, err
	}

	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &providers.InitiateResult{
		ProviderRef:     fmt.Sprintf("AIR%s", uuid.New().String()[:13]),
		CustomerMessage: "Payment initiated successfully",
	}, nil
}

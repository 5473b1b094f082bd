package stripepay

import (
	"context"
	"fmt"
	"strings"

	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

// Provider creates Stripe payment intents for card donations. Unlike the
// mobile-money rail there is no push/poll cycle: the intent's client secret
// goes back to the browser and Stripe's own JS completes the payment.
type Provider struct {
	logger zerolog.Logger
}

func New(secretKey string, logger zerolog.Logger) *Provider {
	stripe.Key = secretKey
	return &Provider{logger: logger}
}

func (p *Provider) Name() string { return "stripe" }

func (p *Provider) Initiate(ctx context.Context, req providers.InitiateRequest) (*providers.InitiateResult, error) {
	if req.AmountCents <= 0 {
		return nil, domainErrors.NewValidationError("amount", "must be greater than 0")
	}

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.AddMetadata("transaction_id", req.TransactionID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w: %v", domainErrors.ErrProviderRequest, err)
	}

	p.logger.Info().
		Str("payment_intent", pi.ID).
		Int64("amount", req.AmountCents).
		Msg("stripe payment intent created")

	return &providers.InitiateResult{
		ProviderRef:     pi.ID,
		ClientSecret:    pi.ClientSecret,
		CustomerMessage: "Complete the card payment to finish your donation",
	}, nil
}

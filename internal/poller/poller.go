// Package poller bridges the asynchronous, phone-initiated confirmation of
// a mobile-money payment into a synchronous call: it repeatedly asks the
// status oracle about a correlation handle until a terminal outcome is
// observed, the attempt budget runs out, or the caller cancels.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/avast/retry-go/v4"
)

const (
	// DefaultMaxAttempts and DefaultInterval give the reference ~60 second
	// confirmation window: 30 attempts, 2 seconds apart.
	DefaultMaxAttempts = 30
	DefaultInterval    = 2 * time.Second
)

// errStillPending marks a poll iteration that saw no terminal state yet.
var errStillPending = errors.New("payment still pending")

// StatusFunc performs one status inquiry for a correlation handle.
type StatusFunc func(ctx context.Context) (providers.Outcome, error)

// Poller runs a fixed-interval confirmation loop.
type Poller struct {
	MaxAttempts uint
	Interval    time.Duration
}

// New returns a poller with the reference attempt budget and interval.
func New() Poller {
	return Poller{MaxAttempts: DefaultMaxAttempts, Interval: DefaultInterval}
}

// Wait invokes check until it reports a terminal outcome or the attempt
// budget is exhausted. Transient status-check errors are retried within the
// same budget rather than failing on the first blip. Cancelling ctx stops
// the loop: no further inquiries are issued after cancellation.
//
// The returned error is nil for any terminal outcome the provider reported
// (including cancellation and failure, which the caller reads from the
// outcome state). ErrPollTimeout means the budget ran out while the payment
// was still pending: the true outcome is unknown, not negative, and the
// payer should be advised to check their phone.
func (p Poller) Wait(ctx context.Context, check StatusFunc) (providers.Outcome, error) {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = DefaultMaxAttempts
	}

	outcome, err := retry.DoWithData(
		func() (providers.Outcome, error) {
			out, err := check(ctx)
			if err != nil {
				return providers.Outcome{}, err
			}
			if !out.Terminal() {
				return out, errStillPending
			}
			return out, nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return outcome, nil
	}

	if ctx.Err() != nil {
		return providers.Outcome{}, ctx.Err()
	}
	if errors.Is(err, errStillPending) {
		return providers.Outcome{State: providers.OutcomePending},
			fmt.Errorf("no confirmation after %d attempts: %w", attempts, domainErrors.ErrPollTimeout)
	}
	return providers.Outcome{}, fmt.Errorf("status check exhausted retries: %w", err)
}

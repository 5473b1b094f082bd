// Package worker contains the background reconciler that resumes donations
// whose confirmation poll died with the process that started it. The payer
// may well have confirmed after the API gave up, so the money must still be
// credited.
package worker

import (
	"context"
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/donation"
	"github.com/JAMESMUTISYA1/harambeFund/internal/infrastructure/observability"
	"github.com/JAMESMUTISYA1/harambeFund/internal/service"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config tunes one reconciliation sweep.
type Config struct {
	// StaleAfter is how long a pending donation must sit untouched before
	// the reconciler picks it up.
	StaleAfter time.Duration
	// BatchSize caps how many donations one sweep loads.
	BatchSize int
	// Concurrency bounds the parallel status inquiries per sweep.
	Concurrency int
}

// Reconciler resolves stale pending mobile-money donations by asking the
// provider for their final status.
type Reconciler struct {
	donationRepo    donation.Repository
	donationService *service.DonationService
	cfg             Config
	metrics         *observability.Metrics
	logger          zerolog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(
	donationRepo donation.Repository,
	donationService *service.DonationService,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Reconciler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Reconciler{
		donationRepo:    donationRepo,
		donationService: donationService,
		cfg:             cfg,
		metrics:         metrics,
		logger:          logger,
	}
}

// Run sweeps on the given interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := r.Sweep(ctx); err != nil {
			r.logger.Error().Err(err).Msg("reconciliation sweep failed")
		}
	}
}

// Sweep runs one reconciliation pass: each stale pending donation gets a
// single status inquiry. Terminal answers finalize the donation; pending
// ones stay for the next sweep.
func (r *Reconciler) Sweep(ctx context.Context) error {
	stale, err := r.donationRepo.ListStalePending(ctx, donation.MethodMpesa, r.cfg.StaleAfter, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	r.logger.Info().Int("count", len(stale)).Msg("reconciling stale pending donations")

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, d := range stale {
		g.Go(func() error {
			resolved, outcome, err := r.donationService.CheckDonationStatus(gCtx, d.CheckoutRequestID)
			if err != nil {
				r.logger.Warn().Err(err).
					Str("donation_id", d.ID.String()).
					Str("checkout_request_id", d.CheckoutRequestID).
					Msg("status inquiry failed")
				return nil
			}
			if !outcome.Terminal() {
				return nil
			}
			if r.metrics != nil {
				r.metrics.ReconciledDonations.WithLabelValues(string(resolved.Status)).Inc()
			}
			r.logger.Info().
				Str("donation_id", d.ID.String()).
				Str("status", string(resolved.Status)).
				Msg("stale donation resolved")
			return nil
		})
	}
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JAMESMUTISYA1/harambeFund/internal/bootstrap"
	infraRedis "github.com/JAMESMUTISYA1/harambeFund/internal/infrastructure/redis"
	"github.com/JAMESMUTISYA1/harambeFund/internal/poller"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers/mpesa"
	"github.com/JAMESMUTISYA1/harambeFund/internal/repository/postgres"
	"github.com/JAMESMUTISYA1/harambeFund/internal/service"
	"github.com/JAMESMUTISYA1/harambeFund/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "harambee-worker", "harambee_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	campaignRepo := postgres.NewCampaignRepository(app.Pool)
	donationRepo := postgres.NewDonationRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Provider: the reconciler only needs the M-Pesa status oracle ---
	mpesaClient := mpesa.NewClient(mpesa.Config{
		ConsumerKey:    app.Config.Mpesa.ConsumerKey,
		ConsumerSecret: app.Config.Mpesa.ConsumerSecret,
		ShortCode:      app.Config.Mpesa.ShortCode,
		Passkey:        app.Config.Mpesa.Passkey,
		CallbackURL:    app.Config.Mpesa.CallbackURL,
		BaseURL:        app.Config.Mpesa.BaseURL,
		TokenTTL:       app.Config.Mpesa.TokenTTL,
	}, app.Logger, mpesa.WithTokenCache(infraRedis.NewTokenCache(app.Redis)))

	donationService := service.NewDonationService(
		donationRepo,
		campaignRepo,
		txManager,
		providers.NewFactory(mpesaClient),
		map[string]providers.StatusChecker{mpesaClient.Name(): mpesaClient},
		poller.Poller{
			MaxAttempts: app.Config.Poll.MaxAttempts,
			Interval:    app.Config.Poll.Interval,
		},
		service.WithMetrics(app.Metrics),
	)

	reconciler := worker.NewReconciler(donationRepo, donationService, worker.Config{
		StaleAfter:  app.Config.Worker.StaleAfter,
		BatchSize:   app.Config.Worker.BatchSize,
		Concurrency: app.Config.Worker.Concurrency,
	}, app.Metrics, app.Logger)

	app.Logger.Info().
		Dur("interval", app.Config.Worker.Interval).
		Dur("stale_after", app.Config.Worker.StaleAfter).
		Msg("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return reconciler.Run(gCtx, app.Config.Worker.Interval)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

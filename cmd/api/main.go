package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JAMESMUTISYA1/harambeFund/internal/bootstrap"
	"github.com/JAMESMUTISYA1/harambeFund/internal/controller"
	infraRedis "github.com/JAMESMUTISYA1/harambeFund/internal/infrastructure/redis"
	"github.com/JAMESMUTISYA1/harambeFund/internal/poller"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers/airtel"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers/mpesa"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers/stripepay"
	"github.com/JAMESMUTISYA1/harambeFund/internal/repository/postgres"
	"github.com/JAMESMUTISYA1/harambeFund/internal/service"
	"github.com/sony/gobreaker/v2"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "harambee-api", "harambee")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	campaignRepo := postgres.NewCampaignRepository(app.Pool)
	donationRepo := postgres.NewDonationRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Payment providers ---
	mpesaClient := mpesa.NewClient(mpesa.Config{
		ConsumerKey:    app.Config.Mpesa.ConsumerKey,
		ConsumerSecret: app.Config.Mpesa.ConsumerSecret,
		ShortCode:      app.Config.Mpesa.ShortCode,
		Passkey:        app.Config.Mpesa.Passkey,
		CallbackURL:    app.Config.Mpesa.CallbackURL,
		BaseURL:        app.Config.Mpesa.BaseURL,
		TokenTTL:       app.Config.Mpesa.TokenTTL,
	}, app.Logger, mpesa.WithTokenCache(infraRedis.NewTokenCache(app.Redis)))

	providerFactory := providers.NewFactory(
		mpesaClient,
		airtel.New(),
		stripepay.New(app.Config.Stripe.SecretKey, app.Logger),
	)
	providerFactory.SetStateChangeHook(func(name string, _, to gobreaker.State) {
		app.Metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	})
	statusCheckers := map[string]providers.StatusChecker{
		mpesaClient.Name(): mpesaClient,
	}

	// --- Services ---
	campaignService := service.NewCampaignService(campaignRepo)
	donationService := service.NewDonationService(
		donationRepo,
		campaignRepo,
		txManager,
		providerFactory,
		statusCheckers,
		poller.Poller{
			MaxAttempts: app.Config.Poll.MaxAttempts,
			Interval:    app.Config.Poll.Interval,
		},
		service.WithMetrics(app.Metrics),
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:            app.Pool,
		RedisClient:     app.Redis,
		CampaignService: campaignService,
		DonationService: donationService,
		Metrics:         app.Metrics,
		CORSConfig:      app.Config.Server.CORS,
		Logger:          app.Logger,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}

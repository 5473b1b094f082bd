package controller

import (
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/infrastructure/config"
	"github.com/JAMESMUTISYA1/harambeFund/internal/infrastructure/observability"
	customMW "github.com/JAMESMUTISYA1/harambeFund/internal/middleware"
	"github.com/JAMESMUTISYA1/harambeFund/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Pool            *pgxpool.Pool
	RedisClient     *redis.Client
	CampaignService *service.CampaignService
	DonationService *service.DonationService
	Metrics         *observability.Metrics
	CORSConfig      config.CORSConfig
	Logger          zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	campaignH := NewCampaignController(deps.CampaignService)
	donationH := NewDonationController(deps.DonationService, deps.Logger)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Campaigns
		r.Post("/campaigns", campaignH.Create)
		r.Get("/campaigns", campaignH.List)
		r.Get("/campaigns/{id}", campaignH.Get)
		r.Get("/campaigns/{id}/donations", donationH.ListCampaignDonations)

		// Payments
		r.Post("/payments/process", donationH.ProcessDonation)
		r.Post("/payments/mpesa/status", donationH.QueryStatus)
		r.Post("/payments/mpesa/callback", donationH.MpesaCallback)

		// Donations
		r.Get("/donations/{id}", donationH.GetDonation)
	})

	return r
}

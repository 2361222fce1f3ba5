package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripmate-app/tripmate/internal/auth"
	"github.com/tripmate-app/tripmate/internal/config"
	"github.com/tripmate-app/tripmate/internal/middleware"
	"github.com/tripmate-app/tripmate/internal/tripserver"
	"github.com/tripmate-app/tripmate/pkg/logging"
)

const (
	tokenTTL       = 24 * time.Hour
	rateLimitRPS   = 20
	rateLimitBurst = 40
)

func main() {
	cfg := config.MustLoadServer()
	log := logging.Setup(cfg.LogLevel)

	keyHash, err := auth.HashTripKey(cfg.TripKey)
	if err != nil {
		slog.Error("Unusable trip key", "error", err)
		os.Exit(1)
	}

	store, err := tripserver.NewStorage(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.Secret, tokenTTL)

	mux := chi.NewMux()

	apiConfig := huma.DefaultConfig("Tripmate Trip API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}
	api := humachi.New(mux, apiConfig)

	tripserver.NewHandler(store, jwtManager, cfg.TripID, keyHash, log).SetupRoutes(api)
	tripserver.NewBlobHandler(store, cfg.PublicURL, log).SetupRoutes(mux)

	mux.Handle("/metrics", promhttp.Handler())

	handler := middleware.RequestLogger(
		middleware.Metrics(
			middleware.CORS(
				middleware.RateLimit(rateLimitRPS, rateLimitBurst)(
					middleware.RequireAuth(jwtManager)(mux),
				),
			),
		),
	)

	slog.Info("Trip server starting", "address", cfg.RunAddress, "trip_id", cfg.TripID)
	if err := http.ListenAndServe(cfg.RunAddress, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

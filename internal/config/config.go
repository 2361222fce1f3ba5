// Package config loads server and client configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tripmate-app/tripmate/internal/remote"
)

const (
	defaultRunAddress = ":8080"
	defaultPublicURL  = "http://localhost:8080"
	defaultDBPath     = "./data/trip.db"
	defaultLogLevel   = "info"

	// fallbackSecret keeps local development working without an env file.
	// Production deployments must set SECRET.
	fallbackSecret = "tripmate-dev-secret"
)

// Server holds trip server configuration.
type Server struct {
	RunAddress string
	PublicURL  string
	DBPath     string
	TripID     string
	TripKey    string
	Secret     string
	LogLevel   string
}

// MustLoadServer reads server configuration from the environment. TRIP_ID
// and TRIP_KEY are mandatory: a trip server hosts exactly one trip.
func MustLoadServer() *Server {
	loadDotenv()
	viper.AutomaticEnv()

	viper.SetDefault("RUN_ADDRESS", defaultRunAddress)
	viper.SetDefault("PUBLIC_URL", defaultPublicURL)
	viper.SetDefault("DB_PATH", defaultDBPath)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)

	cfg := &Server{
		RunAddress: viper.GetString("RUN_ADDRESS"),
		PublicURL:  viper.GetString("PUBLIC_URL"),
		DBPath:     viper.GetString("DB_PATH"),
		TripID:     viper.GetString("TRIP_ID"),
		TripKey:    viper.GetString("TRIP_KEY"),
		Secret:     viper.GetString("SECRET"),
		LogLevel:   viper.GetString("LOG_LEVEL"),
	}
	if cfg.Secret == "" {
		cfg.Secret = fallbackSecret
	}

	if cfg.TripID == "" || cfg.TripKey == "" {
		log.Fatalln("TRIP_ID and TRIP_KEY must be set")
	}

	return cfg
}

// Client holds the locally configured remote credential bundle, if any.
// All three values must be present for the bundle to be usable; partial
// configuration is treated as absent.
type Client struct {
	Remote *remote.Config
}

// LoadClient reads the optional remote credentials from the environment.
func LoadClient() *Client {
	loadDotenv()
	viper.AutomaticEnv()

	cfg := remote.Config{
		ServerURL: viper.GetString("TRIPMATE_SERVER_URL"),
		TripID:    viper.GetString("TRIPMATE_TRIP_ID"),
		TripKey:   viper.GetString("TRIPMATE_TRIP_KEY"),
	}
	if !cfg.Usable() {
		return &Client{}
	}
	return &Client{Remote: &cfg}
}

func loadDotenv() {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("failed to load %s: %v", envPath, err)
		}
	}
}

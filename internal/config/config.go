package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// MpesaConfig holds the Daraja credentials for the snack center payments.
type MpesaConfig struct {
	BaseURL         string // sandbox or production API root
	ConsumerKey     string
	ConsumerSecret  string
	Shortcode       string
	Passkey         string
	CallbackBaseURL string // public URL the provider calls back on
}

// Config is everything the server reads from the environment, loaded once
// at startup and handed to the components that need it.
type Config struct {
	Port              string
	DBDSN             string
	BaseURL           string
	JWTSecret         string
	AllowRegistration bool
	AllowedOrigins    []string
	GeminiAPIKey      string

	Mpesa MpesaConfig

	// Every PendingPayment transaction older than PaymentTimeout gets
	// failed by the sweep, which runs every SweepInterval.
	PaymentTimeout time.Duration
	SweepInterval  time.Duration
}

// Load reads the configuration from environment variables. Call godotenv
// before this if you keep a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBDSN:             os.Getenv("DB_DSN"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AllowRegistration: os.Getenv("ALLOW_REGISTRATION") == "true",
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		Mpesa: MpesaConfig{
			BaseURL:         getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:     os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret:  os.Getenv("MPESA_CONSUMER_SECRET"),
			Shortcode:       os.Getenv("MPESA_SHORTCODE"),
			Passkey:         os.Getenv("MPESA_PASSKEY"),
			CallbackBaseURL: os.Getenv("MPESA_CALLBACK_BASE_URL"),
		},
		PaymentTimeout: getDuration("PAYMENT_TIMEOUT", 5*time.Minute),
		SweepInterval:  getDuration("PAYMENT_SWEEP_INTERVAL", time.Minute),
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Mpesa.CallbackBaseURL == "" {
		cfg.Mpesa.CallbackBaseURL = cfg.BaseURL
	}

	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

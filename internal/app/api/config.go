package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port           string
	PostgresDSN    string
	KafkaBrokers   []string
	KafkaTopic     string
	HoldTTL        time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
	IdempotencyTTL time.Duration
	LockWait       time.Duration
	SweepDisabled  bool
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:          envDefault("PORT", "8080"),
		PostgresDSN:   strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		KafkaBrokers:  splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    envDefault("KAFKA_TOPIC", "order-transitions"),
		SweepDisabled: isTruthy(os.Getenv("EXPIRY_SWEEP_DISABLED")),
	}
	var err error
	if cfg.HoldTTL, err = envDuration("ORDER_HOLD_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = envDuration("EXPIRY_SWEEP_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = envDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.LockWait, err = envDuration("RESERVATION_LOCK_WAIT", 3*time.Second); err != nil {
		return Config{}, err
	}
	if raw := strings.TrimSpace(os.Getenv("EXPIRY_SWEEP_BATCH_SIZE")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return Config{}, fmt.Errorf("EXPIRY_SWEEP_BATCH_SIZE must be a positive integer")
		}
		cfg.SweepBatchSize = size
	}
	return cfg, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}

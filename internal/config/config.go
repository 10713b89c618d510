package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the process reads from the environment. A .env file
// in the working directory is loaded first if present; real env vars win.
type Config struct {
	ListenAddr  string
	RPCURL      string
	ProgramID   string
	MPCURL      string
	DatabaseURL string
	SessionKey  string // base58 ed25519 private key; generated when empty

	PollInterval   time.Duration
	DebounceWindow time.Duration
	ConfirmTimeout time.Duration
	SettleDelay    time.Duration
	HealthInterval time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is fine

	c := Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		RPCURL:         os.Getenv("RPC_URL"),
		ProgramID:      os.Getenv("PROGRAM_ID"),
		MPCURL:         os.Getenv("MPC_URL"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SessionKey:     os.Getenv("SESSION_KEY"),
		PollInterval:   getDuration("POLL_INTERVAL", 2*time.Second),
		DebounceWindow: getDuration("DEBOUNCE_WINDOW", 400*time.Millisecond),
		ConfirmTimeout: getDuration("CONFIRM_TIMEOUT", 60*time.Second),
		SettleDelay:    getDuration("SETTLE_DELAY", 3*time.Second),
		HealthInterval: getDuration("HEALTH_INTERVAL", 10*time.Second),
	}

	if c.RPCURL == "" {
		return Config{}, fmt.Errorf("RPC_URL is required")
	}
	if c.ProgramID == "" {
		return Config{}, fmt.Errorf("PROGRAM_ID is required")
	}
	return c, nil
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
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// plain integers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

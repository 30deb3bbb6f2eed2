package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port    string
	Env     string
	BaseURL string // backend ERP API, e.g. https://api.example.fr
	Tenant  string // optional X-Tenant header value

	RequestTimeout time.Duration

	// Version prefix per module. The backend exposes several generations of
	// the same endpoints; each module pins the one it has been migrated to.
	FacturesVersion      string
	InterventionsVersion string
	AuditVersion         string

	// Service credential for the audit endpoint. Audit batches are posted
	// outside any browser session, so they authenticate with this token
	// instead of a user's pair.
	AuditToken string

	SessionDSN    string
	SessionSecret string
	SessionTTL    time.Duration
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by caller) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.BaseURL = getEnv("ERP_API_URL", "http://localhost:9080")
	cfg.Tenant = getEnv("ERP_TENANT", "")
	cfg.RequestTimeout = getDuration("ERP_API_TIMEOUT", 15*time.Second)
	cfg.FacturesVersion = getEnv("FACTURES_API_VERSION", "v1")
	cfg.InterventionsVersion = getEnv("INTERVENTIONS_API_VERSION", "v2")
	cfg.AuditVersion = getEnv("AUDIT_API_VERSION", "v1")
	cfg.AuditToken = getEnv("AUDIT_TOKEN", "")
	cfg.SessionDSN = getEnv("SESSION_DSN", "file:sessions.db?cache=shared")
	cfg.SessionSecret = getEnv("SESSION_SECRET", "devsessionsecret")
	cfg.SessionTTL = getDuration("SESSION_TTL", 12*time.Hour)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %s", key, v)
			return def
		}
		return d
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}

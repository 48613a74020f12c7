// Package config reads the portal settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	// AuthMode is "direct" or "procedure".
	AuthMode            string
	SessionTTL          time.Duration
	SessionSecret       string
	SessionCookieSecure bool
	AuditEnabled        bool
	IPLookupURL         string
	PowerBIBaseURL      string
	PowerBITenantID     string
	PowerBIAutoAuth     bool
	AuthProviderURL     string
	AuthProviderKey     string
	RecoveryRedirectURL string
	// NewPasswordScheme is "bcrypt" or "sha256".
	NewPasswordScheme string
	BcryptCost        int
	UpgradeLegacy     bool
	StaticDir         string
	RateLimitRPS      float64
	RateLimitBurst    int
	ShutdownTimeout   time.Duration
}

// Load reads a .env file when present, then the environment.
func Load() Config {
	// best effort: a missing .env is normal in production
	_ = godotenv.Load()
	return Config{
		HTTPAddr:            getenv("HTTP_ADDR", "0.0.0.0:8431"),
		AuthMode:            strings.ToLower(getenv("AUTH_MODE", "direct")),
		SessionTTL:          getenvDuration("SESSION_TTL", time.Hour),
		SessionSecret:       getenv("SESSION_SECRET", ""),
		SessionCookieSecure: getenvBool("SESSION_COOKIE_SECURE", false),
		AuditEnabled:        getenvBool("AUDIT_ENABLED", true),
		IPLookupURL:         getenv("IP_LOOKUP_URL", "https://api.ipify.org?format=json"),
		PowerBIBaseURL:      getenv("POWERBI_BASE_URL", "https://app.powerbi.com/reportEmbed"),
		PowerBITenantID:     getenv("POWERBI_TENANT_ID", ""),
		PowerBIAutoAuth:     getenvBool("POWERBI_AUTO_AUTH", true),
		AuthProviderURL:     getenv("AUTH_PROVIDER_URL", ""),
		AuthProviderKey:     getenv("AUTH_PROVIDER_KEY", ""),
		RecoveryRedirectURL: getenv("RECOVERY_REDIRECT_URL", "/redefinir-senha.html"),
		NewPasswordScheme:   strings.ToLower(getenv("NEW_PASSWORD_SCHEME", "bcrypt")),
		BcryptCost:          getenvInt("BCRYPT_COST", 0),
		UpgradeLegacy:       getenvBool("UPGRADE_LEGACY_HASHES", false),
		StaticDir:           getenv("STATIC_DIR", "./web"),
		RateLimitRPS:        getenvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:      getenvInt("RATE_LIMIT_BURST", 10),
		ShutdownTimeout:     getenvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Port    string
	GinMode string

	// DatabaseURL selects the relational backend when non-empty.
	DatabaseURL     string
	DatabaseFile    string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnLifetime  time.Duration
	TrustedProxies  []string
	CORSOrigins     []string
	RateLimitMax    int
	RateLimitWindow time.Duration

	XBearerToken        string
	XAPIBaseURL         string
	XSyndicationBaseURL string
	EnrichTimeout       time.Duration
	RedisURL            string
	EnrichCacheTTL      time.Duration
	AdminPasswordHash   string
	AdminJWTSecret      string
	AdminTokenTTL       time.Duration

	// FeedPollInterval > 0 makes the websocket feed poll the relational
	// database instead of relaying only this process's submissions.
	FeedPollInterval time.Duration
	LogLevel         string
}

const (
	DefaultDatabaseFile        = "data/forms.sqlite"
	DefaultXAPIBaseURL         = "https://api.twitter.com"
	DefaultXSyndicationBaseURL = "https://cdn.syndication.twimg.com"
)

// Load reads the configuration from the process environment.
// Call godotenv.Load before this if a .env file should be honoured.
func Load() *Config {
	token := getEnv("TWITTER_BEARER_TOKEN", "")
	if token == "" {
		token = getEnv("X_BEARER_TOKEN", "")
	}

	return &Config{
		Port:                getEnv("PORT", "3001"),
		GinMode:             getEnv("GIN_MODE", ""),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DatabaseFile:        getEnv("DATABASE_FILE", DefaultDatabaseFile),
		DBMaxOpenConns:      getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:      getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnLifetime:      getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		TrustedProxies:      splitList(getEnv("TRUSTED_PROXIES", "")),
		CORSOrigins:         splitList(getEnv("CORS_ORIGIN", "*")),
		RateLimitMax:        getEnvInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		XBearerToken:        token,
		XAPIBaseURL:         getEnv("X_API_BASE_URL", DefaultXAPIBaseURL),
		XSyndicationBaseURL: getEnv("X_SYNDICATION_BASE_URL", DefaultXSyndicationBaseURL),
		EnrichTimeout:       getEnvDuration("ENRICH_TIMEOUT", 4*time.Second),
		RedisURL:            getEnv("REDIS_URL", ""),
		EnrichCacheTTL:      getEnvDuration("ENRICH_CACHE_TTL", 6*time.Hour),
		AdminPasswordHash:   getEnv("ADMIN_PASSWORD_HASH", ""),
		AdminJWTSecret:      getEnv("ADMIN_JWT_SECRET", ""),
		AdminTokenTTL:       getEnvDuration("ADMIN_TOKEN_TTL", 24*time.Hour),
		FeedPollInterval:    getEnvDuration("FEED_POLL_INTERVAL", 0),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
}

// UseRelational reports whether the managed relational backend is configured.
func (c *Config) UseRelational() bool {
	return c.DatabaseURL != ""
}

// PollFeed reports whether the feed is driven by database polling. It only
// applies to the relational backend, which several replicas may share.
func (c *Config) PollFeed() bool {
	return c.UseRelational() && c.FeedPollInterval > 0
}

// AdminAuthEnabled is true only when both the password hash and signing secret are set.
func (c *Config) AdminAuthEnabled() bool {
	return c.AdminPasswordHash != "" && c.AdminJWTSecret != ""
}

// AllowAllOrigins is true for the "*" wildcard.
func (c *Config) AllowAllOrigins() bool {
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return len(c.CORSOrigins) == 0
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Client configures the storefront side.
type Client struct {
	StoreURL        string
	UpstreamTimeout time.Duration

	// LoginPolicy is "sync" or "push".
	LoginPolicy       string
	PullExcludeLocked bool
	MaxPushAttempts   int
}

// Server configures the cart store.
type Server struct {
	Port string

	// DatabaseDSN selects Postgres. Empty keeps everything in memory.
	DatabaseDSN   string
	RunMigrations bool

	// RabbitMQURL enables event publishing when set.
	RabbitMQURL string

	CORSAllowOrigins []string
	SeedProducts     bool

	// CouponLifetime applies to coupons stored without an expiry.
	CouponLifetime time.Duration
}

func LoadClient() Client {
	return Client{
		StoreURL:          getenv("STORE_URL", "http://localhost:8080"),
		UpstreamTimeout:   parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),
		LoginPolicy:       getenv("STOREFRONT_LOGIN_POLICY", "sync"),
		PullExcludeLocked: parseBool(getenv("PULL_EXCLUDE_LOCKED", "true"), true),
		MaxPushAttempts:   parsePositiveInt(getenv("MAX_PUSH_ATTEMPTS", "2"), 2),
	}
}

func LoadServer() Server {
	return Server{
		Port:             getenv("PORT", "8080"),
		DatabaseDSN:      os.Getenv("DATABASE_DSN"),
		RunMigrations:    parseBool(getenv("RUN_MIGRATIONS", "true"), true),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),
		SeedProducts:     parseBool(getenv("SEED_PRODUCTS", "true"), true),
		CouponLifetime:   parseDuration(getenv("COUPON_DEFAULT_LIFETIME", "1h"), time.Hour),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func parsePositiveInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return def
	}
	return n
}

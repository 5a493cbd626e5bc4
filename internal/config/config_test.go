package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadClientDefaults(t *testing.T) {
	for _, k := range []string{"STORE_URL", "UPSTREAM_TIMEOUT", "STOREFRONT_LOGIN_POLICY", "PULL_EXCLUDE_LOCKED", "MAX_PUSH_ATTEMPTS"} {
		t.Setenv(k, "")
	}

	got := LoadClient()
	want := Client{
		StoreURL:          "http://localhost:8080",
		UpstreamTimeout:   10 * time.Second,
		LoginPolicy:       "sync",
		PullExcludeLocked: true,
		MaxPushAttempts:   2,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("defaults mismatch\ngot  %+v\nwant %+v", got, want)
	}
}

func TestLoadClientOverrides(t *testing.T) {
	t.Setenv("STORE_URL", "http://store:9000")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("STOREFRONT_LOGIN_POLICY", "push")
	t.Setenv("PULL_EXCLUDE_LOCKED", "false")
	t.Setenv("MAX_PUSH_ATTEMPTS", "5")

	got := LoadClient()
	if got.StoreURL != "http://store:9000" || got.UpstreamTimeout != 3*time.Second {
		t.Fatalf("unexpected transport config %+v", got)
	}
	if got.LoginPolicy != "push" || got.PullExcludeLocked || got.MaxPushAttempts != 5 {
		t.Fatalf("unexpected sync config %+v", got)
	}
}

func TestLoadClientInvalidValuesFallBack(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	t.Setenv("PULL_EXCLUDE_LOCKED", "maybe")
	t.Setenv("MAX_PUSH_ATTEMPTS", "0")

	got := LoadClient()
	if got.UpstreamTimeout != 10*time.Second || !got.PullExcludeLocked || got.MaxPushAttempts != 2 {
		t.Fatalf("expected defaults for invalid values, got %+v", got)
	}
}

func TestLoadServer(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_DSN", "postgres://u:p@db/cartstore")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("CORS_ALLOW_ORIGINS", " http://a.local , ,http://b.local")
	t.Setenv("SEED_PRODUCTS", "")
	t.Setenv("COUPON_DEFAULT_LIFETIME", "10m")

	got := LoadServer()
	want := Server{
		Port:             "8080",
		DatabaseDSN:      "postgres://u:p@db/cartstore",
		RunMigrations:    false,
		RabbitMQURL:      "",
		CORSAllowOrigins: []string{"http://a.local", "http://b.local"},
		SeedProducts:     true,
		CouponLifetime:   10 * time.Minute,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("server config mismatch\ngot  %+v\nwant %+v", got, want)
	}
}

func TestSplitCSVEmpty(t *testing.T) {
	if got := splitCSV(" , "); !reflect.DeepEqual(got, []string{"*"}) {
		t.Fatalf("expected wildcard, got %v", got)
	}
}

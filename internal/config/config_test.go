package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:  AppConfig{Env: "local", Port: 8080},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.HasPrefix(err.Error(), "config errors:") {
		t.Fatalf("expected joined errors, got %v", err)
	}
}

func TestValidate_AppliesCallDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Store.Driver != "memory" {
		t.Fatalf("expected memory store, got %q", c.Store.Driver)
	}
	if c.Calls.LocalRate.String() != "0.001" || c.Calls.RegionalRate.String() != "0.002" || c.Calls.InternationalRate.String() != "0.003" {
		t.Fatalf("unexpected rates: %s %s %s", c.Calls.LocalRate, c.Calls.RegionalRate, c.Calls.InternationalRate)
	}
	if c.Calls.RingDelay != time.Second || c.Calls.AnswerDelay != 2*time.Second || c.Calls.CompleteDelay != 5*time.Second {
		t.Fatalf("unexpected delays: %+v", c.Calls)
	}
	if c.Calls.SimMinDuration != 30*time.Second || c.Calls.SimMaxDuration != 330*time.Second {
		t.Fatalf("unexpected simulated range")
	}
	if c.Calls.DefaultPageSize != 50 || c.Calls.MaxPageSize != 1000 {
		t.Fatalf("unexpected paging defaults")
	}
	if c.Calls.Dialer != "simulated" {
		t.Fatalf("expected simulated dialer, got %q", c.Calls.Dialer)
	}
	if c.Auth.AccessTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d access ttl, got %s", c.Auth.AccessTokenTTL)
	}
}

func TestValidate_PostgresRequiresDB(t *testing.T) {
	c := validLocal()
	c.Store.Driver = "postgres"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for postgres without DB settings")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 8080},
		Store: StoreConfig{Driver: "postgres"},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voice"},
		Auth:  AuthConfig{JWTSecret: "secret", JWTIssuer: "iss", JWTAudience: "aud"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validLocal()
	c.Store.Driver = "postgres"
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voice"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_RejectsInvertedSimulationRange(t *testing.T) {
	c := validLocal()
	c.Calls.SimMinDuration = time.Minute
	c.Calls.SimMaxDuration = 30 * time.Second
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for inverted duration range")
	}
}

func TestValidate_UnknownDialer(t *testing.T) {
	c := validLocal()
	c.Calls.Dialer = "sip"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown dialer")
	}
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("CALL_RATE_LOCAL", "0.0015")
	t.Setenv("CALL_REGIONAL_COUNTRIES", "ng, ke ,gh")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", c.App.Port)
	}
	if c.Calls.LocalRate.String() != "0.0015" {
		t.Fatalf("expected local rate override, got %s", c.Calls.LocalRate)
	}
	if len(c.Calls.RegionalCountries) != 3 || c.Calls.RegionalCountries[1] != "KE" {
		t.Fatalf("unexpected regional countries: %v", c.Calls.RegionalCountries)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.StatusTopic != "call-status" {
		t.Fatalf("unexpected kafka config: %+v", c.Kafka)
	}
}

func TestLoad_RejectsBadDecimal(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("CALL_RATE_REGIONAL", "cheap")

	if _, err := Load(); err == nil {
		t.Fatalf("expected decimal parse error")
	}
}

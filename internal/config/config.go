package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	Store     StoreConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Calls     CallsConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Env     string
	Port    int
	Version string
	Region  string
}

// StoreConfig selects the call store backend: "memory" or "postgres".
type StoreConfig struct {
	Driver string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. When Host is empty the active-call cap is kept in process.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// CallsConfig carries the pricing tiers and lifecycle timings.
type CallsConfig struct {
	LocalRate         decimal.Decimal
	RegionalRate      decimal.Decimal
	InternationalRate decimal.Decimal

	// RegionalCountries empty means the built-in regional set.
	RegionalCountries []string

	RingDelay     time.Duration
	AnswerDelay   time.Duration
	CompleteDelay time.Duration

	// Simulated durations are drawn from [SimMinDuration, SimMaxDuration).
	SimMinDuration time.Duration
	SimMaxDuration time.Duration

	DefaultPageSize int
	MaxPageSize     int

	// MaxActivePerAccount <= 0 disables the cap.
	MaxActivePerAccount int

	// Dialer is "simulated" or "callback".
	Dialer string
}

type KafkaConfig struct {
	Brokers     []string
	StatusTopic string
	ClientID    string
}

type TelemetryConfig struct {
	Endpoint    string
	SampleRatio float64
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.Version = strings.TrimSpace(os.Getenv("APP_VERSION"))
	c.App.Region = strings.TrimSpace(os.Getenv("APP_REGION"))

	c.Store.Driver = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := optionalInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	for _, r := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{"CALL_RATE_LOCAL", &c.Calls.LocalRate},
		{"CALL_RATE_REGIONAL", &c.Calls.RegionalRate},
		{"CALL_RATE_INTERNATIONAL", &c.Calls.InternationalRate},
	} {
		d, err := optionalDecimal(r.key)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		*r.dst = d
	}
	c.Calls.RegionalCountries = splitCSV(os.Getenv("CALL_REGIONAL_COUNTRIES"), true)
	c.Calls.RingDelay = mustDuration("CALL_RING_DELAY")
	c.Calls.AnswerDelay = mustDuration("CALL_ANSWER_DELAY")
	c.Calls.CompleteDelay = mustDuration("CALL_COMPLETE_DELAY")
	c.Calls.SimMinDuration = mustDuration("CALL_SIM_MIN_DURATION")
	c.Calls.SimMaxDuration = mustDuration("CALL_SIM_MAX_DURATION")
	for _, r := range []struct {
		key string
		dst *int
	}{
		{"CALL_DEFAULT_PAGE_SIZE", &c.Calls.DefaultPageSize},
		{"CALL_MAX_PAGE_SIZE", &c.Calls.MaxPageSize},
		{"CALL_MAX_ACTIVE_PER_ACCOUNT", &c.Calls.MaxActivePerAccount},
	} {
		n, err := optionalInt(r.key)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		*r.dst = n
	}
	c.Calls.Dialer = strings.ToLower(strings.TrimSpace(os.Getenv("CALL_DIALER")))

	c.Kafka.Brokers = splitCSV(os.Getenv("KAFKA_BROKERS"), false)
	c.Kafka.StatusTopic = strings.TrimSpace(os.Getenv("KAFKA_STATUS_TOPIC"))
	c.Kafka.ClientID = strings.TrimSpace(os.Getenv("KAFKA_CLIENT_ID"))

	c.Telemetry.Endpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if v := strings.TrimSpace(os.Getenv("OTEL_SAMPLE_RATIO")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("OTEL_SAMPLE_RATIO must be a number, got %q", v))
		}
		c.Telemetry.SampleRatio = f
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.Version == "" {
		c.App.Version = "1.0.0"
	}
	if c.App.Region == "" {
		c.App.Region = "local"
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		errs = append(errs, c.validateDB()...)
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of memory, postgres, got %q", c.Store.Driver))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	errs = append(errs, c.Calls.validate()...)

	if len(c.Kafka.Brokers) > 0 && c.Kafka.StatusTopic == "" {
		c.Kafka.StatusTopic = "call-status"
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "voice-platform"
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0,1], got %v", c.Telemetry.SampleRatio))
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c *CallsConfig) validate() []error {
	var errs []error

	if c.LocalRate.IsZero() {
		c.LocalRate = decimal.RequireFromString("0.001")
	}
	if c.RegionalRate.IsZero() {
		c.RegionalRate = decimal.RequireFromString("0.002")
	}
	if c.InternationalRate.IsZero() {
		c.InternationalRate = decimal.RequireFromString("0.003")
	}
	if c.LocalRate.IsNegative() || c.RegionalRate.IsNegative() || c.InternationalRate.IsNegative() {
		errs = append(errs, errors.New("CALL_RATE_* must not be negative"))
	}

	if c.RingDelay <= 0 {
		c.RingDelay = time.Second
	}
	if c.AnswerDelay <= 0 {
		c.AnswerDelay = 2 * time.Second
	}
	if c.CompleteDelay <= 0 {
		c.CompleteDelay = 5 * time.Second
	}
	if c.SimMinDuration <= 0 {
		c.SimMinDuration = 30 * time.Second
	}
	if c.SimMaxDuration <= 0 {
		c.SimMaxDuration = 330 * time.Second
	}
	if c.SimMaxDuration <= c.SimMinDuration {
		errs = append(errs, errors.New("CALL_SIM_MAX_DURATION must be greater than CALL_SIM_MIN_DURATION"))
	}

	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 1000
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 50
	}
	if c.DefaultPageSize > c.MaxPageSize {
		errs = append(errs, fmt.Errorf("CALL_DEFAULT_PAGE_SIZE must not exceed CALL_MAX_PAGE_SIZE (%d)", c.MaxPageSize))
	}

	if c.Dialer == "" {
		c.Dialer = "simulated"
	}
	if c.Dialer != "simulated" && c.Dialer != "callback" {
		errs = append(errs, fmt.Errorf("CALL_DIALER must be one of simulated, callback, got %q", c.Dialer))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	return parseInt(key, v)
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	return parseInt(key, v)
}

func parseInt(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDecimal(key string) (decimal.Decimal, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal, got %q", key, v)
	}
	return d, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(v string, upper bool) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if upper {
			part = strings.ToUpper(part)
		}
		out = append(out, part)
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}

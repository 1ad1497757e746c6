package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	DBSchema       string   `mapstructure:"DB_SCHEMA"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	RedisURL        string   `mapstructure:"REDIS_URL"`
	CachePrefix     string   `mapstructure:"CACHE_PREFIX"`
	KafkaBrokers    []string `mapstructure:"KAFKA_BROKERS"`
	KafkaEmailTopic string   `mapstructure:"KAFKA_EMAIL_TOPIC"`
	KafkaEventTopic string   `mapstructure:"KAFKA_EVENT_TOPIC"`

	PatientServiceURL      string        `mapstructure:"PATIENT_SERVICE_URL"`
	ODRBaseURL             string        `mapstructure:"ODR_BASE_URL"`
	SalesforceBaseURL      string        `mapstructure:"SALESFORCE_BASE_URL"`
	SalesforceTokenURL     string        `mapstructure:"SALESFORCE_TOKEN_URL"`
	SalesforceClientID     string        `mapstructure:"SALESFORCE_CLIENT_ID"`
	SalesforceClientSecret string        `mapstructure:"SALESFORCE_CLIENT_SECRET"`
	PHSABaseURL            string        `mapstructure:"PHSA_BASE_URL"`
	PartnerTimeout         time.Duration `mapstructure:"PARTNER_TIMEOUT"`

	WebClientURL            string        `mapstructure:"WEBCLIENT_URL"`
	EmailVerificationExpiry time.Duration `mapstructure:"EMAIL_VERIFICATION_EXPIRY"`
	SMSVerificationExpiry   time.Duration `mapstructure:"SMS_VERIFICATION_EXPIRY"`
	MaxVerificationAttempts int           `mapstructure:"MAX_VERIFICATION_ATTEMPTS"`
	MinPatientAge           int           `mapstructure:"MIN_PATIENT_AGE"`
	MaxDependentAge         int           `mapstructure:"MAX_DEPENDENT_AGE"`
	DelegationMaxAttempts   int           `mapstructure:"DELEGATION_MAX_ATTEMPTS"`
	DelegationSweepInterval time.Duration `mapstructure:"DELEGATION_SWEEP_INTERVAL"`
	PatientCacheTTL         time.Duration `mapstructure:"PATIENT_CACHE_TTL"`
	ProtectiveWordCacheTTL  time.Duration `mapstructure:"PROTECTIVE_WORD_CACHE_TTL"`
	TourCacheTTL            time.Duration `mapstructure:"TOUR_CACHE_TTL"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
	"REDIS_URL", "CACHE_PREFIX", "KAFKA_BROKERS", "KAFKA_EMAIL_TOPIC", "KAFKA_EVENT_TOPIC",
	"PATIENT_SERVICE_URL", "ODR_BASE_URL", "SALESFORCE_BASE_URL", "SALESFORCE_TOKEN_URL",
	"SALESFORCE_CLIENT_ID", "SALESFORCE_CLIENT_SECRET", "PHSA_BASE_URL", "PARTNER_TIMEOUT",
	"WEBCLIENT_URL", "EMAIL_VERIFICATION_EXPIRY", "SMS_VERIFICATION_EXPIRY",
	"MAX_VERIFICATION_ATTEMPTS", "MIN_PATIENT_AGE", "MAX_DEPENDENT_AGE",
	"DELEGATION_MAX_ATTEMPTS", "DELEGATION_SWEEP_INTERVAL",
	"PATIENT_CACHE_TTL", "PROTECTIVE_WORD_CACHE_TTL", "TOUR_CACHE_TTL",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_SCHEMA", "gateway")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("CACHE_PREFIX", "hg:")
	v.SetDefault("KAFKA_EMAIL_TOPIC", "gateway.email")
	v.SetDefault("KAFKA_EVENT_TOPIC", "gateway.account-events")
	v.SetDefault("PARTNER_TIMEOUT", "15s")
	v.SetDefault("WEBCLIENT_URL", "http://localhost:3000")
	v.SetDefault("EMAIL_VERIFICATION_EXPIRY", "12h")
	v.SetDefault("SMS_VERIFICATION_EXPIRY", "24h")
	v.SetDefault("MAX_VERIFICATION_ATTEMPTS", 5)
	v.SetDefault("MIN_PATIENT_AGE", 12)
	v.SetDefault("MAX_DEPENDENT_AGE", 12)
	v.SetDefault("DELEGATION_MAX_ATTEMPTS", 5)
	v.SetDefault("DELEGATION_SWEEP_INTERVAL", "1h")
	v.SetDefault("PATIENT_CACHE_TTL", "5m")
	v.SetDefault("PROTECTIVE_WORD_CACHE_TTL", "10m")
	v.SetDefault("TOUR_CACHE_TTL", "30m")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development); DevAuthMiddleware trusts X-Dev-Hdid.")
	}

	return cfg, nil
}

// splitList re-parses comma-separated env values so entries are trimmed.
func splitList(current []string, raw string) []string {
	if raw == "" {
		return current
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if c.EmailVerificationExpiry <= 0 {
		return fmt.Errorf("EMAIL_VERIFICATION_EXPIRY must be positive")
	}
	if c.SMSVerificationExpiry <= 0 {
		return fmt.Errorf("SMS_VERIFICATION_EXPIRY must be positive")
	}
	if c.MaxVerificationAttempts <= 0 {
		return fmt.Errorf("MAX_VERIFICATION_ATTEMPTS must be positive, got %d", c.MaxVerificationAttempts)
	}
	if c.DelegationMaxAttempts <= 0 {
		return fmt.Errorf("DELEGATION_MAX_ATTEMPTS must be positive, got %d", c.DelegationMaxAttempts)
	}
	if c.DelegationSweepInterval <= 0 {
		return fmt.Errorf("DELEGATION_SWEEP_INTERVAL must be positive, got %s", c.DelegationSweepInterval)
	}
	if c.MinPatientAge < 0 || c.MaxDependentAge < 0 {
		return fmt.Errorf("MIN_PATIENT_AGE and MAX_DEPENDENT_AGE must not be negative")
	}
	return nil
}

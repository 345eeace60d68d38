// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// VapiConfig provides settings for the voice-call platform client.
type VapiConfig interface {
	GetVapiBaseURL() string
	GetVapiAPIKey() string
	GetVapiTimeout() time.Duration
}

// TwilioConfig provides settings for the telephony provisioning client.
type TwilioConfig interface {
	GetTwilioBaseURL() string
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
}

// CalendarConfig provides settings for the calendar provider client.
type CalendarConfig interface {
	GetCalendarBaseURL() string
}

// DispatchConfig provides pacing settings for bulk call dispatch.
type DispatchConfig interface {
	GetDispatchConcurrency() int
	GetDispatchCallsPerMinute() int
}

// SchedulerConfig provides settings for the asynq background job layer.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// NotificationConfig provides the recipient for operational alert emails.
type NotificationConfig interface {
	GetOpsAlertEmail() string
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsEmailEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	VapiBaseURL string
	VapiAPIKey  string
	VapiTimeout time.Duration

	TwilioBaseURL    string
	TwilioAccountSID string
	TwilioAuthToken  string

	CalendarBaseURL string

	DispatchConcurrency    int
	DispatchCallsPerMinute int

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	OpsAlertEmail    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// VapiConfig implementation
func (c *Config) GetVapiBaseURL() string        { return c.VapiBaseURL }
func (c *Config) GetVapiAPIKey() string         { return c.VapiAPIKey }
func (c *Config) GetVapiTimeout() time.Duration { return c.VapiTimeout }

// TwilioConfig implementation
func (c *Config) GetTwilioBaseURL() string    { return c.TwilioBaseURL }
func (c *Config) GetTwilioAccountSID() string { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string  { return c.TwilioAuthToken }

// CalendarConfig implementation
func (c *Config) GetCalendarBaseURL() string { return c.CalendarBaseURL }

// DispatchConfig implementation
func (c *Config) GetDispatchConcurrency() int    { return c.DispatchConcurrency }
func (c *Config) GetDispatchCallsPerMinute() int { return c.DispatchCallsPerMinute }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsEmailEnabled() bool        { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// NotificationConfig implementation
func (c *Config) GetOpsAlertEmail() string { return c.OpsAlertEmail }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		VapiBaseURL: getEnv("VAPI_BASE_URL", "https://api.vapi.ai"),
		VapiAPIKey:  getEnv("VAPI_API_KEY", ""),
		VapiTimeout: mustDuration(getEnv("VAPI_TIMEOUT", "15s")),

		TwilioBaseURL:    getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),

		CalendarBaseURL: getEnv("CALENDAR_BASE_URL", "https://www.googleapis.com/calendar/v3"),

		DispatchConcurrency:    mustPositiveInt(getEnv("DISPATCH_CONCURRENCY", "3"), 3),
		DispatchCallsPerMinute: mustPositiveInt(getEnv("DISPATCH_CALLS_PER_MINUTE", "30"), 30),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustPositiveInt(getEnv("ASYNQ_CONCURRENCY", "10"), 10),

		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustPositiveInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Callops"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		OpsAlertEmail:    getEnv("OPS_ALERT_EMAIL", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.VapiAPIKey == "" {
		return nil, fmt.Errorf("VAPI_API_KEY is required")
	}
	if cfg.VapiTimeout <= 0 {
		cfg.VapiTimeout = 15 * time.Second
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustPositiveInt(value string, fallback int) int {
	result, err := strconv.Atoi(value)
	if err != nil || result <= 0 {
		return fallback
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}

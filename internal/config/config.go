package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is built once at process start and handed to each component.
// Components copy the fields they need; nothing mutates it after Load.
type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string   `mapstructure:"REDIS_URL"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	MigrationsDir  string   `mapstructure:"MIGRATIONS_DIR"`
	SentryDSN      string   `mapstructure:"SENTRY_DSN"`

	// Tokens
	SecretKey                string `mapstructure:"SECRET_KEY"`
	Algorithm                string `mapstructure:"ALGORITHM"`
	AccessTokenExpireMinutes int    `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`

	// Triage
	AIServiceURL      string `mapstructure:"AI_SERVICE_URL"`
	FallbackAIEnabled bool   `mapstructure:"FALLBACK_AI_ENABLED"`
	AITimeoutSeconds  int    `mapstructure:"AI_TIMEOUT_SECONDS"`

	// Notifications
	EmailServiceURL            string `mapstructure:"EMAIL_SERVICE_URL"`
	SMSServiceURL              string `mapstructure:"SMS_SERVICE_URL"`
	PushServiceURL             string `mapstructure:"PUSH_SERVICE_URL"`
	SMTPHost                   string `mapstructure:"SMTP_HOST"`
	SMTPPort                   int    `mapstructure:"SMTP_PORT"`
	SMTPUsername               string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword               string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom                   string `mapstructure:"SMTP_FROM"`
	TwilioAccountSID           string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken            string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber          string `mapstructure:"TWILIO_PHONE_NUMBER"`
	MQTTBrokerURL              string `mapstructure:"MQTT_BROKER_URL"`
	MQTTClientID               string `mapstructure:"MQTT_CLIENT_ID"`
	MQTTTopicPrefix            string `mapstructure:"MQTT_TOPIC_PREFIX"`
	NotificationTimeoutSeconds int    `mapstructure:"NOTIFICATION_TIMEOUT_SECONDS"`
	ConfirmationTemplateID     string `mapstructure:"APPOINTMENT_CONFIRMATION_TEMPLATE"`
	ReminderTemplateID         string `mapstructure:"APPOINTMENT_REMINDER_TEMPLATE"`
	PrescriptionTemplateID     string `mapstructure:"PRESCRIPTION_READY_TEMPLATE"`

	// Video
	GoogleServiceAccountFile string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleCalendarID         string `mapstructure:"GOOGLE_CALENDAR_ID"`
	FallbackVideoService     string `mapstructure:"FALLBACK_VIDEO_SERVICE"`
	ZoomAPIKey               string `mapstructure:"ZOOM_API_KEY"`
	ZoomAPISecret            string `mapstructure:"ZOOM_API_SECRET"`
	VideoBaseURL             string `mapstructure:"VIDEO_BASE_URL"`

	// Uploads
	UploadDir        string   `mapstructure:"UPLOAD_DIR"`
	MaxFileSize      int64    `mapstructure:"MAX_FILE_SIZE"`
	AllowedFileTypes []string `mapstructure:"ALLOWED_FILE_TYPES"`
}

var defaults = map[string]interface{}{
	"PORT":                         "8000",
	"ENV":                          "development",
	"DB_MAX_CONNS":                 20,
	"DB_MIN_CONNS":                 2,
	"CORS_ORIGINS":                 "http://localhost:5173",
	"RATE_LIMIT_RPS":               50,
	"RATE_LIMIT_BURST":             100,
	"MIGRATIONS_DIR":               "./migrations",
	"ALGORITHM":                    "HS256",
	"ACCESS_TOKEN_EXPIRE_MINUTES":  30,
	"AI_SERVICE_URL":               "http://localhost:8484/analyze-symptoms",
	"FALLBACK_AI_ENABLED":          true,
	"AI_TIMEOUT_SECONDS":           10,
	"SMTP_PORT":                    587,
	"MQTT_CLIENT_ID":               "medbook-server",
	"MQTT_TOPIC_PREFIX":            "medbook/push",
	"NOTIFICATION_TIMEOUT_SECONDS": 10,
	"GOOGLE_CALENDAR_ID":           "primary",
	"FALLBACK_VIDEO_SERVICE":       "zoom",
	"VIDEO_BASE_URL":               "https://video-consultation.example.com",
	"UPLOAD_DIR":                   "uploads",
	"MAX_FILE_SIZE":                10485760,
	"ALLOWED_FILE_TYPES":           "pdf,jpg,jpeg,png,doc,docx",
}

// bound lists every key that is read from the environment without a default.
var bound = []string{
	"DATABASE_URL", "REDIS_URL", "SENTRY_DSN", "SECRET_KEY",
	"EMAIL_SERVICE_URL", "SMS_SERVICE_URL", "PUSH_SERVICE_URL",
	"SMTP_HOST", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_PHONE_NUMBER",
	"MQTT_BROKER_URL",
	"APPOINTMENT_CONFIRMATION_TEMPLATE", "APPOINTMENT_REMINDER_TEMPLATE", "PRESCRIPTION_READY_TEMPLATE",
	"GOOGLE_SERVICE_ACCOUNT_FILE", "ZOOM_API_KEY", "ZOOM_API_SECRET",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
		_ = v.BindEnv(key)
	}
	for _, key := range bound {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.AllowedFileTypes = splitList(strings.ToLower(v.GetString("ALLOWED_FILE_TYPES")))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.SecretKey == "" {
		log.Println("WARNING: SECRET_KEY is not set; using an insecure development key.")
		cfg.SecretKey = "dev-secret-key-change-me"
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
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

// AccessTokenTTL is the lifetime of an issued bearer token.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.NotificationTimeoutSeconds) * time.Second
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required when ENV=%q", c.Env)
	}
	if c.IsProduction() && len(c.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY must be at least 32 characters in production, got %d", len(c.SecretKey))
	}
	if c.Algorithm != "HS256" {
		return fmt.Errorf("ALGORITHM must be \"HS256\", got %q", c.Algorithm)
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.AccessTokenExpireMinutes)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxFileSize)
	}
	if len(c.AllowedFileTypes) == 0 {
		return fmt.Errorf("ALLOWED_FILE_TYPES must list at least one extension")
	}
	if c.TwilioAccountSID != "" && (c.TwilioAuthToken == "" || c.TwilioPhoneNumber == "") {
		return fmt.Errorf("TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER are required when TWILIO_ACCOUNT_SID is set")
	}
	return nil
}

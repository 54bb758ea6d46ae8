// Package config loads service settings from the environment and an optional
// .env file, and owns the process logger.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned by Validate when no Gemini key is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY (or GOOGLE_API_KEY) must be set")

// Config holds every setting the server reads at startup.
type Config struct {
	Port string

	GeminiAPIKey      string
	GeminiModel       string
	GeminiTimeout     time.Duration
	GeminiMaxAttempts int
	GeminiRetryDelay  time.Duration

	SessionSecret  string
	SessionName    string
	SessionMaxAge  int
	SecureCookies  bool
	DatabaseURL    string
	AllowedOrigins []string
	MaxUploadBytes int64

	LogLevel  string
	LogFormat string

	R2 R2Config
}

// R2Config is the optional Cloudflare R2 bucket used to archive reports.
type R2Config struct {
	AccountID       string
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

// Enabled reports whether every R2 setting is present.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.BucketName != "" && c.AccessKeyID != "" &&
		c.SecretAccessKey != "" && c.PublicURL != ""
}

// LoadDotEnv loads a .env file from the working directory. A missing file is
// not an error; the caller falls back to the process environment.
func LoadDotEnv(filenames ...string) (bool, error) {
	if err := godotenv.Load(filenames...); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Load reads the configuration from environment variables, applying defaults
// for everything except the Gemini key.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("gemini_model", "gemini-1.5-flash-latest")
	v.SetDefault("gemini_timeout", 2*time.Minute)
	v.SetDefault("gemini_max_attempts", 3)
	v.SetDefault("gemini_retry_delay", 2*time.Second)
	v.SetDefault("session_name", "mindmate_session")
	v.SetDefault("session_max_age", 86400)
	v.SetDefault("secure_cookies", false)
	v.SetDefault("allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// GOOGLE_API_KEY is accepted for older deployments; GEMINI_API_KEY wins when both exist.
	if err := v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("allowed_origins", "ALLOWED_ORIGINS", "FRONTEND_URL"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("r2.account_id", "CLOUDFLARE_ACCOUNT_ID"); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              v.GetString("port"),
		GeminiAPIKey:      v.GetString("gemini_api_key"),
		GeminiModel:       v.GetString("gemini_model"),
		GeminiTimeout:     v.GetDuration("gemini_timeout"),
		GeminiMaxAttempts: v.GetInt("gemini_max_attempts"),
		GeminiRetryDelay:  v.GetDuration("gemini_retry_delay"),
		SessionSecret:     v.GetString("session_secret"),
		SessionName:       v.GetString("session_name"),
		SessionMaxAge:     v.GetInt("session_max_age"),
		SecureCookies:     v.GetBool("secure_cookies"),
		DatabaseURL:       v.GetString("database_url"),
		AllowedOrigins:    splitOrigins(v.GetStringSlice("allowed_origins")),
		MaxUploadBytes:    v.GetInt64("max_upload_mb") << 20,
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			BucketName:      v.GetString("r2.bucket_name"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			PublicURL:       v.GetString("r2.public_url"),
		},
	}

	if cfg.GeminiMaxAttempts < 1 {
		cfg.GeminiMaxAttempts = 1
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// splitOrigins accepts both a list and a single comma separated value, and
// drops trailing slashes so they match the Origin header.
func splitOrigins(raw []string) []string {
	var origins []string
	for _, entry := range raw {
		for _, o := range strings.Split(entry, ",") {
			o = strings.TrimSuffix(strings.TrimSpace(o), "/")
			if o != "" {
				origins = append(origins, o)
			}
		}
	}
	return origins
}

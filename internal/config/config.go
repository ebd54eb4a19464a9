package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	AppBaseURL  string
	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	SessionTokenTTL time.Duration
	ResetTokenTTL   time.Duration
	OneTimeCodeTTL  time.Duration
	MailCooldown    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	UploadDir       string
	UploadMaxSizeMB int
	LoginRatePerMin int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("KOPMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "KOPMA API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.base_url", "http://localhost:5173")
	v.SetDefault("session.token_ttl", "24h")
	v.SetDefault("reset.token_ttl", "10m")
	v.SetDefault("login_code.ttl", "5m")
	v.SetDefault("mail.cooldown", "1m")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_size_mb", 5)
	v.SetDefault("login_rate_per_min", 10)

	sessionTTL, err := parseDuration(v, "session.token_ttl")
	if err != nil {
		return Config{}, err
	}
	resetTTL, err := parseDuration(v, "reset.token_ttl")
	if err != nil {
		return Config{}, err
	}
	codeTTL, err := parseDuration(v, "login_code.ttl")
	if err != nil {
		return Config{}, err
	}
	cooldown, err := parseDuration(v, "mail.cooldown")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		AppBaseURL:  strings.TrimRight(v.GetString("app.base_url"), "/"),
		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),

		JWTSecret:       v.GetString("jwt.secret"),
		SessionTokenTTL: sessionTTL,
		ResetTokenTTL:   resetTTL,
		OneTimeCodeTTL:  codeTTL,
		MailCooldown:    cooldown,

		SMTPHost:     v.GetString("smtp.host"),
		SMTPPort:     v.GetInt("smtp.port"),
		SMTPUsername: v.GetString("smtp.username"),
		SMTPPassword: v.GetString("smtp.password"),
		MailFrom:     v.GetString("mail.from"),

		UploadDir:       v.GetString("upload.dir"),
		UploadMaxSizeMB: v.GetInt("upload.max_size_mb"),
		LoginRatePerMin: v.GetInt("login_rate_per_min"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUsername
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 5
	}

	if cfg.LoginRatePerMin <= 0 {
		cfg.LoginRatePerMin = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}

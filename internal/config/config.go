package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the lobby chat API.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	SessionSecret       string
	SessionTTL          time.Duration
	SessionCookieName   string
	GoogleClientID      string
	DefaultHistoryLimit int
	EventChannelBase    string
	CORSOrigins         string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LOBBY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Lobby Chat API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "4100")
	v.SetDefault("session.ttl", "168h")
	v.SetDefault("session.cookie", "lobby_session")
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.event_base", "lobby")
	v.SetDefault("cors.origins", "*")

	ttlString := v.GetString("session.ttl")
	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid session ttl: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		SessionSecret:       v.GetString("session.secret"),
		SessionTTL:          ttl,
		SessionCookieName:   v.GetString("session.cookie"),
		GoogleClientID:      v.GetString("google.client_id"),
		DefaultHistoryLimit: v.GetInt("chat.history_limit"),
		EventChannelBase:    v.GetString("chat.event_base"),
		CORSOrigins:         v.GetString("cors.origins"),
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("session secret must be provided")
	}

	if cfg.DefaultHistoryLimit <= 0 {
		cfg.DefaultHistoryLimit = 50
	}

	return cfg, nil
}

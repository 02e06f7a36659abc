package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	AccessSecret string
	TokenTTL     time.Duration
}

type TelemetryConfig struct {
	Enabled bool
}

type HubConfig struct {
	ClientBufferSize int
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	Auth        AuthConfig
	Telemetry   TelemetryConfig
	Hub         HubConfig
	LotConfig   string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			TokenTTL:     v.GetDuration("TOKEN_TTL"),
		},
		Telemetry: TelemetryConfig{
			Enabled: v.GetBool("TELEMETRY_ENABLED"),
		},
		Hub: HubConfig{
			ClientBufferSize: v.GetInt("WS_CLIENT_BUFFER"),
		},
		LotConfig: v.GetString("LOT_CONFIG"),
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 12 * time.Hour
	}
	if cfg.Hub.ClientBufferSize <= 0 {
		cfg.Hub.ClientBufferSize = 64
	}
	if cfg.LotConfig == "" {
		cfg.LotConfig = "lot.yaml"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the API binary needs at startup. Values come
// from the environment with TESSERA_ prefixed keys; a config file can be
// pointed at via TESSERA_CONFIG_FILE.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Rate     RateConfig
}

type ServerConfig struct {
	Addr string
}

type DatabaseConfig struct {
	DSN string
}

type AuthConfig struct {
	// Salt feeds the fixed-salt credential hash. Required outside tests.
	Salt     string
	TokenTTL time.Duration
}

type RateConfig struct {
	Burst     int
	PerSecond int
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TESSERA")
	v.AutomaticEnv()
	if p := os.Getenv("TESSERA_CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetDefault("addr", ":8080")
	v.SetDefault("token_ttl", "1h")
	v.SetDefault("rate_burst", 20)
	v.SetDefault("rate_per_second", 10)

	cfg := &Config{
		Server: ServerConfig{
			Addr: v.GetString("addr"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("pg_dsn"),
		},
		Auth: AuthConfig{
			Salt:     v.GetString("auth_salt"),
			TokenTTL: v.GetDuration("token_ttl"),
		},
		Rate: RateConfig{
			Burst:     v.GetInt("rate_burst"),
			PerSecond: v.GetInt("rate_per_second"),
		},
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = time.Hour
	}
	if cfg.Auth.Salt == "" {
		return nil, fmt.Errorf("TESSERA_AUTH_SALT is required")
	}
	return cfg, nil
}

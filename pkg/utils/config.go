package utils

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type AuthConfig struct {
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"chatsim"`
	JWTDuration time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	TCPAddr  string `env:"TCP_ADDR" envDefault:":7070"`
	// TrustedProxies avoids gin's "trusted all proxies" warning.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envDefault:"127.0.0.1" envSeparator:","`
}

type SourcesConfig struct {
	// Path of the YAML file describing the built-in data sources.
	Path         string        `env:"PATH" envDefault:"configs/sources.yaml"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
}

type Config struct {
	Server  ServerConfig  `envPrefix:"SERVER_"`
	Auth    AuthConfig    `envPrefix:"AUTH_"`
	Sources SourcesConfig `envPrefix:"SOURCES_"`
	// DefaultLang is used for display names when a request names no locale.
	DefaultLang string `env:"DEFAULT_LANG" envDefault:"en"`
}

// LoadConfig reads an optional .env file and then CHATSIM_* variables.
func LoadConfig() (Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CHATSIM_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

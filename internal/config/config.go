package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"

	"github.com/information-sharing-networks/veogen/internal/generator"
)

// Environment variables with defaults. Command line flags override them.
type Environment struct {
	Environment string `env:"VEO_ENVIRONMENT,default=dev"`
	LogLevel    string `env:"VEO_LOG_LEVEL,default=info"`

	// VEO generation settings
	HashAlgorithm string `env:"VEO_HASH_ALGORITHM,default=SHA-256"`
	RevisionID    int    `env:"VEO_REVISION_ID,default=1"`
	OutputDir     string `env:"VEO_OUTPUT_DIR,default=."`
	TemplateDir   string `env:"VEO_TEMPLATE_DIR"`

	// signer settings - the password is read from the environment so it does not have
	// to appear on the command line
	SignerPassword string `env:"VEO_SIGNER_PASSWORD"`
	KeyFormat      string `env:"VEO_KEY_FORMAT"`

	// database settings, only used when VEO data is read with a query
	DatabaseURL         string        `env:"VEO_DATABASE_URL"`
	DBMaxConnections    int32         `env:"VEO_DB_MAX_CONNECTIONS,default=2"`
	DBConnectTimeout    time.Duration `env:"VEO_DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"VEO_DATABASE_PING_TIMEOUT,default=10s"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

var validKeyFormats = map[string]bool{
	"":    true,
	"pfx": true,
	"pem": true,
	"jwk": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NewConfig loads environment variables and returns an Environment struct that contains the values
func NewConfig() (*Environment, error) {
	var cfg Environment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig checks the values that have a fixed range
func validateConfig(cfg *Environment) error {
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid VEO_ENVIRONMENT: %s", cfg.Environment)
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid VEO_LOG_LEVEL: %s (must be debug, info, warn or error)", cfg.LogLevel)
	}
	if _, err := generator.ParseHashAlgorithm(cfg.HashAlgorithm); err != nil {
		return fmt.Errorf("invalid VEO_HASH_ALGORITHM: %w", err)
	}
	if cfg.RevisionID < 1 {
		return fmt.Errorf("VEO_REVISION_ID must be at least 1, got %d", cfg.RevisionID)
	}
	if !validKeyFormats[cfg.KeyFormat] {
		return fmt.Errorf("invalid VEO_KEY_FORMAT: %s (must be pfx, pem or jwk)", cfg.KeyFormat)
	}
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("VEO_DB_MAX_CONNECTIONS must be at least 1")
	}
	return nil
}

package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestNewConfig_Defaults(t *testing.T) {
	for _, name := range []string{"VEO_ENVIRONMENT", "VEO_LOG_LEVEL", "VEO_HASH_ALGORITHM", "VEO_REVISION_ID", "VEO_OUTPUT_DIR", "VEO_KEY_FORMAT"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.Environment != "dev" || cfg.LogLevel != "info" || cfg.HashAlgorithm != "SHA-256" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RevisionID != 1 || cfg.OutputDir != "." {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.DBConnectTimeout != 5*time.Second {
		t.Errorf("DBConnectTimeout = %v, want 5s", cfg.DBConnectTimeout)
	}
}

func TestNewConfig_FromEnvironment(t *testing.T) {
	t.Setenv("VEO_ENVIRONMENT", "prod")
	t.Setenv("VEO_HASH_ALGORITHM", "sha-512")
	t.Setenv("VEO_REVISION_ID", "3")
	t.Setenv("VEO_SIGNER_PASSWORD", "secret")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.Environment != "prod" || cfg.HashAlgorithm != "sha-512" || cfg.RevisionID != 3 || cfg.SignerPassword != "secret" {
		t.Errorf("NewConfig() = %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() Environment {
		return Environment{
			Environment:      "dev",
			LogLevel:         "info",
			HashAlgorithm:    "SHA-256",
			RevisionID:       1,
			DBMaxConnections: 1,
		}
	}

	tests := []struct {
		name    string
		modify  func(*Environment)
		wantErr string
	}{
		{"valid", func(*Environment) {}, ""},
		{"bad environment", func(c *Environment) { c.Environment = "qa" }, "VEO_ENVIRONMENT"},
		{"bad log level", func(c *Environment) { c.LogLevel = "trace" }, "VEO_LOG_LEVEL"},
		{"bad hash", func(c *Environment) { c.HashAlgorithm = "MD5" }, "VEO_HASH_ALGORITHM"},
		{"bad revision", func(c *Environment) { c.RevisionID = 0 }, "VEO_REVISION_ID"},
		{"bad key format", func(c *Environment) { c.KeyFormat = "p7b" }, "VEO_KEY_FORMAT"},
		{"bad pool size", func(c *Environment) { c.DBMaxConnections = 0 }, "VEO_DB_MAX_CONNECTIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validateConfig() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateConfig() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

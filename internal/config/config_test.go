package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefaultContactPathsNotShared(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enrich.ContactPaths[0] = "/changed"
	if DefaultContactPaths[0] != "/contact" {
		t.Error("DefaultConfig must copy the contact paths")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "njbuds.yaml")
	data := `
http:
  timeout: 5s
enrich:
  workers: 4
  contact_paths: ["/visit"]
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.HTTP.Timeout)
	}
	if cfg.Enrich.Workers != 4 {
		t.Errorf("workers = %d", cfg.Enrich.Workers)
	}
	if len(cfg.Enrich.ContactPaths) != 1 || cfg.Enrich.ContactPaths[0] != "/visit" {
		t.Errorf("contact paths = %v", cfg.Enrich.ContactPaths)
	}
	if cfg.Enrich.CheckpointEvery != 25 {
		t.Errorf("unset keys should keep defaults, checkpoint_every = %d", cfg.Enrich.CheckpointEvery)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NJBUDS_ENRICH_WORKERS", "3")
	t.Setenv("NJ_SODA_APP_TOKEN", "tok")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Enrich.Workers != 3 {
		t.Errorf("workers = %d, want env override 3", cfg.Enrich.Workers)
	}
	if cfg.Sources.OpenDataToken != "tok" {
		t.Errorf("token = %q", cfg.Sources.OpenDataToken)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero workers", func(c *Config) { c.Enrich.Workers = 0 }, "enrich.workers"},
		{"bad delay range", func(c *Config) { c.Enrich.DelayMax = 0 }, "delay range"},
		{"bad url", func(c *Config) { c.Sources.CRCURL = "ftp://x" }, "sources.crc_url"},
		{"mongo without db", func(c *Config) {
			c.Storage.MongoURI = "mongodb://localhost"
			c.Storage.MongoDatabase = ""
		}, "mongo_database"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"settle rounds", func(c *Config) { c.Browser.SettleRounds = 100 }, "settle_rounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if cfg.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0, got %d", cfg.HTTP.MaxRetries)
	}
	if cfg.HTTP.MaxBodySize <= 0 {
		return fmt.Errorf("http.max_body_size must be > 0")
	}
	if cfg.HTTP.RatePerHost < 0 {
		return fmt.Errorf("http.rate_per_host must be >= 0, got %v", cfg.HTTP.RatePerHost)
	}
	if cfg.HTTP.RatePerHost > 0 && cfg.HTTP.BurstPerHost < 1 {
		return fmt.Errorf("http.burst_per_host must be >= 1 when rate limiting, got %d", cfg.HTTP.BurstPerHost)
	}

	if cfg.Browser.WindowWidth < 320 || cfg.Browser.WindowHeight < 240 {
		return fmt.Errorf("browser window must be at least 320x240, got %dx%d",
			cfg.Browser.WindowWidth, cfg.Browser.WindowHeight)
	}
	if cfg.Browser.ScrollRounds < 1 {
		return fmt.Errorf("browser.scroll_rounds must be >= 1, got %d", cfg.Browser.ScrollRounds)
	}
	if cfg.Browser.SettleRounds < 1 || cfg.Browser.SettleRounds > cfg.Browser.ScrollRounds {
		return fmt.Errorf("browser.settle_rounds must be 1-%d, got %d", cfg.Browser.ScrollRounds, cfg.Browser.SettleRounds)
	}

	for name, raw := range map[string]string{
		"sources.crc_url":         cfg.Sources.CRCURL,
		"sources.atlist_fallback": cfg.Sources.AtlistFallback,
		"sources.open_data_json":  cfg.Sources.OpenDataJSON,
		"sources.open_data_csv":   cfg.Sources.OpenDataCSV,
		"sources.search_url":      cfg.Sources.SearchURL,
	} {
		if err := ValidateURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if cfg.Sources.OpenDataLimit < 1 {
		return fmt.Errorf("sources.open_data_limit must be >= 1, got %d", cfg.Sources.OpenDataLimit)
	}

	if cfg.Enrich.Workers < 1 {
		return fmt.Errorf("enrich.workers must be >= 1, got %d", cfg.Enrich.Workers)
	}
	if cfg.Enrich.Workers > 100 {
		return fmt.Errorf("enrich.workers must be <= 100, got %d", cfg.Enrich.Workers)
	}
	if cfg.Enrich.CheckpointEvery < 1 {
		return fmt.Errorf("enrich.checkpoint_every must be >= 1, got %d", cfg.Enrich.CheckpointEvery)
	}
	if cfg.Enrich.DelayMin < 0 || cfg.Enrich.DelayMax < cfg.Enrich.DelayMin {
		return fmt.Errorf("enrich delay range invalid: %v-%v", cfg.Enrich.DelayMin, cfg.Enrich.DelayMax)
	}
	if cfg.Enrich.MaxSearchLinks < 1 {
		return fmt.Errorf("enrich.max_search_links must be >= 1, got %d", cfg.Enrich.MaxSearchLinks)
	}

	if cfg.Storage.MongoURI != "" && (cfg.Storage.MongoDatabase == "" || cfg.Storage.MongoCollection == "") {
		return fmt.Errorf("storage.mongo_database and storage.mongo_collection are required with a mongo_uri")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

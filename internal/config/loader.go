package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// tokenEnv is the Socrata app token variable the open-data API documents.
const tokenEnv = "NJ_SODA_APP_TOKEN"

// Load reads configuration from file and environment.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
// CLI flags are applied by the caller after Load returns.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NJBUDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("njbuds")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".njbuds"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Sources.OpenDataToken == "" {
		cfg.Sources.OpenDataToken = os.Getenv(tokenEnv)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so every key can be
// overridden from the environment.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("http.timeout", cfg.HTTP.Timeout)
	v.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
	v.SetDefault("http.max_retries", cfg.HTTP.MaxRetries)
	v.SetDefault("http.retry_delay", cfg.HTTP.RetryDelay)
	v.SetDefault("http.max_body_size", cfg.HTTP.MaxBodySize)
	v.SetDefault("http.rate_per_host", cfg.HTTP.RatePerHost)
	v.SetDefault("http.burst_per_host", cfg.HTTP.BurstPerHost)
	v.SetDefault("http.max_idle_conns", cfg.HTTP.MaxIdleConns)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.window_width", cfg.Browser.WindowWidth)
	v.SetDefault("browser.window_height", cfg.Browser.WindowHeight)
	v.SetDefault("browser.control_url", cfg.Browser.ControlURL)
	v.SetDefault("browser.page_timeout", cfg.Browser.PageTimeout)
	v.SetDefault("browser.page_settle", cfg.Browser.PageSettle)
	v.SetDefault("browser.widget_settle", cfg.Browser.WidgetSettle)
	v.SetDefault("browser.scroll_pause", cfg.Browser.ScrollPause)
	v.SetDefault("browser.scroll_rounds", cfg.Browser.ScrollRounds)
	v.SetDefault("browser.settle_rounds", cfg.Browser.SettleRounds)
	v.SetDefault("browser.zoom_out_steps", cfg.Browser.ZoomOutSteps)

	v.SetDefault("sources.crc_url", cfg.Sources.CRCURL)
	v.SetDefault("sources.atlist_fallback", cfg.Sources.AtlistFallback)
	v.SetDefault("sources.open_data_json", cfg.Sources.OpenDataJSON)
	v.SetDefault("sources.open_data_csv", cfg.Sources.OpenDataCSV)
	v.SetDefault("sources.open_data_limit", cfg.Sources.OpenDataLimit)
	v.SetDefault("sources.open_data_token", cfg.Sources.OpenDataToken)
	v.SetDefault("sources.search_url", cfg.Sources.SearchURL)
	v.SetDefault("sources.search_browser_url", cfg.Sources.SearchBrowser)

	v.SetDefault("enrich.workers", cfg.Enrich.Workers)
	v.SetDefault("enrich.checkpoint_every", cfg.Enrich.CheckpointEvery)
	v.SetDefault("enrich.contact_paths", cfg.Enrich.ContactPaths)
	v.SetDefault("enrich.delay_min", cfg.Enrich.DelayMin)
	v.SetDefault("enrich.delay_max", cfg.Enrich.DelayMax)
	v.SetDefault("enrich.search_delay", cfg.Enrich.SearchDelay)
	v.SetDefault("enrich.max_search_links", cfg.Enrich.MaxSearchLinks)
	v.SetDefault("enrich.guess_domains", cfg.Enrich.GuessDomains)
	v.SetDefault("enrich.summary_path", cfg.Enrich.SummaryPath)

	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

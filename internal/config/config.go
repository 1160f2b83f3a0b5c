package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for njbuds.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"    yaml:"http"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Sources SourcesConfig `mapstructure:"sources" yaml:"sources"`
	Enrich  EnrichConfig  `mapstructure:"enrich"  yaml:"enrich"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// HTTPConfig controls plain HTTP fetching.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"        yaml:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"     yaml:"user_agent"`
	MaxRetries   int           `mapstructure:"max_retries"    yaml:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"    yaml:"retry_delay"`
	MaxBodySize  int64         `mapstructure:"max_body_size"  yaml:"max_body_size"`
	RatePerHost  float64       `mapstructure:"rate_per_host"  yaml:"rate_per_host"` // requests/second, 0 = unlimited
	BurstPerHost int           `mapstructure:"burst_per_host" yaml:"burst_per_host"`
	MaxIdleConns int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// BrowserConfig controls the headless Chromium used for the CRC page and
// the Atlist widget.
type BrowserConfig struct {
	Headless     bool          `mapstructure:"headless"      yaml:"headless"`
	Stealth      bool          `mapstructure:"stealth"       yaml:"stealth"`
	WindowWidth  int           `mapstructure:"window_width"  yaml:"window_width"`
	WindowHeight int           `mapstructure:"window_height" yaml:"window_height"`
	ControlURL   string        `mapstructure:"control_url"   yaml:"control_url"` // attach to a running browser instead of launching
	PageTimeout  time.Duration `mapstructure:"page_timeout"  yaml:"page_timeout"`
	PageSettle   time.Duration `mapstructure:"page_settle"   yaml:"page_settle"`   // after loading the CRC page
	WidgetSettle time.Duration `mapstructure:"widget_settle" yaml:"widget_settle"` // after loading the Atlist map
	ScrollPause  time.Duration `mapstructure:"scroll_pause"  yaml:"scroll_pause"`
	ScrollRounds int           `mapstructure:"scroll_rounds" yaml:"scroll_rounds"`
	SettleRounds int           `mapstructure:"settle_rounds" yaml:"settle_rounds"`
	ZoomOutSteps int           `mapstructure:"zoom_out_steps" yaml:"zoom_out_steps"`
}

// SourcesConfig holds the upstream URLs.
type SourcesConfig struct {
	CRCURL         string `mapstructure:"crc_url"          yaml:"crc_url"`
	AtlistFallback string `mapstructure:"atlist_fallback"  yaml:"atlist_fallback"`
	OpenDataJSON   string `mapstructure:"open_data_json"   yaml:"open_data_json"`
	OpenDataCSV    string `mapstructure:"open_data_csv"    yaml:"open_data_csv"`
	OpenDataLimit  int    `mapstructure:"open_data_limit"  yaml:"open_data_limit"`
	OpenDataToken  string `mapstructure:"open_data_token"  yaml:"open_data_token"`
	SearchURL      string `mapstructure:"search_url"         yaml:"search_url"`         // DuckDuckGo HTML endpoint
	SearchBrowser  string `mapstructure:"search_browser_url" yaml:"search_browser_url"` // DuckDuckGo for the browser backend
}

// EnrichConfig controls the enrichment steps.
type EnrichConfig struct {
	Workers         int           `mapstructure:"workers"          yaml:"workers"`
	CheckpointEvery int           `mapstructure:"checkpoint_every" yaml:"checkpoint_every"`
	ContactPaths    []string      `mapstructure:"contact_paths"    yaml:"contact_paths"`
	DelayMin        time.Duration `mapstructure:"delay_min"        yaml:"delay_min"`
	DelayMax        time.Duration `mapstructure:"delay_max"        yaml:"delay_max"`
	SearchDelay     time.Duration `mapstructure:"search_delay"     yaml:"search_delay"`
	MaxSearchLinks  int           `mapstructure:"max_search_links" yaml:"max_search_links"`
	GuessDomains    bool          `mapstructure:"guess_domains"    yaml:"guess_domains"`
	SummaryPath     string        `mapstructure:"summary_path"     yaml:"summary_path"`
}

// StorageConfig controls the optional MongoDB mirror. CSV output is always
// written.
type StorageConfig struct {
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultContactPaths are the site paths tried when a homepage shows no phone.
var DefaultContactPaths = []string{
	"/contact", "/contact-us", "/contactus",
	"/locations", "/location", "/store", "/stores",
	"/about", "/about-us",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      12 * time.Second,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) NJBudsSiteBot/1.0",
			MaxRetries:   1,
			RetryDelay:   2 * time.Second,
			MaxBodySize:  5 * 1024 * 1024, // 5MB
			RatePerHost:  2,
			BurstPerHost: 2,
			MaxIdleConns: 100,
		},
		Browser: BrowserConfig{
			Headless:     true,
			Stealth:      true,
			WindowWidth:  1440,
			WindowHeight: 1000,
			PageTimeout:  60 * time.Second,
			PageSettle:   4 * time.Second,
			WidgetSettle: 6 * time.Second,
			ScrollPause:  900 * time.Millisecond,
			ScrollRounds: 45,
			SettleRounds: 6,
			ZoomOutSteps: 6,
		},
		Sources: SourcesConfig{
			CRCURL:         "https://www.nj.gov/cannabis/dispensaries/find/",
			AtlistFallback: "https://my.atlist.com/map/8bed33fa-9b8c-4c51-bb33-74cd0d98628a?share=true",
			OpenDataJSON:   "https://data.nj.gov/resource/8hz7-zvhn.json",
			OpenDataCSV:    "https://data.nj.gov/resource/8hz7-zvhn.csv",
			OpenDataLimit:  5000,
			SearchURL:      "https://html.duckduckgo.com/html/",
			SearchBrowser:  "https://duckduckgo.com/",
		},
		Enrich: EnrichConfig{
			Workers:         10,
			CheckpointEvery: 25,
			ContactPaths:    append([]string(nil), DefaultContactPaths...),
			DelayMin:        1 * time.Second,
			DelayMax:        2 * time.Second,
			SearchDelay:     900 * time.Millisecond,
			MaxSearchLinks:  10,
			SummaryPath:     "enrich_log.txt",
		},
		Storage: StorageConfig{
			MongoDatabase:   "njbuds",
			MongoCollection: "dispensaries",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

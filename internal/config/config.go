package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone    = "UTC"
	configPathEnv      = "PRICE_SCANNER_CONFIG"
	databaseDSNEnv     = "DATABASE_DSN"
	extractorURLEnv    = "EXTRACTOR_ENDPOINT"
	extractorAPIKeyEnv = "EXTRACTOR_API_KEY"
	scrapeOrgEnv       = "SCRAPE_ORG_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// LoggingConfig selects log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN runs
// the service against the in-memory catalog (demo mode).
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the import pipeline should run. When not
// enabled, the binary performs a single run and exits.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ExtractorConfig defines how to contact the extraction service.
type ExtractorConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"apiKey"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	RetryCount     int    `yaml:"retryCount"`
}

// Timeout resolves the configured request timeout.
func (e ExtractorConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// ScrapeConfig groups settings for the concurrent multi-source fetch.
type ScrapeConfig struct {
	OrgID               string `yaml:"orgId"`
	DefaultDelaySeconds int    `yaml:"defaultDelaySeconds"`
	UserAgent           string `yaml:"userAgent"`
}

// DefaultDelay resolves the org-wide minimum per-domain delay.
func (s ScrapeConfig) DefaultDelay() time.Duration {
	if s.DefaultDelaySeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(s.DefaultDelaySeconds) * time.Second
}

// SourceConfig describes a single pipeline source with its importer strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Importer string            `yaml:"importer"`
	Options  map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(extractorURLEnv); v != "" {
		c.Extractor.Endpoint = v
	}

	if v := os.Getenv(extractorAPIKeyEnv); v != "" {
		c.Extractor.APIKey = v
	}

	if v := os.Getenv(scrapeOrgEnv); v != "" {
		c.Scrape.OrgID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Extractor.Endpoint != "" {
		base.Extractor.Endpoint = override.Extractor.Endpoint
	}
	if override.Extractor.APIKey != "" {
		base.Extractor.APIKey = override.Extractor.APIKey
	}
	if override.Extractor.TimeoutSeconds > 0 {
		base.Extractor.TimeoutSeconds = override.Extractor.TimeoutSeconds
	}
	if override.Extractor.RetryCount > 0 {
		base.Extractor.RetryCount = override.Extractor.RetryCount
	}

	if override.Scrape.OrgID != "" {
		base.Scrape.OrgID = override.Scrape.OrgID
	}
	if override.Scrape.DefaultDelaySeconds > 0 {
		base.Scrape.DefaultDelaySeconds = override.Scrape.DefaultDelaySeconds
	}
	if override.Scrape.UserAgent != "" {
		base.Scrape.UserAgent = override.Scrape.UserAgent
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{DSN: ""},
		Scheduler: SchedulerConfig{CronExpression: "0 5 * * *", Timezone: defaultTimezone, location: tz},
		Extractor: ExtractorConfig{
			Endpoint:       "http://localhost:8200",
			TimeoutSeconds: 60,
			RetryCount:     2,
		},
		Scrape: ScrapeConfig{
			OrgID:               "",
			DefaultDelaySeconds: 2,
			UserAgent:           "PriceScanner/1.0",
		},
		Sources: []SourceConfig{
			{
				Name:     "demo-vendor",
				Importer: "demo",
				Options:  map[string]string{"region": "central", "currency": "USD"},
			},
		},
	}
}

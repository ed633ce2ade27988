package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stay_scout/models"
)

type Config struct {
	ExpressVPN ExpressVPNConfig
	Proxy      ProxyConfig
	Maps       MapsConfig
	Anthropic  AnthropicConfig
	Postgres   PostgresConfig
	S3         S3Config
	Scheduler  SchedulerConfig
	Scraper    ScraperConfig
	DBPath     string
	ResultsDir string
	ListenAddr string
	LogLevel   string
	Platforms  map[string]*PlatformConfig
	Search     *models.SearchCriteria
}

type ExpressVPNConfig struct {
	ActivationCode string
	AutoConnect    bool
	Region         string
}

type ProxyConfig struct {
	URL string
}

type MapsConfig struct {
	APIKey string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type PostgresConfig struct {
	DSN string
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ScraperConfig struct {
	DelayMS    int
	MaxDetails int
	Headless   bool
}

type PlatformConfig struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	BaseURL      string  `yaml:"base_url"`
	RatingScale  float64 `yaml:"rating_scale"`
	RateLimitMS  int     `yaml:"rate_limit_ms"`
	MaxPages     int     `yaml:"max_pages"`
	CardSelector string  `yaml:"card_selector"`
	Enabled      bool    `yaml:"enabled"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ExpressVPN: ExpressVPNConfig{
			ActivationCode: os.Getenv("EXPRESSVPN_ACTIVATION_CODE"),
			AutoConnect:    os.Getenv("EXPRESSVPN_AUTOCONNECT") == "true",
			Region:         getEnv("EXPRESSVPN_REGION", "smart"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		Maps: MapsConfig{
			APIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		},
		Anthropic: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    getEnv("S3_REGION", "auto"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SEARCH_CRON"),
		},
		Scraper: ScraperConfig{
			DelayMS:    getEnvInt("SCRAPE_DELAY_MS", 500),
			MaxDetails: getEnvInt("MAX_DETAIL_PAGES", 25),
			Headless:   getEnv("HEADLESS", "true") == "true",
		},
		DBPath:     getEnv("DB_PATH", "stay_scout.db"),
		ResultsDir: getEnv("RESULTS_DIR", "results"),
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Platforms:  make(map[string]*PlatformConfig),
	}

	if interval := os.Getenv("SEARCH_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadPlatformConfigs(); err != nil {
		return nil, err
	}

	if err := cfg.loadSearchCriteria(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadPlatformConfigs() error {
	configDir := "config/platforms"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var platform PlatformConfig
		if err := yaml.Unmarshal(data, &platform); err != nil {
			return err
		}

		c.Platforms[platform.ID] = &platform
	}

	return nil
}

func (c *Config) loadSearchCriteria() error {
	path := getEnv("SEARCH_CONFIG", "config/search.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var criteria models.SearchCriteria
	if err := yaml.Unmarshal(data, &criteria); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.Search = &criteria
	return nil
}

// EnabledPlatforms returns the platform IDs to search, honoring the given
// criteria's platform list when set and falling back to every enabled
// platform config otherwise.
func (c *Config) EnabledPlatforms(criteria *models.SearchCriteria) []models.Platform {
	if criteria != nil && len(criteria.Platforms) > 0 {
		return criteria.Platforms
	}
	var out []models.Platform
	for _, p := range models.AllPlatforms {
		if pc, ok := c.Platforms[string(p)]; ok && pc.Enabled {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

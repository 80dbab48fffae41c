package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "IPO_WATCHER_CONFIG"
	dataDirEnv        = "IPO_DATA_DIR"
	serverAddrEnv     = "IPO_SERVER_ADDR"
	redisAddrEnv      = "IPO_REDIS_ADDR"
	redisPasswordEnv  = "IPO_REDIS_PASSWORD"
	scraperAPIKeyEnv  = "SCRAPER_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "IPO_LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Corpus        CorpusConfig       `yaml:"corpus"`
	Cache         CacheConfig        `yaml:"cache"`
	Redis         RedisConfig        `yaml:"redis"`
	Scraper       ScraperConfig      `yaml:"scraper"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr                   string `yaml:"addr"`
	ReadTimeoutSeconds     int    `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds    int    `yaml:"writeTimeoutSeconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdownTimeoutSeconds"`
}

// ReadTimeout resolves the listener read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout resolves the listener write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// CorpusConfig locates the year-partitioned data directory.
type CorpusConfig struct {
	DataDir string `yaml:"dataDir"`
}

// CacheConfig tunes the corpus cache refresher and the response-cache TTLs.
type CacheConfig struct {
	RefreshIntervalSeconds int `yaml:"refreshIntervalSeconds"`
	IndexTTLSeconds        int `yaml:"indexTtlSeconds"`
	DetailTTLSeconds       int `yaml:"detailTtlSeconds"`
	OverviewTTLSeconds     int `yaml:"overviewTtlSeconds"`
	SearchTTLSeconds       int `yaml:"searchTtlSeconds"`
	FallbackSize           int `yaml:"fallbackSize"`
}

// RefreshInterval resolves the background refresh period.
func (c CacheConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// IndexTTL is the response-cache lifetime of index-backed payloads.
func (c CacheConfig) IndexTTL() time.Duration {
	return time.Duration(c.IndexTTLSeconds) * time.Second
}

// DetailTTL is the response-cache lifetime of single-record payloads.
func (c CacheConfig) DetailTTL() time.Duration {
	return time.Duration(c.DetailTTLSeconds) * time.Second
}

// OverviewTTL is the response-cache lifetime of aggregate payloads.
func (c CacheConfig) OverviewTTL() time.Duration {
	return time.Duration(c.OverviewTTLSeconds) * time.Second
}

// SearchTTL is the response-cache lifetime of search payloads.
func (c CacheConfig) SearchTTL() time.Duration {
	return time.Duration(c.SearchTTLSeconds) * time.Second
}

// RedisConfig wires the distributed response-cache tier. An empty addr
// disables the tier; the in-process fallback then serves alone.
type RedisConfig struct {
	Addr             string `yaml:"addr"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db"`
	KeyPrefix        string `yaml:"keyPrefix"`
	OpTimeoutSeconds int    `yaml:"opTimeoutSeconds"`
}

// Enabled reports whether a Redis backend is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// OpTimeout bounds every single Redis call.
func (r RedisConfig) OpTimeout() time.Duration {
	return time.Duration(r.OpTimeoutSeconds) * time.Second
}

// ScraperConfig describes the upstream site and fetch politeness. ListURL
// may carry {year} and {fy} placeholders; SubscriptionURL carries {id}.
type ScraperConfig struct {
	ListURL               string  `yaml:"listUrl"`
	BaseURL               string  `yaml:"baseUrl"`
	SubscriptionURL       string  `yaml:"subscriptionUrl"`
	ProxyURL              string  `yaml:"proxyUrl"`
	APIKey                string  `yaml:"apiKey"`
	Workers               int     `yaml:"workers"`
	RefetchTop            int     `yaml:"refetchTop"`
	RequestTimeoutSeconds int     `yaml:"requestTimeoutSeconds"`
	RatePerSecond         float64 `yaml:"ratePerSecond"`
}

// RequestTimeout bounds a single upstream request.
func (s ScraperConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig selects the log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
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

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dataDirEnv); v != "" {
		c.Corpus.DataDir = v
	}

	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}

	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Redis.Password = v
	}

	if v := os.Getenv(scraperAPIKeyEnv); v != "" {
		c.Scraper.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.ReadTimeoutSeconds != 0 {
		base.Server.ReadTimeoutSeconds = override.Server.ReadTimeoutSeconds
	}
	if override.Server.WriteTimeoutSeconds != 0 {
		base.Server.WriteTimeoutSeconds = override.Server.WriteTimeoutSeconds
	}
	if override.Server.ShutdownTimeoutSeconds != 0 {
		base.Server.ShutdownTimeoutSeconds = override.Server.ShutdownTimeoutSeconds
	}

	if override.Corpus.DataDir != "" {
		base.Corpus = override.Corpus
	}

	if override.Cache.RefreshIntervalSeconds != 0 {
		base.Cache.RefreshIntervalSeconds = override.Cache.RefreshIntervalSeconds
	}
	if override.Cache.IndexTTLSeconds != 0 {
		base.Cache.IndexTTLSeconds = override.Cache.IndexTTLSeconds
	}
	if override.Cache.DetailTTLSeconds != 0 {
		base.Cache.DetailTTLSeconds = override.Cache.DetailTTLSeconds
	}
	if override.Cache.OverviewTTLSeconds != 0 {
		base.Cache.OverviewTTLSeconds = override.Cache.OverviewTTLSeconds
	}
	if override.Cache.SearchTTLSeconds != 0 {
		base.Cache.SearchTTLSeconds = override.Cache.SearchTTLSeconds
	}
	if override.Cache.FallbackSize != 0 {
		base.Cache.FallbackSize = override.Cache.FallbackSize
	}

	if override.Redis.Addr != "" {
		base.Redis.Addr = override.Redis.Addr
	}
	if override.Redis.Password != "" {
		base.Redis.Password = override.Redis.Password
	}
	if override.Redis.DB != 0 {
		base.Redis.DB = override.Redis.DB
	}
	if override.Redis.KeyPrefix != "" {
		base.Redis.KeyPrefix = override.Redis.KeyPrefix
	}
	if override.Redis.OpTimeoutSeconds != 0 {
		base.Redis.OpTimeoutSeconds = override.Redis.OpTimeoutSeconds
	}

	if override.Scraper.ListURL != "" {
		base.Scraper.ListURL = override.Scraper.ListURL
	}
	if override.Scraper.BaseURL != "" {
		base.Scraper.BaseURL = override.Scraper.BaseURL
	}
	if override.Scraper.SubscriptionURL != "" {
		base.Scraper.SubscriptionURL = override.Scraper.SubscriptionURL
	}
	if override.Scraper.ProxyURL != "" {
		base.Scraper.ProxyURL = override.Scraper.ProxyURL
	}
	if override.Scraper.APIKey != "" {
		base.Scraper.APIKey = override.Scraper.APIKey
	}
	if override.Scraper.Workers != 0 {
		base.Scraper.Workers = override.Scraper.Workers
	}
	if override.Scraper.RefetchTop != 0 {
		base.Scraper.RefetchTop = override.Scraper.RefetchTop
	}
	if override.Scraper.RequestTimeoutSeconds != 0 {
		base.Scraper.RequestTimeoutSeconds = override.Scraper.RequestTimeoutSeconds
	}
	if override.Scraper.RatePerSecond != 0 {
		base.Scraper.RatePerSecond = override.Scraper.RatePerSecond
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:                   ":1233",
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    30,
			ShutdownTimeoutSeconds: 10,
		},
		Corpus: CorpusConfig{DataDir: "IPO_DATA"},
		Cache: CacheConfig{
			RefreshIntervalSeconds: 4 * 60 * 60,
			IndexTTLSeconds:        3600,
			DetailTTLSeconds:       1800,
			OverviewTTLSeconds:     300,
			SearchTTLSeconds:       300,
			FallbackSize:           1024,
		},
		Redis: RedisConfig{
			Addr:             "",
			KeyPrefix:        "ipowatcher",
			OpTimeoutSeconds: 5,
		},
		Scraper: ScraperConfig{
			ListURL:               "https://webnodejs.chittorgarh.com/cloud/report/data-read/82/1/5/{year}/{fy}/0/all/0?search=&v=16-19",
			BaseURL:               "https://www.chittorgarh.com",
			SubscriptionURL:       "https://www.chittorgarh.net/documents/subscription/{id}/details.html",
			ProxyURL:              "http://api.scraperapi.com/",
			APIKey:                "",
			Workers:               5,
			RefetchTop:            5,
			RequestTimeoutSeconds: 30,
			RatePerSecond:         2,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

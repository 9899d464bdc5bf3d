package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	CSE        CSEConfig        `yaml:"cse" mapstructure:"cse"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Query      QueryConfig      `yaml:"query" mapstructure:"query"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Prioritize PrioritizeConfig `yaml:"prioritize" mapstructure:"prioritize"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Quality    QualityConfig    `yaml:"quality" mapstructure:"quality"`
	Breaker    BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// FirecrawlConfig holds settings for the primary search/crawl provider.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CSEConfig holds Google Programmable Search settings (fallback provider).
type CSEConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	CX      string `yaml:"cx" mapstructure:"cx"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds settings for the prioritization/extraction model.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// QueryConfig configures query building.
type QueryConfig struct {
	TemplatesPath string `yaml:"templates_path" mapstructure:"templates_path"`
	MaxLength     int    `yaml:"max_length" mapstructure:"max_length"`
}

// DiscoveryConfig configures the search fan-out stage.
type DiscoveryConfig struct {
	MaxConcurrency  int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	MaxCandidates   int `yaml:"max_candidates" mapstructure:"max_candidates"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	ResultsPerQuery int `yaml:"results_per_query" mapstructure:"results_per_query"`
}

// PrioritizeConfig configures LLM candidate scoring.
type PrioritizeConfig struct {
	ChunkSize     int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	Threshold     float64 `yaml:"threshold" mapstructure:"threshold"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRequeues   int     `yaml:"max_requeues" mapstructure:"max_requeues"`
	MinIntervalMs int     `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// ExtractConfig configures deep extraction.
type ExtractConfig struct {
	MaxURLs             int     `yaml:"max_urls" mapstructure:"max_urls"`
	MaxConcurrency      int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	CallBudget          int     `yaml:"call_budget" mapstructure:"call_budget"`
	CallsPerURL         int     `yaml:"calls_per_url" mapstructure:"calls_per_url"`
	ScrapeTimeoutSecs   int     `yaml:"scrape_timeout_secs" mapstructure:"scrape_timeout_secs"`
	EarlyStopTarget     int     `yaml:"early_stop_target" mapstructure:"early_stop_target"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	CacheTTLHours       int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// QualityConfig configures the quality gate and auto-expansion.
type QualityConfig struct {
	MinSolidHits int     `yaml:"min_solid_hits" mapstructure:"min_solid_hits"`
	ExpandDays   int     `yaml:"expand_days" mapstructure:"expand_days"`
	Threshold    float64 `yaml:"threshold" mapstructure:"threshold"`
}

// BreakerConfig configures circuit breaking for provider calls.
type BreakerConfig struct {
	CooldownSecs int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// ServerConfig configures the boundary HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("EVENTSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "eventscout.db")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("cse.base_url", "https://customsearch.googleapis.com/customsearch/v1")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.enabled", true)
	v.SetDefault("query.max_length", 256)
	v.SetDefault("discovery.max_concurrency", 12)
	v.SetDefault("discovery.max_candidates", 50)
	v.SetDefault("discovery.cache_ttl_minutes", 30)
	v.SetDefault("discovery.results_per_query", 10)
	v.SetDefault("prioritize.chunk_size", 6)
	v.SetDefault("prioritize.threshold", 0.4)
	v.SetDefault("prioritize.timeout_secs", 15)
	v.SetDefault("prioritize.max_requeues", 2)
	v.SetDefault("prioritize.min_interval_ms", 500)
	v.SetDefault("extract.max_urls", 12)
	v.SetDefault("extract.max_concurrency", 8)
	v.SetDefault("extract.call_budget", 36)
	v.SetDefault("extract.calls_per_url", 3)
	v.SetDefault("extract.scrape_timeout_secs", 30)
	v.SetDefault("extract.early_stop_target", 10)
	v.SetDefault("extract.confidence_threshold", 0.6)
	v.SetDefault("extract.cache_ttl_hours", 24)
	v.SetDefault("quality.min_solid_hits", 3)
	v.SetDefault("quality.expand_days", 30)
	v.SetDefault("quality.threshold", 0.6)
	v.SetDefault("breaker.cooldown_secs", 45)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

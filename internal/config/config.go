package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini       GeminiConfig       `yaml:"gemini" mapstructure:"gemini"`
	Yahoo        YahooConfig        `yaml:"yahoo" mapstructure:"yahoo"`
	AlphaVantage AlphaVantageConfig `yaml:"alphavantage" mapstructure:"alphavantage"`
	Browser      BrowserConfig      `yaml:"browser" mapstructure:"browser"`
	Discovery    DiscoveryConfig    `yaml:"discovery" mapstructure:"discovery"`
	Ranker       RankerConfig       `yaml:"ranker" mapstructure:"ranker"`
	Extract      ExtractConfig      `yaml:"extract" mapstructure:"extract"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Run          RunConfig          `yaml:"run" mapstructure:"run"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SearchConfig holds Google Custom Search credentials.
type SearchConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	CX          string  `yaml:"cx" mapstructure:"cx"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// LLMConfig selects the text-completion provider used for ranking and extraction.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// YahooConfig holds the free quote service endpoints.
type YahooConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// AlphaVantageConfig holds the credentialed fundamentals provider settings.
type AlphaVantageConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// BrowserConfig configures the headless renderer.
type BrowserConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Headless    bool   `yaml:"headless" mapstructure:"headless"`
	ExecPath    string `yaml:"exec_path" mapstructure:"exec_path"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	WaitMs      int    `yaml:"wait_ms" mapstructure:"wait_ms"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PoolSize    int    `yaml:"pool_size" mapstructure:"pool_size"`
}

// DiscoveryConfig configures sitemap probing and fallback URL generation.
type DiscoveryConfig struct {
	SitemapPaths       []string `yaml:"sitemap_paths" mapstructure:"sitemap_paths"`
	SitemapTimeoutSecs int      `yaml:"sitemap_timeout_secs" mapstructure:"sitemap_timeout_secs"`
	MaxSitemapBytes    int64    `yaml:"max_sitemap_bytes" mapstructure:"max_sitemap_bytes"`
	ChildConcurrency   int      `yaml:"child_concurrency" mapstructure:"child_concurrency"`
	Slugs              []string `yaml:"slugs" mapstructure:"slugs"`
	RatePerSec         float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// RankerConfig bounds the URL ranking prompt and result.
type RankerConfig struct {
	MaxCandidates int `yaml:"max_candidates" mapstructure:"max_candidates"`
	MaxURLs       int `yaml:"max_urls" mapstructure:"max_urls"`
}

// ExtractConfig bounds the text submitted for extraction.
type ExtractConfig struct {
	MaxPageChars  int `yaml:"max_page_chars" mapstructure:"max_page_chars"`
	MaxTotalChars int `yaml:"max_total_chars" mapstructure:"max_total_chars"`
}

// RetryConfig controls retries of transient oracle failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// RunConfig configures a batch run.
type RunConfig struct {
	Input       string `yaml:"input" mapstructure:"input"`
	Output      string `yaml:"output" mapstructure:"output"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultSitemapPaths are probed in order against the site root.
var DefaultSitemapPaths = []string{
	"sitemap.xml",
	"sitemap_index.xml",
	"sitemap-index.xml",
	"sitemaps/sitemap.xml",
	"sitemap/sitemap.xml",
}

// DefaultSlugs are the page names used to synthesize fallback URLs.
var DefaultSlugs = []string{
	"about", "contact", "team",
	"investor", "investors", "partners",
	"product", "products", "service", "services",
	"customer", "customers", "career", "careers",
}

// legacyEnv maps config keys to the unprefixed variable names used by
// existing .env files.
var legacyEnv = map[string]string{
	"search.key":       "GOOGLE_API_KEY",
	"search.cx":        "GOOGLE_CX",
	"gemini.key":       "GEMINI_API_KEY",
	"anthropic.key":    "ANTHROPIC_API_KEY",
	"alphavantage.key": "ALPHA_VANTAGE_API_KEY",
}

// Load reads configuration from .env, file, and environment.
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		envKey := "ENRICH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "enrich.db")
	v.SetDefault("store.table", "company_records")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("search.key", "")
	v.SetDefault("search.cx", "")
	v.SetDefault("search.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("search.timeout_secs", 10)
	v.SetDefault("search.rate_per_sec", 1.0)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("yahoo.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("yahoo.search_base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("alphavantage.key", "")
	v.SetDefault("alphavantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.wait_ms", 2000)
	v.SetDefault("browser.timeout_secs", 30)
	v.SetDefault("browser.pool_size", 1)
	v.SetDefault("discovery.sitemap_paths", DefaultSitemapPaths)
	v.SetDefault("discovery.sitemap_timeout_secs", 10)
	v.SetDefault("discovery.max_sitemap_bytes", 10<<20)
	v.SetDefault("discovery.child_concurrency", 4)
	v.SetDefault("discovery.slugs", DefaultSlugs)
	v.SetDefault("discovery.rate_per_sec", 2.0)
	v.SetDefault("ranker.max_candidates", 200)
	v.SetDefault("ranker.max_urls", 15)
	v.SetDefault("extract.max_page_chars", 100000)
	v.SetDefault("extract.max_total_chars", 150000)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("run.input", "companies.txt")
	v.SetDefault("run.output", "company_data_final.xlsx")
	v.SetDefault("run.concurrency", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Masked returns a copy of cfg with credentials replaced for display.
func (c Config) Masked() Config {
	c.Search.Key = mask(c.Search.Key)
	c.Anthropic.Key = mask(c.Anthropic.Key)
	c.Gemini.Key = mask(c.Gemini.Key)
	c.AlphaVantage.Key = mask(c.AlphaVantage.Key)
	if strings.Contains(c.Store.DatabaseURL, "@") {
		c.Store.DatabaseURL = maskURLCredentials(c.Store.DatabaseURL)
	}
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// maskURLCredentials hides the userinfo of a connection string.
func maskURLCredentials(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "****" + dsn[at:]
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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/MimeLyc/srt-translator/internal/llm"
)

// Config holds all application configuration.
//
// Values come from, in increasing priority: defaults, the YAML file named by
// SRTTRANS_CONFIG, a .env file (SRTTRANS_ENV_FILE, default ".env"), and the
// process environment. Nested keys map to environment names by upper-casing
// and replacing dots with underscores, e.g. translate.target_language is
// TRANSLATE_TARGET_LANGUAGE and llm.api_key is LLM_API_KEY.
type Config struct {
	Translate TranslateConfig `mapstructure:"translate" json:"translate"`
	Backend   BackendConfig   `mapstructure:"backend" json:"backend"`
	LLM       llm.Config      `mapstructure:"llm" json:"llm"`
	Cache     CacheConfig     `mapstructure:"cache" json:"cache"`
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Schedule  ScheduleConfig  `mapstructure:"schedule" json:"schedule"`
	System    SystemConfig    `mapstructure:"system" json:"system"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
}

const (
	NamingSuffix   = "suffix"
	NamingLanguage = "language"
)

type TranslateConfig struct {
	SourceLanguage string `mapstructure:"source_language" json:"source_language"`
	TargetLanguage string `mapstructure:"target_language" json:"target_language"`
	// Naming is NamingSuffix (name_translated.srt) or NamingLanguage (name.esp.srt).
	Naming        string        `mapstructure:"naming" json:"naming"`
	Suffix        string        `mapstructure:"suffix" json:"suffix"`
	LanguageInfix string        `mapstructure:"language_infix" json:"language_infix"`
	ProgressEvery int           `mapstructure:"progress_every" json:"progress_every"`
	CallDelay     time.Duration `mapstructure:"call_delay" json:"call_delay"`
}

const (
	ProviderGoogle = "google"
	ProviderDeepL  = "deepl"
	ProviderLLM    = "llm"
)

type BackendConfig struct {
	Provider  string        `mapstructure:"provider" json:"provider"`
	GoogleURL string        `mapstructure:"google_url" json:"google_url"`
	DeepLURL  string        `mapstructure:"deepl_url" json:"deepl_url"`
	DeepLKey  string        `mapstructure:"deepl_key" json:"-"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
}

// CacheConfig configures the Redis translation cache. An empty RedisAddr disables it.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr" json:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" json:"-"`
	RedisDB       int           `mapstructure:"redis_db" json:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl" json:"ttl"`
	KeyPrefix     string        `mapstructure:"key_prefix" json:"key_prefix"`
}

func (c CacheConfig) Enabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

// ScheduleConfig drives periodic scans of WatchDirs. An empty Cron disables it.
type ScheduleConfig struct {
	Cron      string   `mapstructure:"cron" json:"cron"`
	WatchDirs []string `mapstructure:"watch_dirs" json:"watch_dirs"`
}

func (c ScheduleConfig) Enabled() bool {
	return strings.TrimSpace(c.Cron) != "" && len(c.WatchDirs) > 0
}

type SystemConfig struct {
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
	File   string `mapstructure:"file" json:"file"`
}

// DBPath is the run history database inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.System.DataDir, "srt-translator.db")
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithTargetLanguage(lang string) Option {
	return func(c *Config) {
		c.Translate.TargetLanguage = lang
	}
}

func WithSourceLanguage(lang string) Option {
	return func(c *Config) {
		c.Translate.SourceLanguage = lang
	}
}

func WithNaming(naming string) Option {
	return func(c *Config) {
		c.Translate.Naming = naming
	}
}

func WithProvider(provider string) Option {
	return func(c *Config) {
		c.Backend.Provider = provider
	}
}

func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.Log.Level = level
	}
}

// New loads configuration from the file named by SRTTRANS_CONFIG (if any)
// and the environment, applies opts and validates.
func New(opts ...Option) (*Config, error) {
	return Load(os.Getenv("SRTTRANS_CONFIG"), opts...)
}

// Load is New with an explicit YAML file; an empty path means env only.
func Load(configFile string, opts ...Option) (*Config, error) {
	if err := loadEnvFile(getEnvString("SRTTRANS_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	_ = v.BindEnv("system.data_dir", "SYSTEM_DATA_DIR", "DATA_DIR")

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, opt := range opts {
		opt(&config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("translate.source_language", "auto")
	v.SetDefault("translate.target_language", "es")
	v.SetDefault("translate.naming", NamingSuffix)
	v.SetDefault("translate.suffix", "_translated")
	v.SetDefault("translate.language_infix", "esp")
	v.SetDefault("translate.progress_every", 3)
	v.SetDefault("translate.call_delay", "50ms")

	v.SetDefault("backend.provider", ProviderGoogle)
	v.SetDefault("backend.google_url", "https://translate.googleapis.com")
	v.SetDefault("backend.deepl_url", "https://api-free.deepl.com")
	v.SetDefault("backend.deepl_key", "")
	v.SetDefault("backend.timeout", "15s")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "openai/gpt-3.5-turbo")
	v.SetDefault("llm.max_tokens", 8000)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.site_url", "")
	v.SetDefault("llm.app_name", "")

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "720h")
	v.SetDefault("cache.key_prefix", "srttrans:")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("schedule.cron", "")
	v.SetDefault("schedule.watch_dirs", []string{})

	v.SetDefault("system.data_dir", "./data")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
}

// Validate checks language tags, naming policy and provider requirements.
func (c *Config) Validate() error {
	t := c.Translate
	if !strings.EqualFold(t.SourceLanguage, "auto") {
		if _, err := language.Parse(t.SourceLanguage); err != nil {
			return fmt.Errorf("invalid translate.source_language %q: %w", t.SourceLanguage, err)
		}
	}
	if _, err := language.Parse(t.TargetLanguage); err != nil {
		return fmt.Errorf("invalid translate.target_language %q: %w", t.TargetLanguage, err)
	}
	switch t.Naming {
	case NamingSuffix:
		if strings.TrimSpace(t.Suffix) == "" {
			return fmt.Errorf("translate.suffix is required for suffix naming")
		}
	case NamingLanguage:
		if strings.TrimSpace(t.LanguageInfix) == "" {
			return fmt.Errorf("translate.language_infix is required for language naming")
		}
	default:
		return fmt.Errorf("unknown translate.naming %q", t.Naming)
	}
	if t.ProgressEvery < 1 {
		return fmt.Errorf("translate.progress_every must be at least 1")
	}
	if t.CallDelay < 0 {
		return fmt.Errorf("translate.call_delay must not be negative")
	}

	switch c.Backend.Provider {
	case ProviderGoogle:
		if c.Backend.GoogleURL == "" {
			return fmt.Errorf("backend.google_url is required")
		}
	case ProviderDeepL:
		if c.Backend.DeepLKey == "" {
			return fmt.Errorf("BACKEND_DEEPL_KEY is required for the deepl provider")
		}
	case ProviderLLM:
		if err := c.LLM.Validate(); err != nil {
			return fmt.Errorf("llm: %w", err)
		}
	default:
		return fmt.Errorf("unknown backend.provider %q", c.Backend.Provider)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be greater than 0")
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid schedule.cron %q: %w", c.Schedule.Cron, err)
		}
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/pipeline"
)

const (
	DefaultConfigFile     = "config.yaml"
	DefaultEnvFile        = ".env"
	DefaultCachePath      = ".floodpan/cache.db"
	DefaultCacheBackend   = BackendSQLite
	DefaultClassifierMode = ModeHeuristic
	DefaultOutputDir      = "output"
	DefaultOutputFormat   = "terminal"
	DefaultTimeout        = 30 * time.Second
	DefaultRapidAPIKeyEnv = "RAPIDAPI_KEY"
	DefaultCommentFiller  = "random"
	DefaultRSSFiller      = "zero"

	BackendSQLite = "sqlite"
	BackendRedis  = "redis"

	ModeHeuristic = "heuristic"
	ModeLLM       = "llm"
	ModeNone      = "none"

	FormatOpenAI = "openai"
	FormatGemini = "gemini"
)

// Source names accepted in sources.enabled and --source.
const (
	SourceTikTok    = "tiktok"
	SourceX         = "x"
	SourceReddit    = "reddit"
	SourceVNExpress = "vnexpress"
	SourceDantri    = "dantri"
	SourceRSS       = "rss"
)

// KnownSources lists every source in display order.
var KnownSources = []string{SourceVNExpress, SourceDantri, SourceRSS, SourceTikTok, SourceX, SourceReddit}

// Environment overrides, applied after the YAML file.
const (
	EnvCacheBackend   = "FLOODPAN_CACHE_BACKEND"
	EnvCachePath      = "FLOODPAN_CACHE_PATH"
	EnvCacheTTL       = "FLOODPAN_CACHE_TTL"
	EnvRedisAddr      = "FLOODPAN_REDIS_ADDR"
	EnvClassifierMode = "FLOODPAN_CLASSIFIER_MODE"
	EnvLogLevel       = "FLOODPAN_LOG_LEVEL"
	EnvOutputDir      = "FLOODPAN_OUTPUT_DIR"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Sources    SourcesConfig    `yaml:"sources"`
	News       NewsConfig       `yaml:"news"`
	Filter     FilterConfig     `yaml:"filter"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Cache      CacheConfig      `yaml:"cache"`
	Privacy    PrivacyConfig    `yaml:"privacy"`
	Output     OutputConfig     `yaml:"output"`
	Logging    logger.Config    `yaml:"logging"`
}

type SourcesConfig struct {
	// Enabled defaults to every source whose requirements are met.
	Enabled   []string       `yaml:"enabled"`
	Timeout   Duration       `yaml:"timeout"`
	TikTok    RapidAPIConfig `yaml:"tiktok"`
	X         RapidAPIConfig `yaml:"x"`
	Reddit    RedditConfig   `yaml:"reddit"`
	VNExpress SiteConfig     `yaml:"vnexpress"`
	Dantri    SiteConfig     `yaml:"dantri"`
	RSS       RSSConfig      `yaml:"rss"`
}

// RapidAPIConfig covers the RapidAPI-hosted social sources.
type RapidAPIConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Host      string `yaml:"host"`
	BaseURL   string `yaml:"base_url"`
	Region    string `yaml:"region"`
	Target    int    `yaml:"target"`
	PageSize  int    `yaml:"page_size"`
	MaxPages  int    `yaml:"max_pages"`

	// Resolved from env var at load time.
	APIKey string `yaml:"-"`
}

type RedditConfig struct {
	BaseURL   string `yaml:"base_url"`
	Subreddit string `yaml:"subreddit"`
	Target    int    `yaml:"target"`
	PageSize  int    `yaml:"page_size"`
	MaxPages  int    `yaml:"max_pages"`
}

type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
}

type RSSConfig struct {
	Feeds         []string `yaml:"feeds"`
	CommentFiller string   `yaml:"comment_filler"`
}

// NewsConfig is shared by the page-numbered news sites.
type NewsConfig struct {
	MaxPages      int    `yaml:"max_pages"`
	CommentFiller string `yaml:"comment_filler"`
}

type FilterConfig struct {
	Keywords     []string `yaml:"keywords"`
	Kinds        []string `yaml:"kinds"`
	IncludeQuery bool     `yaml:"include_query"`
}

type ClassifierConfig struct {
	Mode string    `yaml:"mode"`
	LLM  LLMConfig `yaml:"llm"`
}

type LLMConfig struct {
	Format    string   `yaml:"format"`
	Endpoint  string   `yaml:"endpoint"`
	Model     string   `yaml:"model"`
	APIKeyEnv string   `yaml:"api_key_env"`
	MaxTokens int      `yaml:"max_tokens"`
	Timeout   Duration `yaml:"timeout"`

	// Resolved from env var at load time.
	APIKey string `yaml:"-"`
}

type CacheConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	TTL     Duration    `yaml:"ttl"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`

	// Resolved from env var at load time.
	Password string `yaml:"-"`
}

type PrivacyConfig struct {
	Redact RedactConfig `yaml:"redact"`
}

type RedactConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// Load reads the optional .env and config.yaml from dir, applies defaults,
// resolves env vars, and validates. A missing config.yaml yields defaults.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	if err := loadEnvFile(filepath.Join(dir, DefaultEnvFile)); err != nil {
		return nil, err
	}

	var cfg Config
	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)
	if err := applyOverrides(&cfg); err != nil {
		return nil, err
	}
	defaultSources(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads KEY=VALUE pairs without overriding the environment.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Sources.Timeout.Duration == 0 {
		cfg.Sources.Timeout.Duration = DefaultTimeout
	}
	if cfg.Sources.TikTok.APIKeyEnv == "" {
		cfg.Sources.TikTok.APIKeyEnv = DefaultRapidAPIKeyEnv
	}
	if cfg.Sources.X.APIKeyEnv == "" {
		cfg.Sources.X.APIKeyEnv = DefaultRapidAPIKeyEnv
	}
	if cfg.News.CommentFiller == "" {
		cfg.News.CommentFiller = DefaultCommentFiller
	}
	if cfg.Sources.RSS.CommentFiller == "" {
		cfg.Sources.RSS.CommentFiller = DefaultRSSFiller
	}
	if len(cfg.Filter.Keywords) == 0 {
		cfg.Filter.Keywords = slices.Clone(pipeline.DefaultKeywords)
	}
	if len(cfg.Filter.Kinds) == 0 {
		cfg.Filter.Kinds = []string{"news"}
	}
	if cfg.Classifier.Mode == "" {
		cfg.Classifier.Mode = DefaultClassifierMode
	}
	if cfg.Classifier.LLM.Format == "" {
		cfg.Classifier.LLM.Format = FormatGemini
	}
	if cfg.Classifier.LLM.APIKeyEnv == "" {
		if cfg.Classifier.LLM.Format == FormatOpenAI {
			cfg.Classifier.LLM.APIKeyEnv = "OPENAI_API_KEY"
		} else {
			cfg.Classifier.LLM.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = DefaultCachePath
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultOutputFormat
	}
	cfg.Logging.SetDefaults()
}

func resolveEnv(cfg *Config) {
	cfg.Sources.TikTok.APIKey = os.Getenv(cfg.Sources.TikTok.APIKeyEnv)
	cfg.Sources.X.APIKey = os.Getenv(cfg.Sources.X.APIKeyEnv)
	cfg.Classifier.LLM.APIKey = os.Getenv(cfg.Classifier.LLM.APIKeyEnv)
	if cfg.Cache.Redis.PasswordEnv != "" {
		cfg.Cache.Redis.Password = os.Getenv(cfg.Cache.Redis.PasswordEnv)
	}
}

func applyOverrides(cfg *Config) error {
	set := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	set(EnvCacheBackend, &cfg.Cache.Backend)
	set(EnvCachePath, &cfg.Cache.Path)
	set(EnvRedisAddr, &cfg.Cache.Redis.Addr)
	set(EnvClassifierMode, &cfg.Classifier.Mode)
	set(EnvLogLevel, &cfg.Logging.Level)
	set(EnvOutputDir, &cfg.Output.Dir)

	if v := strings.TrimSpace(os.Getenv(EnvCacheTTL)); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		cfg.Cache.TTL.Duration = ttl
	}
	return nil
}

// defaultSources enables the news sites always, RSS when feeds exist, and
// the RapidAPI sources when their key resolved. Reddit is opt-in.
func defaultSources(cfg *Config) {
	if len(cfg.Sources.Enabled) > 0 {
		return
	}
	enabled := []string{SourceVNExpress, SourceDantri}
	if len(cfg.Sources.RSS.Feeds) > 0 {
		enabled = append(enabled, SourceRSS)
	}
	if cfg.Sources.TikTok.APIKey != "" {
		enabled = append(enabled, SourceTikTok)
	}
	if cfg.Sources.X.APIKey != "" {
		enabled = append(enabled, SourceX)
	}
	cfg.Sources.Enabled = enabled
}

func validate(cfg *Config) error {
	for _, name := range cfg.Sources.Enabled {
		if !slices.Contains(KnownSources, name) {
			return fmt.Errorf("sources.enabled: unknown source %q (want one of %s)", name, strings.Join(KnownSources, ", "))
		}
	}
	if slices.Contains(cfg.Sources.Enabled, SourceRSS) && len(cfg.Sources.RSS.Feeds) == 0 {
		return errors.New("sources.rss: at least one feed is required when rss is enabled")
	}

	for _, filler := range []string{cfg.News.CommentFiller, cfg.Sources.RSS.CommentFiller} {
		switch filler {
		case "random", "zero":
		default:
			return fmt.Errorf("comment_filler: unknown filler %q (want random or zero)", filler)
		}
	}

	for _, kind := range cfg.Filter.Kinds {
		switch kind {
		case "news", "social":
		default:
			return fmt.Errorf("filter.kinds: unknown kind %q (want news or social)", kind)
		}
	}

	switch cfg.Classifier.Mode {
	case ModeHeuristic, ModeNone:
	case ModeLLM:
		switch cfg.Classifier.LLM.Format {
		case FormatOpenAI, FormatGemini:
		default:
			return fmt.Errorf("classifier.llm.format: unknown format %q (want openai or gemini)", cfg.Classifier.LLM.Format)
		}
		if cfg.Classifier.LLM.APIKey == "" && cfg.Classifier.LLM.Endpoint == "" {
			return fmt.Errorf("classifier.llm: %s is not set and no endpoint is configured", cfg.Classifier.LLM.APIKeyEnv)
		}
	default:
		return fmt.Errorf("classifier.mode: unknown mode %q (want heuristic, llm or none)", cfg.Classifier.Mode)
	}

	switch cfg.Cache.Backend {
	case BackendSQLite:
	case BackendRedis:
		if cfg.Cache.Redis.Addr == "" {
			return errors.New("cache.redis.addr: required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend: unknown backend %q (want sqlite or redis)", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL.Duration < 0 {
		return errors.New("cache.ttl: must not be negative")
	}

	if cfg.Privacy.Redact.Enabled {
		for _, p := range cfg.Privacy.Redact.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("privacy.redact.patterns: %q: %w", p, err)
			}
		}
	}

	switch cfg.Output.Format {
	case "terminal", "json", "markdown", "csv":
	default:
		return fmt.Errorf("output.format: unknown format %q (want terminal, json, markdown or csv)", cfg.Output.Format)
	}

	return nil
}

// SourceEnabled reports whether name is in sources.enabled.
func (c *Config) SourceEnabled(name string) bool {
	return slices.Contains(c.Sources.Enabled, name)
}

// ParseSourceList splits a comma-separated --source value and checks names.
func ParseSourceList(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if !slices.Contains(KnownSources, name) {
			return nil, fmt.Errorf("unknown source %q (want one of %s)", name, strings.Join(KnownSources, ", "))
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// String renders the redis target for display.
func (r RedisConfig) String() string {
	return r.Addr + "/" + strconv.Itoa(r.DB)
}

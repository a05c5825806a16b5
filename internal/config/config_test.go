package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/floodpan/internal/pipeline"
)

func writeTestFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		DefaultRapidAPIKeyEnv, "OPENAI_API_KEY", "GEMINI_API_KEY",
		EnvCacheBackend, EnvCachePath, EnvCacheTTL, EnvRedisAddr,
		EnvClassifierMode, EnvLogLevel, EnvOutputDir,
	} {
		t.Setenv(name, "")
	}
}

// unsetEnv removes name for the duration of the test.
func unsetEnv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	if err := os.Unsetenv(name); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}
}

// --- Load tests ---

func TestLoad_FullConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("TEST_TIKTOK_KEY", "tk-secret")
	t.Setenv("TEST_LLM_KEY", "sk-secret")
	t.Setenv("TEST_REDIS_PASS", "hunter2")

	writeTestFile(t, dir, DefaultConfigFile, `
sources:
  enabled: [tiktok, vnexpress, rss]
  timeout: 10s
  tiktok:
    api_key_env: TEST_TIKTOK_KEY
    region: th
    target: 60
    max_pages: 4
  rss:
    feeds:
      - https://vnexpress.net/rss/thoi-su.rss
news:
  max_pages: 3
  comment_filler: zero
filter:
  keywords: [bão, lũ]
  kinds: [news, social]
  include_query: true
classifier:
  mode: llm
  llm:
    format: openai
    model: gpt-4.1-mini
    api_key_env: TEST_LLM_KEY
    max_tokens: 300
    timeout: 20s
cache:
  backend: redis
  ttl: 6h
  redis:
    addr: localhost:6379
    password_env: TEST_REDIS_PASS
    db: 2
privacy:
  redact:
    enabled: true
    patterns:
      - "\\b0\\d{9}\\b"
output:
  dir: exports
  format: csv
logging:
  level: debug
  format: json
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Sources
	if got := strings.Join(cfg.Sources.Enabled, ","); got != "tiktok,vnexpress,rss" {
		t.Errorf("enabled = %q", got)
	}
	if cfg.Sources.Timeout.Duration != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", cfg.Sources.Timeout.Duration)
	}
	if cfg.Sources.TikTok.APIKey != "tk-secret" {
		t.Errorf("tiktok api key = %q, want tk-secret", cfg.Sources.TikTok.APIKey)
	}
	if cfg.Sources.TikTok.Region != "th" || cfg.Sources.TikTok.Target != 60 || cfg.Sources.TikTok.MaxPages != 4 {
		t.Errorf("tiktok = %+v", cfg.Sources.TikTok)
	}
	if len(cfg.Sources.RSS.Feeds) != 1 {
		t.Errorf("rss feeds = %v", cfg.Sources.RSS.Feeds)
	}

	// News
	if cfg.News.MaxPages != 3 || cfg.News.CommentFiller != "zero" {
		t.Errorf("news = %+v", cfg.News)
	}

	// Filter
	if len(cfg.Filter.Keywords) != 2 || !cfg.Filter.IncludeQuery || len(cfg.Filter.Kinds) != 2 {
		t.Errorf("filter = %+v", cfg.Filter)
	}

	// Classifier
	if cfg.Classifier.Mode != ModeLLM {
		t.Errorf("classifier mode = %q, want llm", cfg.Classifier.Mode)
	}
	if cfg.Classifier.LLM.APIKey != "sk-secret" {
		t.Errorf("llm api key = %q, want sk-secret", cfg.Classifier.LLM.APIKey)
	}
	if cfg.Classifier.LLM.Timeout.Duration != 20*time.Second || cfg.Classifier.LLM.MaxTokens != 300 {
		t.Errorf("llm = %+v", cfg.Classifier.LLM)
	}

	// Cache
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.TTL.Duration != 6*time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.Redis.Password != "hunter2" || cfg.Cache.Redis.DB != 2 {
		t.Errorf("redis = %+v", cfg.Cache.Redis)
	}
	if cfg.Cache.Redis.String() != "localhost:6379/2" {
		t.Errorf("redis string = %q", cfg.Cache.Redis.String())
	}

	// Privacy, output, logging
	if !cfg.Privacy.Redact.Enabled || len(cfg.Privacy.Redact.Patterns) != 1 {
		t.Errorf("redact = %+v", cfg.Privacy.Redact)
	}
	if cfg.Output.Dir != "exports" || cfg.Output.Format != "csv" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load without config file: %v", err)
	}

	if got := strings.Join(cfg.Sources.Enabled, ","); got != "vnexpress,dantri" {
		t.Errorf("enabled = %q, want vnexpress,dantri", got)
	}
	if cfg.Sources.Timeout.Duration != DefaultTimeout {
		t.Errorf("timeout = %v", cfg.Sources.Timeout.Duration)
	}
	if cfg.Sources.TikTok.APIKeyEnv != DefaultRapidAPIKeyEnv || cfg.Sources.X.APIKeyEnv != DefaultRapidAPIKeyEnv {
		t.Errorf("rapidapi key env = %q / %q", cfg.Sources.TikTok.APIKeyEnv, cfg.Sources.X.APIKeyEnv)
	}
	if cfg.News.CommentFiller != DefaultCommentFiller || cfg.Sources.RSS.CommentFiller != DefaultRSSFiller {
		t.Errorf("fillers = %q / %q", cfg.News.CommentFiller, cfg.Sources.RSS.CommentFiller)
	}
	if len(cfg.Filter.Keywords) != len(pipeline.DefaultKeywords) {
		t.Errorf("keywords = %d, want %d", len(cfg.Filter.Keywords), len(pipeline.DefaultKeywords))
	}
	if len(cfg.Filter.Kinds) != 1 || cfg.Filter.Kinds[0] != "news" {
		t.Errorf("kinds = %v, want [news]", cfg.Filter.Kinds)
	}
	if cfg.Classifier.Mode != ModeHeuristic {
		t.Errorf("classifier mode = %q", cfg.Classifier.Mode)
	}
	if cfg.Classifier.LLM.Format != FormatGemini || cfg.Classifier.LLM.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("llm = %+v", cfg.Classifier.LLM)
	}
	if cfg.Cache.Backend != BackendSQLite || cfg.Cache.Path != DefaultCachePath || cfg.Cache.TTL.Duration != 0 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Output.Dir != DefaultOutputDir || cfg.Output.Format != DefaultOutputFormat {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoad_DefaultKeywordsAreCopied(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	before := pipeline.DefaultKeywords[0]
	cfg.Filter.Keywords[0] = "changed"
	if pipeline.DefaultKeywords[0] != before {
		t.Error("config aliases pipeline.DefaultKeywords")
	}
}

func TestLoad_OpenAIKeyEnvDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	writeTestFile(t, dir, DefaultConfigFile, `
classifier:
  mode: llm
  llm:
    format: openai
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Classifier.LLM.APIKeyEnv != "OPENAI_API_KEY" || cfg.Classifier.LLM.APIKey != "sk-openai" {
		t.Errorf("llm = %+v", cfg.Classifier.LLM)
	}
}

func TestLoad_RapidAPISourcesEnabledByKey(t *testing.T) {
	clearEnv(t)
	t.Setenv(DefaultRapidAPIKeyEnv, "rapid")
	dir := t.TempDir()
	writeTestFile(t, dir, DefaultConfigFile, `
sources:
  rss:
    feeds: [https://example.com/rss]
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := strings.Join(cfg.Sources.Enabled, ","); got != "vnexpress,dantri,rss,tiktok,x" {
		t.Errorf("enabled = %q", got)
	}
	if !cfg.SourceEnabled(SourceX) || cfg.SourceEnabled(SourceReddit) {
		t.Error("SourceEnabled mismatch")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	unsetEnv(t, "FLOODPAN_TEST_DOTENV_KEY")
	dir := t.TempDir()
	writeTestFile(t, dir, DefaultEnvFile, "FLOODPAN_TEST_DOTENV_KEY=from-dotenv\n")
	writeTestFile(t, dir, DefaultConfigFile, `
sources:
  x:
    api_key_env: FLOODPAN_TEST_DOTENV_KEY
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sources.X.APIKey != "from-dotenv" {
		t.Errorf("x api key = %q, want from-dotenv", cfg.Sources.X.APIKey)
	}
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLOODPAN_TEST_DOTENV_KEY", "from-env")
	dir := t.TempDir()
	writeTestFile(t, dir, DefaultEnvFile, "FLOODPAN_TEST_DOTENV_KEY=from-dotenv\n")
	writeTestFile(t, dir, DefaultConfigFile, `
sources:
  x:
    api_key_env: FLOODPAN_TEST_DOTENV_KEY
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sources.X.APIKey != "from-env" {
		t.Errorf("x api key = %q, want from-env", cfg.Sources.X.APIKey)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestFile(t, dir, DefaultConfigFile, `
cache:
  path: from-yaml.db
logging:
  level: info
`)
	t.Setenv(EnvCachePath, "/tmp/override.db")
	t.Setenv(EnvCacheTTL, "90m")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvClassifierMode, "none")
	t.Setenv(EnvOutputDir, "out")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.Path != "/tmp/override.db" {
		t.Errorf("cache path = %q", cfg.Cache.Path)
	}
	if cfg.Cache.TTL.Duration != 90*time.Minute {
		t.Errorf("ttl = %v", cfg.Cache.TTL.Duration)
	}
	if cfg.Logging.Level != "debug" || cfg.Classifier.Mode != ModeNone || cfg.Output.Dir != "out" {
		t.Errorf("overrides not applied: %+v %+v %+v", cfg.Logging, cfg.Classifier, cfg.Output)
	}
}

func TestLoad_BadTTLOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCacheTTL, "soon")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for bad ttl")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown source", "sources:\n  enabled: [facebook]\n", "unknown source"},
		{"rss without feeds", "sources:\n  enabled: [rss]\n", "feed"},
		{"filler", "news:\n  comment_filler: lots\n", "comment_filler"},
		{"kind", "filter:\n  kinds: [video]\n", "filter.kinds"},
		{"mode", "classifier:\n  mode: magic\n", "classifier.mode"},
		{"llm format", "classifier:\n  mode: llm\n  llm:\n    format: claude\n    endpoint: http://x\n", "classifier.llm.format"},
		{"llm key", "classifier:\n  mode: llm\n", "GEMINI_API_KEY"},
		{"backend", "cache:\n  backend: memcached\n", "cache.backend"},
		{"redis addr", "cache:\n  backend: redis\n", "cache.redis.addr"},
		{"negative ttl", "cache:\n  ttl: -1h\n", "cache.ttl"},
		{"pattern", "privacy:\n  redact:\n    enabled: true\n    patterns: [\"(\"]\n", "privacy.redact"},
		{"output", "output:\n  format: xml\n", "output.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			writeTestFile(t, dir, DefaultConfigFile, tt.yaml)

			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MarkdownOutput(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestFile(t, dir, DefaultConfigFile, "output:\n  format: markdown\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Output.Format != "markdown" {
		t.Errorf("output.format = %q, want markdown", cfg.Output.Format)
	}
}

func TestLoad_DurationParsing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestFile(t, dir, DefaultConfigFile, "cache:\n  ttl: forever\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestFile(t, dir, DefaultConfigFile, "sources: [unclosed")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Errorf("error = %q, want parse config", err)
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	if _, err := Load("  "); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestParseSourceList(t *testing.T) {
	got, err := ParseSourceList(" TikTok, vnexpress,,tiktok ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Join(got, ",") != "tiktok,vnexpress" {
		t.Errorf("got %v", got)
	}

	if _, err := ParseSourceList("tiktok,myspace"); err == nil {
		t.Error("expected error for unknown source")
	}

	got, err = ParseSourceList("")
	if err != nil || len(got) != 0 {
		t.Errorf("empty list = %v, %v", got, err)
	}
}

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/floodpan/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with example files",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	created := 0
	for _, f := range []struct{ name, data string }{
		{config.DefaultConfigFile, exampleConfig},
		{config.DefaultEnvFile, exampleEnv},
	} {
		wrote, err := writeIfNotExists(out, filepath.Join(configDir, f.name), []byte(f.data))
		if err != nil {
			return err
		}
		if wrote {
			created++
		}
	}

	if created == 0 {
		fmt.Fprintf(out, "Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Fprintf(out, "Initialized %s with %d config files.\n", configDir, created)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(out io.Writer, path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# floodpan configuration

sources:
  # enabled: [vnexpress, dantri, rss, tiktok, x, reddit]
  timeout: 30s
  tiktok:
    api_key_env: RAPIDAPI_KEY
    region: vn
    target: 120
  x:
    api_key_env: RAPIDAPI_KEY
    target: 100
  reddit:
    subreddit: VietNam
  rss:
    feeds: []
    # - "https://vnexpress.net/rss/thoi-su.rss"

news:
  max_pages: 5
  comment_filler: random   # random | zero

filter:
  # keywords default to a built-in disaster list
  kinds: [news]
  include_query: false

classifier:
  mode: heuristic   # heuristic | llm | none
  llm:
    format: gemini   # gemini | openai
    api_key_env: GEMINI_API_KEY

cache:
  backend: sqlite   # sqlite | redis
  path: .floodpan/cache.db
  # ttl: 24h
  redis:
    addr: localhost:6379
    password_env: REDIS_PASSWORD
    db: 0

privacy:
  redact:
    enabled: false
    patterns: []

output:
  dir: output
  format: terminal   # terminal | json | markdown | csv

logging:
  level: info
  format: console
`

const exampleEnv = `# Secrets referenced by *_env keys in config.yaml
RAPIDAPI_KEY=
GEMINI_API_KEY=
`

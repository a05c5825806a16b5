package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/floodpan/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, cache, classifier, and sources",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printInfo(out, "config directory %s not found, using defaults", configDir)
	} else {
		printCheck(out, true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(out, false, "config: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(out, true, "config (%d sources enabled: %s)", len(cfg.Sources.Enabled), strings.Join(cfg.Sources.Enabled, ", "))

	// Cache
	ctx := cmd.Context()
	store, err := openCache(ctx, cfg)
	if err != nil {
		printCheck(out, false, "cache: %v", err)
		ok = false
	} else {
		defer func() { _ = store.Close() }()
		entries, err := store.List(ctx)
		if err != nil {
			printCheck(out, false, "cache list: %v", err)
			ok = false
		} else {
			printCheck(out, true, "cache %s (%d entries)", cacheTarget(cfg), len(entries))
		}
	}

	// Classifier
	if _, err := newClassifier(cfg); err != nil {
		printCheck(out, false, "classifier %s: %v", cfg.Classifier.Mode, err)
		ok = false
	} else {
		printCheck(out, true, "classifier %s", cfg.Classifier.Mode)
	}

	// Sources
	for _, name := range cfg.Sources.Enabled {
		client, err := newClient(name, cfg, nil)
		if err != nil {
			printCheck(out, false, "source %s: %v", name, err)
			ok = false
			continue
		}
		_ = client.Close()
		printCheck(out, true, "source %s", name)
	}
	for _, s := range []struct{ name, keyEnv string }{
		{config.SourceTikTok, cfg.Sources.TikTok.APIKeyEnv},
		{config.SourceX, cfg.Sources.X.APIKeyEnv},
	} {
		if !cfg.SourceEnabled(s.name) {
			printInfo(out, "%s disabled (set %s to enable)", s.name, s.keyEnv)
		}
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintln(out, "\nAll checks passed.")
	return nil
}

func cacheTarget(cfg *config.Config) string {
	if cfg.Cache.Backend == config.BackendRedis {
		return "redis " + cfg.Cache.Redis.String()
	}
	return "sqlite " + cfg.Cache.Path
}

func printCheck(w io.Writer, pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Fprintf(w, "[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "[INFO] %s\n", fmt.Sprintf(format, args...))
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/floodpan/internal/config"
)

var pruneOlderThan string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the post cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached queries, newest first",
	Args:  cobra.NoArgs,
	RunE:  cacheListAction,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [key...]",
	Short: "Delete the given cache keys, or every key when none are given",
	RunE:  cacheClearAction,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete entries older than --older-than",
	Args:  cobra.NoArgs,
	RunE:  cachePruneAction,
}

func init() {
	cachePruneCmd.Flags().StringVar(&pruneOlderThan, "older-than", "30d", "age threshold (e.g. 7d, 48h)")
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cacheListAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	store, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list cache: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cache is empty.")
		return nil
	}
	for _, e := range entries {
		kind := e.PostType
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(out, "%-60s %-7s %5d  %s\n", e.Key, kind, e.Count, e.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "\n%d entries\n", len(entries))
	return nil
}

func cacheClearAction(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	store, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	keys := args
	if len(keys) == 0 {
		entries, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("list cache: %w", err)
		}
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
	}
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries.\n", len(keys))
	return nil
}

func cachePruneAction(cmd *cobra.Command, _ []string) error {
	age, err := parseDuration(pruneOlderThan)
	if err != nil {
		return fmt.Errorf("parse --older-than: %w", err)
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	store, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := store.Prune(ctx, age)
	if err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries older than %s.\n", n, pruneOlderThan)
	return nil
}

// parseDuration accepts Go durations plus whole days ("7d").
func parseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

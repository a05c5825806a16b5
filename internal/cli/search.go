package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/floodpan/internal/cache"
	"github.com/ppiankov/floodpan/internal/config"
	"github.com/ppiankov/floodpan/internal/export"
	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/post"
	"github.com/ppiankov/floodpan/internal/service"
)

var (
	searchFrom    string
	searchTo      string
	searchSources string
	searchFormat  string
	searchOut     string
	searchRefresh bool
	noColor       bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search every enabled source, using the cache when possible",
	Args:  cobra.MinimumNArgs(1),
	RunE:  searchAction,
}

func init() {
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "start date, YYYY-MM-DD (inclusive)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "end date, YYYY-MM-DD (inclusive)")
	searchCmd.Flags().StringVar(&searchSources, "source", "", "comma-separated sources (default: sources.enabled)")
	searchCmd.Flags().StringVar(&searchFormat, "format", "", "output format: terminal, json, markdown, csv")
	searchCmd.Flags().StringVar(&searchOut, "out", "", "directory for csv output (default: output.dir)")
	searchCmd.Flags().BoolVar(&searchRefresh, "refresh", false, "drop cached results and fetch again")
	searchCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
	rootCmd.AddCommand(searchCmd)
}

func searchAction(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("query is required")
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	from, to, err := parseWindow(searchFrom, searchTo)
	if err != nil {
		return err
	}

	names := cfg.Sources.Enabled
	if searchSources != "" {
		if names, err = config.ParseSourceList(searchSources); err != nil {
			return fmt.Errorf("parse --source: %w", err)
		}
	}
	if len(names) == 0 {
		return errors.New("no sources selected")
	}

	format := searchFormat
	if format == "" {
		format = cfg.Output.Format
	}
	var formatter export.Formatter
	switch format {
	case "json":
		formatter = export.NewJSON()
	case "markdown":
		formatter = export.NewMarkdown()
	case "terminal":
		formatter = export.NewTerminal(!noColor)
	case "csv":
	default:
		return fmt.Errorf("unknown format %q (want terminal, json, markdown, or csv)", format)
	}

	ctx := cmd.Context()
	store, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stages, err := newStages(cfg, log)
	if err != nil {
		return err
	}
	opts := serviceOptions(cfg, stages)

	input := export.Input{Query: query, From: from, To: to}
	failed := 0
	for _, name := range names {
		res := export.Result{Source: name}
		client, err := newClient(name, cfg, log)
		if err != nil {
			res.Err = err
		} else {
			svc := service.New(client, cache.WithPrefix(store, name+":"), opts, log)
			if searchRefresh {
				res.Posts, res.Err = svc.Refresh(ctx, query, from, to)
			} else {
				res.Posts, res.Err = svc.GetPosts(ctx, query, from, to)
			}
		}
		if res.Err != nil {
			failed++
			log.Warn("source failed", logger.String("source", name), logger.Error(res.Err))
			res.Posts = nil
		}
		input.Results = append(input.Results, res)
	}

	out := cmd.OutOrStdout()
	if formatter != nil {
		if err := formatter.Format(out, input); err != nil {
			return err
		}
	} else {
		dir := searchOut
		if dir == "" {
			dir = cfg.Output.Dir
		}
		for _, r := range input.Results {
			if r.Err != nil {
				fmt.Fprintf(out, "%s: failed: %v\n", r.Source, r.Err)
				continue
			}
			if len(r.Posts) == 0 {
				fmt.Fprintf(out, "%s: no posts\n", r.Source)
				continue
			}
			path, err := export.WriteCSVFile(dir, export.FileName(query, r.Source), r.Posts)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: wrote %d posts to %s\n", r.Source, len(r.Posts), path)
		}
	}

	if failed == len(names) {
		return fmt.Errorf("all %d sources failed", failed)
	}
	return nil
}

func parseWindow(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		if from, err = post.ParseDate(fromStr); err != nil {
			return from, to, fmt.Errorf("parse --from: %w", err)
		}
	}
	if toStr != "" {
		if to, err = post.ParseDate(toStr); err != nil {
			return from, to, fmt.Errorf("parse --to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, fmt.Errorf("--from %s is after --to %s", fromStr, toStr)
	}
	return from, to, nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/floodpan/internal/cache"
	"github.com/ppiankov/floodpan/internal/classify"
	"github.com/ppiankov/floodpan/internal/config"
	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/pipeline"
	"github.com/ppiankov/floodpan/internal/post"
	"github.com/ppiankov/floodpan/internal/service"
	"github.com/ppiankov/floodpan/internal/source"
)

func openCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		st, err := cache.OpenRedis(ctx, cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, cfg.Cache.TTL.Duration)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return st, nil
	default:
		st, err := cache.OpenSQLite(cfg.Cache.Path, cfg.Cache.TTL.Duration)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		return st, nil
	}
}

// newClassifier returns nil when classification is disabled.
func newClassifier(cfg *config.Config) (classify.Classifier, error) {
	switch cfg.Classifier.Mode {
	case config.ModeNone:
		return nil, nil
	case config.ModeLLM:
		llm := cfg.Classifier.LLM
		c, err := classify.NewLLM(classify.LLMConfig{
			Format:    classify.Format(llm.Format),
			Endpoint:  llm.Endpoint,
			APIKey:    llm.APIKey,
			Model:     llm.Model,
			MaxTokens: llm.MaxTokens,
			Timeout:   llm.Timeout.Duration,
		})
		if err != nil {
			return nil, fmt.Errorf("create llm classifier: %w", err)
		}
		return c, nil
	default:
		return classify.HeuristicClassifier{}, nil
	}
}

// newStages builds the stages that run after the filter: redact, then enrich.
func newStages(cfg *config.Config, log logger.Logger) ([]pipeline.Stage, error) {
	var stages []pipeline.Stage

	if cfg.Privacy.Redact.Enabled {
		r, err := pipeline.CompileRedact(cfg.Privacy.Redact.Patterns)
		if err != nil {
			return nil, fmt.Errorf("compile redact patterns: %w", err)
		}
		if r != nil {
			stages = append(stages, r)
		}
	}

	c, err := newClassifier(cfg)
	if err != nil {
		return nil, err
	}
	if c != nil {
		stages = append(stages, pipeline.NewEnrich(c, log))
	}
	return stages, nil
}

func serviceOptions(cfg *config.Config, stages []pipeline.Stage) service.Options {
	kinds := make([]post.Kind, 0, len(cfg.Filter.Kinds))
	for _, k := range cfg.Filter.Kinds {
		kinds = append(kinds, post.Kind(k))
	}
	return service.Options{
		Keywords:     cfg.Filter.Keywords,
		FilterKinds:  kinds,
		IncludeQuery: cfg.Filter.IncludeQuery,
		Stages:       stages,
	}
}

func newClient(name string, cfg *config.Config, log logger.Logger) (source.Client, error) {
	src := cfg.Sources
	timeout := src.Timeout.Duration

	switch name {
	case config.SourceTikTok:
		return source.NewTikTok(source.TikTokConfig{
			APIKey:   src.TikTok.APIKey,
			Host:     src.TikTok.Host,
			BaseURL:  src.TikTok.BaseURL,
			Region:   src.TikTok.Region,
			Target:   src.TikTok.Target,
			PageSize: src.TikTok.PageSize,
			MaxPages: src.TikTok.MaxPages,
			Timeout:  timeout,
		}, log)
	case config.SourceX:
		return source.NewX(source.XConfig{
			APIKey:   src.X.APIKey,
			Host:     src.X.Host,
			BaseURL:  src.X.BaseURL,
			Target:   src.X.Target,
			PageSize: src.X.PageSize,
			MaxPages: src.X.MaxPages,
			Timeout:  timeout,
		}, log)
	case config.SourceReddit:
		return source.NewReddit(source.RedditConfig{
			BaseURL:   src.Reddit.BaseURL,
			Subreddit: src.Reddit.Subreddit,
			Target:    src.Reddit.Target,
			PageSize:  src.Reddit.PageSize,
			MaxPages:  src.Reddit.MaxPages,
			Timeout:   timeout,
		}, log), nil
	case config.SourceVNExpress, config.SourceDantri:
		filler, err := source.FillerByName(cfg.News.CommentFiller)
		if err != nil {
			return nil, err
		}
		nc := source.NewsConfig{MaxPages: cfg.News.MaxPages, Filler: filler, Timeout: timeout}
		if name == config.SourceVNExpress {
			nc.BaseURL = src.VNExpress.BaseURL
			return source.NewVNExpress(nc, log), nil
		}
		nc.BaseURL = src.Dantri.BaseURL
		return source.NewDantri(nc, log), nil
	case config.SourceRSS:
		filler, err := source.FillerByName(src.RSS.CommentFiller)
		if err != nil {
			return nil, err
		}
		return source.NewRSS(source.RSSConfig{Feeds: src.RSS.Feeds, Filler: filler, Timeout: timeout}, log)
	}
	return nil, fmt.Errorf("unknown source %q", name)
}

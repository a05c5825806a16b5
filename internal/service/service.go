// Package service ties a source client, the processing pipeline and the
// cache into the single search entry point.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/floodpan/internal/cache"
	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/pipeline"
	"github.com/ppiankov/floodpan/internal/post"
	"github.com/ppiankov/floodpan/internal/source"
)

// Deleter removes a cache entry. Repositories that support it enable Refresh.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Options tune the per-call filter and the stages that follow it.
type Options struct {
	// Keywords for the filter stage; empty disables the keyword check.
	Keywords []string
	// FilterKinds lists the post kinds the filter applies to (default news).
	FilterKinds []post.Kind
	// IncludeQuery adds the search query itself to the keyword set.
	IncludeQuery bool
	// Stages run after the filter, e.g. redact and enrich.
	Stages []pipeline.Stage
}

// Service serves searches for one source.
type Service struct {
	client source.Client
	repo   cache.Repository
	opts   Options
	log    logger.Logger
}

// New creates a service.
func New(client source.Client, repo cache.Repository, opts Options, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		client: client,
		repo:   repo,
		opts:   opts,
		log:    log.With(logger.String("source", client.Name())),
	}
}

// Source returns the client's name.
func (s *Service) Source() string {
	return s.client.Name()
}

// GetPosts returns cached posts for the search, or crawls, processes and
// caches them on a miss. Search failures keep the source error taxonomy
// reachable through errors.As.
func (s *Service) GetPosts(ctx context.Context, query string, start, end time.Time) ([]post.Post, error) {
	key := cache.Key(query, start, end)
	log := s.log.With(logger.String("key", key))

	cached, err := s.repo.Load(ctx, key)
	switch {
	case err == nil && len(cached) > 0:
		log.Info("cache hit", logger.Int("posts", len(cached)))
		return cached, nil
	case err == nil, errors.Is(err, cache.ErrNotFound):
		log.Debug("cache miss")
	default:
		log.Warn("cache load failed, crawling instead", logger.Error(err))
	}

	raw, err := s.crawl(ctx, query, start, end)
	if err != nil {
		return nil, err
	}

	processed := s.pipeline(query, start, end).Run(ctx, raw)
	log.Info("processed",
		logger.Int("crawled", len(raw)),
		logger.Int("kept", len(processed)),
	)

	if len(processed) > 0 {
		if err := s.repo.Save(ctx, key, processed); err != nil {
			log.Warn("cache save failed", logger.Error(err))
		}
	}
	return processed, nil
}

// Refresh drops the cached entry and searches again.
func (s *Service) Refresh(ctx context.Context, query string, start, end time.Time) ([]post.Post, error) {
	d, ok := s.repo.(Deleter)
	if !ok {
		return nil, errors.New("cache does not support deleting entries")
	}
	key := cache.Key(query, start, end)
	if err := d.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("clear cache entry: %w", err)
	}
	s.log.Info("cache entry cleared", logger.String("key", key))
	return s.GetPosts(ctx, query, start, end)
}

func (s *Service) crawl(ctx context.Context, query string, start, end time.Time) ([]post.Post, error) {
	if err := s.client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("%s: initialize: %w", s.client.Name(), err)
	}
	defer func() {
		if err := s.client.Close(); err != nil {
			s.log.Warn("close client", logger.Error(err))
		}
	}()

	began := time.Now()
	posts, err := s.client.Search(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	s.log.Debug("crawl finished",
		logger.Int("posts", len(posts)),
		logger.Duration("took", time.Since(began)),
	)
	return posts, nil
}

// pipeline builds the per-call pipeline: the filter depends on the call's
// bounds and query.
func (s *Service) pipeline(query string, start, end time.Time) *pipeline.Pipeline {
	keywords := s.opts.Keywords
	if s.opts.IncludeQuery && len(keywords) > 0 {
		keywords = append(append([]string(nil), keywords...), query)
	}
	filter := pipeline.NewFilter(start, end, keywords, s.opts.FilterKinds...)
	return pipeline.New(s.log, filter).Then(s.opts.Stages...)
}

// Package cache stores search results keyed by query and date range.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ppiankov/floodpan/internal/post"
)

// ErrNotFound is returned by Load for a missing or expired key.
var ErrNotFound = errors.New("cache entry not found")

const (
	keyDateLayout = "2006-01-02"
	minDateKey    = "0001-01-01"
	maxDateKey    = "9999-12-31"
)

// Repository is a post cache. Save replaces any existing entry.
type Repository interface {
	IsCached(ctx context.Context, key string) bool
	Load(ctx context.Context, key string) ([]post.Post, error)
	Save(ctx context.Context, key string, posts []post.Post) error
}

// Entry describes one cached key.
type Entry struct {
	Key       string
	PostType  string // news, social, mixed, or "" for an empty entry
	Count     int
	CreatedAt time.Time
}

// Admin exposes maintenance operations.
type Admin interface {
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, key string) error
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Store is a full cache backend.
type Store interface {
	Repository
	Admin
	Close() error
}

// Key builds the cache key for a search. Whitespace runs in the query
// collapse to "_" and open bounds render as sentinel dates, so equivalent
// searches share one key.
func Key(query string, start, end time.Time) string {
	q := strings.Join(strings.Fields(query), "_")
	return q + "_" + keyDate(start, minDateKey) + "_" + keyDate(end, maxDateKey)
}

func keyDate(t time.Time, sentinel string) string {
	if t.IsZero() {
		return sentinel
	}
	return post.Day(t).Format(keyDateLayout)
}

// postType summarizes the kinds held by an entry.
func postType(posts []post.Post) string {
	kind := ""
	for _, p := range posts {
		k := string(p.Kind())
		switch {
		case kind == "":
			kind = k
		case kind != k:
			return "mixed"
		}
	}
	return kind
}

type prefixed struct {
	inner  Store
	prefix string
}

// WithPrefix namespaces every key of s, e.g. per source ("tiktok:").
// List only reports keys under the prefix, with the prefix stripped.
func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixed{inner: s, prefix: prefix}
}

func (p *prefixed) IsCached(ctx context.Context, key string) bool {
	return p.inner.IsCached(ctx, p.prefix+key)
}

func (p *prefixed) Load(ctx context.Context, key string) ([]post.Post, error) {
	return p.inner.Load(ctx, p.prefix+key)
}

func (p *prefixed) Save(ctx context.Context, key string, posts []post.Post) error {
	return p.inner.Save(ctx, p.prefix+key, posts)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *prefixed) List(ctx context.Context) ([]Entry, error) {
	all, err := p.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if rest, ok := strings.CutPrefix(e.Key, p.prefix); ok {
			e.Key = rest
			out = append(out, e)
		}
	}
	return out, nil
}

// Prune applies to the whole backend, not only the prefix.
func (p *prefixed) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	return p.inner.Prune(ctx, olderThan)
}

// Close is a no-op: the shared backend is closed by its owner.
func (p *prefixed) Close() error {
	return nil
}

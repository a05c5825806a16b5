package source

import (
	"context"
	"time"

	"github.com/ppiankov/floodpan/internal/post"
)

// Client searches one platform for posts matching a query.
type Client interface {
	// Name returns the source identifier (e.g. "tiktok").
	Name() string

	// Initialize acquires transport resources. Calling it twice is a no-op.
	Initialize(ctx context.Context) error

	// Search returns every post the source yields for query. News sources
	// drop posts outside [start, end]; social sources cannot filter by date
	// and return everything they collected. A zero bound is open.
	Search(ctx context.Context, query string, start, end time.Time) ([]post.Post, error)

	// Close releases transport resources. Safe without Initialize.
	Close() error
}

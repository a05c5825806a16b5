package source

import (
	"context"
	"time"

	"github.com/ppiankov/floodpan/internal/post"
)

// cursorPage is one batch from a cursor-paginated source.
type cursorPage[C any] struct {
	Posts   []post.Post
	Next    C
	HasMore bool
}

// cursorPager drives a cursor-paginated search. It stops on an empty batch,
// on HasMore=false, on a cursor that fails to advance, once Target posts are
// collected, or after MaxPages fetches.
type cursorPager[C any] struct {
	Target   int
	MaxPages int
	Initial  C
	Fetch    func(ctx context.Context, cursor C) (cursorPage[C], error)
	// Advanced reports whether next moves strictly past prev. A stalled or
	// regressing cursor would loop forever.
	Advanced func(prev, next C) bool
}

// stopReason explains why a pager finished; logged for diagnostics.
type stopReason string

const (
	stopTarget    stopReason = "target reached"
	stopExhausted stopReason = "empty batch"
	stopNoMore    stopReason = "no more pages"
	stopStalled   stopReason = "cursor did not advance"
	stopMaxPages  stopReason = "page cap reached"
)

type pagerResult struct {
	posts []post.Post
	calls int
	stop  stopReason
}

func (p cursorPager[C]) run(ctx context.Context) (pagerResult, error) {
	var res pagerResult
	cursor := p.Initial

	for {
		if len(res.posts) >= p.Target {
			res.stop = stopTarget
			return res, nil
		}
		if p.MaxPages > 0 && res.calls >= p.MaxPages {
			res.stop = stopMaxPages
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := p.Fetch(ctx, cursor)
		res.calls++
		if err != nil {
			return res, err
		}
		if len(page.Posts) == 0 {
			res.stop = stopExhausted
			return res, nil
		}
		res.posts = append(res.posts, page.Posts...)

		if !page.HasMore {
			res.stop = stopNoMore
			return res, nil
		}
		if !p.Advanced(cursor, page.Next) {
			res.stop = stopStalled
			return res, nil
		}
		cursor = page.Next
	}
}

// pagePager drives a page-numbered search over pages 1..MaxPages. Every page
// is fetched: listings are not date-ordered, so an out-of-range page says
// nothing about the next one.
type pagePager struct {
	MaxPages int
	Fetch    func(ctx context.Context, page int) ([]post.Post, error)
}

type pageResult struct {
	posts      []post.Post
	calls      int
	outOfRange int
}

func (p pagePager) run(ctx context.Context, start, end time.Time) (pageResult, error) {
	var res pageResult
	for page := 1; page <= p.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		candidates, err := p.Fetch(ctx, page)
		res.calls++
		if err != nil {
			return res, err
		}
		for _, c := range candidates {
			if !post.InRange(c.Date(), start, end) {
				res.outOfRange++
				continue
			}
			res.posts = append(res.posts, c)
		}
	}
	return res, nil
}

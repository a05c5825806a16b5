package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/floodpan/internal/fold"
	"github.com/ppiankov/floodpan/internal/post"
)

// DefaultKeywords is the disaster vocabulary used when none is configured.
var DefaultKeywords = []string{
	"bão", "lũ", "lụt", "ngập", "sạt lở", "lũ quét", "mưa lớn", "áp thấp",
	"thiên tai", "cứu hộ", "cứu trợ", "thiệt hại", "sơ tán", "triều cường",
}

// Filter keeps targeted posts dated within [start, end] whose title and
// content mention at least one keyword. Other kinds pass unchanged.
type Filter struct {
	start, end time.Time
	keywords   []string // folded
	targets    map[post.Kind]bool
}

// NewFilter builds a filter. With no kinds it targets news posts. An empty
// keyword list disables the keyword check.
func NewFilter(start, end time.Time, keywords []string, kinds ...post.Kind) *Filter {
	if len(kinds) == 0 {
		kinds = []post.Kind{post.KindNews}
	}
	f := &Filter{start: start, end: end, targets: make(map[post.Kind]bool, len(kinds))}
	for _, k := range kinds {
		f.targets[k] = true
	}
	for _, kw := range keywords {
		if folded := fold.String(kw); folded != "" {
			f.keywords = append(f.keywords, folded)
		}
	}
	return f
}

func (f *Filter) Name() string { return "filter" }

func (f *Filter) Process(_ context.Context, posts []post.Post) []post.Post {
	out := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if f.Keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Keep reports whether p survives the filter.
func (f *Filter) Keep(p post.Post) bool {
	if !f.targets[p.Kind()] {
		return true
	}
	if !post.InRange(p.Date(), f.start, f.end) {
		return false
	}
	if len(f.keywords) == 0 {
		return true
	}
	text := fold.String(p.Title() + " " + p.Content)
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

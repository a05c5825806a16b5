package pipeline

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ppiankov/floodpan/internal/post"
)

const redactedPlaceholder = "[REDACTED]"

// Redact masks pattern matches in post content before it leaves the
// process, e.g. phone numbers in rescue requests sent to an LLM.
type Redact struct {
	patterns []*regexp.Regexp
}

// CompileRedact compiles patterns into a Redact stage. An empty list yields
// a nil stage.
func CompileRedact(patterns []string) (*Redact, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile redact pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Redact{patterns: compiled}, nil
}

func (r *Redact) Name() string { return "redact" }

func (r *Redact) Process(_ context.Context, posts []post.Post) []post.Post {
	out := make([]post.Post, len(posts))
	for i, p := range posts {
		p.Content = r.Apply(p.Content)
		out[i] = p
	}
	return out
}

// Apply replaces every match in text with [REDACTED].
func (r *Redact) Apply(text string) string {
	for _, re := range r.patterns {
		text = re.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

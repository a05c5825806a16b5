package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/floodpan/internal/post"
)

const snippetLen = 120

// TerminalFormatter formats results for terminal output.
type TerminalFormatter struct {
	color bool
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool) *TerminalFormatter {
	return &TerminalFormatter{color: color}
}

// Format writes the results to w grouped by source.
func (f *TerminalFormatter) Format(w io.Writer, input Input) error {
	header := fmt.Sprintf("floodpan — %q, %d sources, %d posts, %s",
		input.Query, len(input.Results), input.Total(), window(input.From, input.To))
	fmt.Fprintln(w, f.bold(header))
	fmt.Fprintln(w)

	if input.Total() == 0 && !hasErrors(input.Results) {
		fmt.Fprintln(w, "No posts found.")
		return nil
	}

	for _, r := range input.Results {
		if r.Err != nil {
			fmt.Fprintln(w, f.red(f.bold(fmt.Sprintf("--- %s (failed) ---", r.Source))))
			fmt.Fprintf(w, "  %s\n\n", f.dim(r.Err.Error()))
			continue
		}
		fmt.Fprintln(w, f.green(f.bold(fmt.Sprintf("--- %s (%d) ---", r.Source, len(r.Posts)))))
		fmt.Fprintln(w)
		for _, p := range r.Posts {
			f.writePost(w, p)
		}
	}
	return nil
}

func (f *TerminalFormatter) writePost(w io.Writer, p post.Post) {
	headline := p.Title()
	if headline == "" {
		headline = snippet(p.Content)
	}
	fmt.Fprintf(w, "  %s %s %s — %s\n",
		f.bold(fmt.Sprintf("[%d]", p.EngagementScore())),
		p.DisplayDate(),
		f.dim(p.Platform),
		headline,
	)
	if labels := metaLabels(p.Meta()); labels != "" {
		fmt.Fprintf(w, "      %s\n", f.yellow(labels))
	}
	if p.SourceID != "" {
		fmt.Fprintf(w, "      %s\n", f.dim(p.SourceID))
	}
}

func metaLabels(m post.Metadata) string {
	var parts []string
	for _, v := range []string{m.Focus, m.Sentiment, m.Direction, m.DamageCategory, m.RescueGoods, m.Location} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " · ")
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= snippetLen {
		return s
	}
	r := []rune(s)
	return string(r[:snippetLen]) + "…"
}

func hasErrors(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// ANSI helpers, no-op when color=false.

func (f *TerminalFormatter) paint(code, s string) string {
	if !f.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (f *TerminalFormatter) bold(s string) string   { return f.paint("1", s) }
func (f *TerminalFormatter) red(s string) string    { return f.paint("31", s) }
func (f *TerminalFormatter) green(s string) string  { return f.paint("32", s) }
func (f *TerminalFormatter) yellow(s string) string { return f.paint("33", s) }
func (f *TerminalFormatter) dim(s string) string    { return f.paint("2", s) }

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/floodpan/internal/post"
)

// MarkdownFormatter formats results as Markdown.
type MarkdownFormatter struct{}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes the results as Markdown to w, one section per source.
func (f *MarkdownFormatter) Format(w io.Writer, input Input) error {
	fmt.Fprintf(w, "# floodpan: %s\n\n", mdEscape(input.Query))
	fmt.Fprintf(w, "%d sources, %d posts, %s\n\n", len(input.Results), input.Total(), window(input.From, input.To))

	if input.Total() == 0 && !hasErrors(input.Results) {
		fmt.Fprintln(w, "No posts found.")
		return nil
	}

	for _, r := range input.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "## %s (failed)\n\n", r.Source)
			fmt.Fprintf(w, "*%s*\n\n", mdEscape(r.Err.Error()))
			continue
		}
		fmt.Fprintf(w, "## %s (%d)\n\n", r.Source, len(r.Posts))
		for _, p := range r.Posts {
			f.writePost(w, p)
		}
		if len(r.Posts) > 0 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

func (f *MarkdownFormatter) writePost(w io.Writer, p post.Post) {
	headline := p.Title()
	if headline == "" {
		headline = snippet(p.Content)
	}
	headline = mdEscape(headline)
	if p.SourceID != "" {
		headline = fmt.Sprintf("[%s](%s)", headline, p.SourceID)
	}

	fmt.Fprintf(w, "- **[%d]** %s %s: %s", p.EngagementScore(), p.DisplayDate(), p.Platform, headline)

	if labels := metaLabels(p.Meta()); labels != "" {
		parts := strings.Split(labels, " · ")
		for i, l := range parts {
			parts[i] = "`" + l + "`"
		}
		fmt.Fprintf(w, " %s", strings.Join(parts, " "))
	}
	fmt.Fprintln(w)
}

var mdReplacer = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"\n", " ",
)

func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}

package export

import (
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/ppiankov/floodpan/internal/post"
)

// Result is the output of one source for a search.
type Result struct {
	Source string
	Posts  []post.Post
	Err    error // set when the source failed; Posts is then empty
}

// Input is the full input for a formatter.
type Input struct {
	Query   string
	From    time.Time // zero = open
	To      time.Time // zero = open
	Results []Result
}

// Total counts posts across all results.
func (in Input) Total() int {
	n := 0
	for _, r := range in.Results {
		n += len(r.Posts)
	}
	return n
}

// Formatter writes a rendered search result to w.
type Formatter interface {
	Format(w io.Writer, input Input) error
}

// FileName is the CSV file name for one source, e.g. "bão_lũ_tiktok.csv".
// Every rune of the query other than a letter, digit or '-' becomes '_', so
// the name never carries a path separator or a dot segment.
func FileName(query, source string) string {
	q := slug(query)
	if q == "" {
		q = "all"
	}
	return q + "_" + slug(source) + ".csv"
}

func slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r) || r == '-' {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

func window(from, to time.Time) string {
	f, t := "…", "…"
	if !from.IsZero() {
		f = post.FormatDate(from)
	}
	if !to.IsZero() {
		t = post.FormatDate(to)
	}
	return f + " → " + t
}

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ppiankov/floodpan/internal/post"
)

// utf8BOM lets spreadsheet tools detect the encoding of Vietnamese text.
const utf8BOM = "\xef\xbb\xbf"

var (
	newsHeader   = []string{"date", "title", "content", "platform", "comments", "engagement_score"}
	socialHeader = []string{"date", "content", "platform", "reaction", "engagement_score"}
	mixedHeader  = []string{"type", "date", "title", "content", "platform", "engagement_score"}
	metaHeader   = []string{"sentiment", "location", "focus", "direction", "damage_category", "rescue_goods"}
)

// WriteCSV writes posts as CSV with a UTF-8 BOM. The header follows the
// variant of the posts: news and social lists get their own columns, a
// mixed list gets the shared columns plus a type column. Metadata columns
// are always appended.
func WriteCSV(w io.Writer, posts []post.Post) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	kind := listKind(posts)
	cw := csv.NewWriter(w)
	if err := cw.Write(append(header(kind), metaHeader...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range posts {
		if err := cw.Write(append(row(kind, p), metaRow(p.Meta())...)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes posts to dir/name, creating dir if needed. name must
// be a bare file name.
func WriteCSVFile(dir, name string, posts []post.Post) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	if base := filepath.Base(name); base != name || base == "." || base == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, posts); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// listKind is the shared kind of posts, or "" for an empty or mixed list.
// An empty list renders with the news header.
func listKind(posts []post.Post) post.Kind {
	if len(posts) == 0 {
		return post.KindNews
	}
	kind := posts[0].Kind()
	for _, p := range posts[1:] {
		if p.Kind() != kind {
			return ""
		}
	}
	return kind
}

func header(kind post.Kind) []string {
	switch kind {
	case post.KindNews:
		return newsHeader
	case post.KindSocial:
		return socialHeader
	}
	return mixedHeader
}

func row(kind post.Kind, p post.Post) []string {
	score := strconv.FormatInt(p.EngagementScore(), 10)
	switch kind {
	case post.KindNews:
		n, _ := p.News()
		return []string{p.DisplayDate(), n.Title, p.Content, p.Platform, strconv.Itoa(n.CommentCount), score}
	case post.KindSocial:
		s, _ := p.Social()
		return []string{p.DisplayDate(), p.Content, p.Platform, strconv.FormatInt(s.ReactionCount, 10), score}
	}
	return []string{string(p.Kind()), p.DisplayDate(), p.Title(), p.Content, p.Platform, score}
}

func metaRow(m post.Metadata) []string {
	return []string{m.Sentiment, m.Location, m.Focus, m.Direction, m.DamageCategory, m.RescueGoods}
}

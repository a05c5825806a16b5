package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/post"
)

const (
	defaultMaxNewsPages = 5
	maxFillerComments   = 50
)

// CommentFiller supplies a comment count for rows that show none.
type CommentFiller func() int

// RandomComments returns a value in [1, 50]. Listings that hide the
// counter still carry some engagement, so zero would undercount them.
func RandomComments() int {
	return rand.IntN(maxFillerComments) + 1
}

// ZeroComments reports missing counters as zero.
func ZeroComments() int {
	return 0
}

// FillerByName maps a config value onto a CommentFiller.
func FillerByName(name string) (CommentFiller, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "random":
		return RandomComments, nil
	case "zero":
		return ZeroComments, nil
	}
	return nil, fmt.Errorf("unknown comment filler %q (want random or zero)", name)
}

// NewsConfig configures the HTML news clients.
type NewsConfig struct {
	BaseURL  string
	MaxPages int
	Filler   CommentFiller
	Timeout  time.Duration
}

func (cfg NewsConfig) withDefaults(baseURL string) NewsConfig {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxNewsPages
	}
	if cfg.Filler == nil {
		cfg.Filler = RandomComments
	}
	return cfg
}

// newsRow is a listing row before validation.
type newsRow struct {
	href     string
	title    string
	body     string
	date     time.Time
	comments string
}

// htmlNewsClient shares the page loop between HTML listing sites. Only the
// URL scheme and the row parser differ per site.
type htmlNewsClient struct {
	httpSource
	cfg      NewsConfig
	platform string
	pageURL  func(query string, page int) string
	parse    func(doc *goquery.Document) []newsRow
}

func (c *htmlNewsClient) Search(ctx context.Context, query string, start, end time.Time) ([]post.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(c.name + ": query is required")
	}
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	pager := pagePager{
		MaxPages: c.cfg.MaxPages,
		Fetch: func(ctx context.Context, page int) ([]post.Post, error) {
			return c.fetchPage(ctx, query, page)
		},
	}
	res, err := pager.run(ctx, start, end)
	if err != nil {
		if cerr := c.ctxErr(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	c.log.Info("search complete",
		logger.String("query", query),
		logger.Int("posts", len(res.posts)),
		logger.Int("pages", res.calls),
		logger.Int("out_of_range", res.outOfRange),
	)
	return res.posts, nil
}

func (c *htmlNewsClient) fetchPage(ctx context.Context, query string, page int) ([]post.Post, error) {
	u := c.pageURL(query, page)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, parseError(c.name, u, fmt.Errorf("parse html: %w", err))
	}

	rows := c.parse(doc)
	posts := make([]post.Post, 0, len(rows))
	for _, r := range rows {
		p, ok := c.toPost(r)
		if !ok {
			continue
		}
		posts = append(posts, p)
	}
	c.log.Debug("page parsed",
		logger.Int("page", page),
		logger.Int("rows", len(rows)),
		logger.Int("kept", len(posts)),
	)
	return posts, nil
}

// toPost drops rows missing a title, date or body.
func (c *htmlNewsClient) toPost(r newsRow) (post.Post, bool) {
	if r.title == "" || r.body == "" || r.date.IsZero() {
		return post.Post{}, false
	}
	comments, err := strconv.Atoi(strings.TrimSpace(r.comments))
	if err != nil || comments < 0 {
		comments = c.cfg.Filler()
	}
	p, err := post.NewNews(
		post.Base{SourceID: r.href, Content: r.body, Platform: c.platform},
		post.News{Title: r.title, Published: r.date, CommentCount: comments},
	)
	if err != nil {
		return post.Post{}, false
	}
	return p, true
}

// text returns the collapsed text of the first match, or "".
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}

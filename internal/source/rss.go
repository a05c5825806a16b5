package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/floodpan/internal/fold"
	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/post"
)

const rssSourceName = "rss"

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// RSSConfig configures the feed-based news client.
type RSSConfig struct {
	Feeds   []string
	Filler  CommentFiller
	Timeout time.Duration
}

// RSSClient treats a fixed list of news feeds as pages: page n is feed n.
// Feeds carry no search, so items are matched against the query locally.
type RSSClient struct {
	httpSource
	cfg RSSConfig
}

// NewRSS creates an RSS/Atom client. At least one feed URL is required.
func NewRSS(cfg RSSConfig, log logger.Logger) (*RSSClient, error) {
	if len(cfg.Feeds) == 0 {
		return nil, errors.New("rss: at least one feed URL is required")
	}
	if cfg.Filler == nil {
		cfg.Filler = ZeroComments
	}
	return &RSSClient{
		httpSource: newHTTPSource(rssSourceName, cfg.Timeout, nil, log),
		cfg:        cfg,
	}, nil
}

func (c *RSSClient) Search(ctx context.Context, query string, start, end time.Time) ([]post.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("rss: query is required")
	}
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	pager := pagePager{
		MaxPages: len(c.cfg.Feeds),
		Fetch: func(ctx context.Context, page int) ([]post.Post, error) {
			return c.fetchFeed(ctx, c.cfg.Feeds[page-1], query)
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
		logger.Int("feeds", res.calls),
		logger.Int("out_of_range", res.outOfRange),
	)
	return res.posts, nil
}

func (c *RSSClient) fetchFeed(ctx context.Context, feedURL, query string) ([]post.Post, error) {
	body, err := c.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, parseError(c.name, feedURL, fmt.Errorf("parse feed: %w", err))
	}
	return c.postsFromFeed(feed, feedURL, query), nil
}

func (c *RSSClient) postsFromFeed(feed *gofeed.Feed, feedURL, query string) []post.Post {
	platform := feedLabel(feed, feedURL)
	var posts []post.Post
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		body := itemText(item)
		published := itemPublishedTime(item)
		if title == "" || body == "" || published.IsZero() {
			continue
		}
		if !fold.Contains(title+" "+body, query) {
			continue
		}
		p, err := post.NewNews(
			post.Base{SourceID: itemID(item), Content: body, Platform: platform},
			post.News{Title: title, Published: published.In(vietnam), CommentCount: c.cfg.Filler()},
		)
		if err != nil {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

func itemPublishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func feedLabel(feed *gofeed.Feed, feedURL string) string {
	if feed.Title != "" {
		return feed.Title
	}
	return feedURL
}

func itemID(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	return item.GUID
}

func itemText(item *gofeed.Item) string {
	raw := item.Description
	if raw == "" {
		raw = item.Content
	}
	return stripHTML(raw)
}

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

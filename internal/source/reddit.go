package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/post"
)

const (
	redditSourceName      = "reddit"
	redditPlatform        = "Reddit"
	redditBaseURL         = "https://www.reddit.com"
	redditUserAgent       = "floodpan/1.0"
	redditDefaultTarget   = 100
	redditDefaultPageSize = 25
)

// RedditConfig configures the Reddit search client. Subreddit restricts the
// search to one community; empty searches all of Reddit.
type RedditConfig struct {
	BaseURL   string
	Subreddit string
	Target    int
	PageSize  int
	MaxPages  int
	Timeout   time.Duration
}

// RedditClient searches public posts via Reddit's JSON API.
type RedditClient struct {
	httpSource
	cfg RedditConfig
}

// NewReddit creates a Reddit client. No credentials are needed for the
// public JSON endpoints.
func NewReddit(cfg RedditConfig, log logger.Logger) *RedditClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = redditBaseURL
	}
	if cfg.Target <= 0 {
		cfg.Target = redditDefaultTarget
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = redditDefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxCursorPages
	}
	return &RedditClient{
		httpSource: newHTTPSource(redditSourceName, cfg.Timeout, map[string]string{"User-Agent": redditUserAgent}, log),
		cfg:        cfg,
	}
}

// Search pages through results with Reddit's "after" fullname cursor.
func (c *RedditClient) Search(ctx context.Context, query string, _, _ time.Time) ([]post.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("reddit: query is required")
	}
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	seen := map[string]bool{"": true}
	pager := cursorPager[string]{
		Target:   c.cfg.Target,
		MaxPages: c.cfg.MaxPages,
		Fetch: func(ctx context.Context, after string) (cursorPage[string], error) {
			return c.fetchPage(ctx, query, after)
		},
		Advanced: func(_, next string) bool {
			if seen[next] {
				return false
			}
			seen[next] = true
			return true
		},
	}
	res, err := pager.run(ctx)
	if err != nil {
		if cerr := c.ctxErr(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	c.log.Info("search complete",
		logger.String("query", query),
		logger.Int("posts", len(res.posts)),
		logger.Int("calls", res.calls),
		logger.String("stop", string(res.stop)),
	)
	return res.posts, nil
}

func (c *RedditClient) searchURL(query, after string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "new")
	params.Set("limit", strconv.Itoa(c.cfg.PageSize))
	if after != "" {
		params.Set("after", after)
	}
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if c.cfg.Subreddit != "" {
		params.Set("restrict_sr", "on")
		return fmt.Sprintf("%s/r/%s/search.json?%s", base, url.PathEscape(c.cfg.Subreddit), params.Encode())
	}
	return base + "/search.json?" + params.Encode()
}

func (c *RedditClient) fetchPage(ctx context.Context, query, after string) (cursorPage[string], error) {
	u := c.searchURL(query, after)
	body, err := c.get(ctx, u)
	if err != nil {
		return cursorPage[string]{}, err
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return cursorPage[string]{}, parseError(c.name, u, fmt.Errorf("decode listing: %w", err))
	}

	page := cursorPage[string]{Next: listing.Data.After, HasMore: listing.Data.After != ""}
	for _, child := range listing.Data.Children {
		if p, ok := c.toPost(child.Data); ok {
			page.Posts = append(page.Posts, p)
		}
	}
	return page, nil
}

func (c *RedditClient) toPost(p redditPost) (post.Post, bool) {
	text := strings.TrimSpace(p.Title)
	if strings.TrimSpace(p.Selftext) != "" {
		text = text + "\n\n" + strings.TrimSpace(p.Selftext)
	}
	var created time.Time
	var raw string
	if p.CreatedUTC > 0 {
		created = time.Unix(int64(p.CreatedUTC), 0).In(vietnam)
		raw = strconv.FormatInt(int64(p.CreatedUTC), 10)
	}
	id := p.ID
	if p.Permalink != "" {
		id = strings.TrimRight(c.cfg.BaseURL, "/") + p.Permalink
	}
	out, err := post.NewSocial(
		post.Base{SourceID: id, Content: text, Platform: redditPlatform},
		post.Social{
			Created:       created,
			CreatedRaw:    raw,
			ReactionCount: nonNegative(p.Score) + nonNegative(p.NumComments),
		},
	)
	if err != nil {
		c.log.Debug("skip post", logger.String("id", p.ID), logger.Error(err))
		return post.Post{}, false
	}
	return out, true
}

type redditListing struct {
	Data struct {
		After    string        `json:"after"`
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Data redditPost `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Score       int64   `json:"score"`
	NumComments int64   `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

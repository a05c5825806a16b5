package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/post"
)

const (
	xSourceName      = "x"
	xPlatform        = "X"
	xDefaultHost     = "twitter241.p.rapidapi.com"
	xDefaultTarget   = 100
	xDefaultPageSize = 20
	xCreatedLayout   = "Mon Jan 02 15:04:05 -0700 2006"
)

// XConfig configures the X (Twitter) search client.
type XConfig struct {
	APIKey   string
	Host     string
	BaseURL  string
	Target   int
	PageSize int
	MaxPages int
	Timeout  time.Duration
}

// XClient searches X posts through the twitter241 API.
type XClient struct {
	httpSource
	cfg XConfig
}

// NewX creates an X client. An API key is required.
func NewX(cfg XConfig, log logger.Logger) (*XClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("x: api key is required")
	}
	if cfg.Host == "" {
		cfg.Host = xDefaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	if cfg.Target <= 0 {
		cfg.Target = xDefaultTarget
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = xDefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxCursorPages
	}
	headers := map[string]string{
		"X-RapidAPI-Key":  cfg.APIKey,
		"X-RapidAPI-Host": cfg.Host,
	}
	return &XClient{
		httpSource: newHTTPSource(xSourceName, cfg.Timeout, headers, log),
		cfg:        cfg,
	}, nil
}

type xTweet struct {
	ID            string `json:"id_str"`
	FullText      string `json:"full_text"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	FavoriteCount int64  `json:"favorite_count"`
	RetweetCount  int64  `json:"retweet_count"`
	ReplyCount    int64  `json:"reply_count"`
}

// Search collects tweets until the target is reached, the bottom cursor
// disappears, or a cursor repeats.
func (c *XClient) Search(ctx context.Context, query string, _, _ time.Time) ([]post.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("x: query is required")
	}
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	// String cursors have no order; a repeat is the only stall signal.
	seen := map[string]bool{"": true}
	pager := cursorPager[string]{
		Target:   c.cfg.Target,
		MaxPages: c.cfg.MaxPages,
		Fetch: func(ctx context.Context, cursor string) (cursorPage[string], error) {
			return c.fetchPage(ctx, query, cursor)
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

func (c *XClient) searchURL(query, cursor string) string {
	params := url.Values{}
	params.Set("type", "Top")
	params.Set("count", strconv.Itoa(c.cfg.PageSize))
	params.Set("query", query)
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/search-v2?" + params.Encode()
}

func (c *XClient) fetchPage(ctx context.Context, query, cursor string) (cursorPage[string], error) {
	u := c.searchURL(query, cursor)
	body, err := c.get(ctx, u)
	if err != nil {
		return cursorPage[string]{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return cursorPage[string]{}, parseError(c.name, u, fmt.Errorf("decode response: %w", err))
	}
	root, ok := tree.(map[string]any)
	if !ok {
		return cursorPage[string]{}, parseError(c.name, u, errors.New("response is not an object"))
	}
	if inner, ok := root["body"].(map[string]any); ok {
		root = inner
	}

	var page cursorPage[string]
	if cur, ok := root["cursor"].(map[string]any); ok {
		if bottom, ok := cur["bottom"].(string); ok {
			page.Next = strings.TrimSpace(bottom)
		}
	}
	page.HasMore = page.Next != ""

	delete(root, "cursor")
	for _, t := range collectTweets(root) {
		p, ok := c.toPost(t)
		if !ok {
			continue
		}
		page.Posts = append(page.Posts, p)
	}
	return page, nil
}

// collectTweets walks a decoded JSON tree depth-first and returns every
// "legacy" object that carries tweet text. Object keys are visited in sorted
// order so results are stable across runs.
func collectTweets(node any) []xTweet {
	var out []xTweet
	var walk func(n any)
	walk = func(n any) {
		switch v := n.(type) {
		case map[string]any:
			if legacy, ok := v["legacy"].(map[string]any); ok {
				if t, ok := tweetFromLegacy(legacy, v); ok {
					out = append(out, t)
					return
				}
			}
			for _, k := range sortedKeys(v) {
				walk(v[k])
			}
		case []any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	walk(node)
	return out
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}

func tweetFromLegacy(legacy, parent map[string]any) (xTweet, bool) {
	raw, err := json.Marshal(legacy)
	if err != nil {
		return xTweet{}, false
	}
	var t xTweet
	if err := json.Unmarshal(raw, &t); err != nil {
		return xTweet{}, false
	}
	if strings.TrimSpace(t.FullText) == "" && strings.TrimSpace(t.Text) == "" {
		return xTweet{}, false
	}
	if t.ID == "" {
		if id, ok := parent["rest_id"].(string); ok {
			t.ID = id
		}
	}
	return t, true
}

func (c *XClient) toPost(t xTweet) (post.Post, bool) {
	text := firstNonEmpty(t.FullText, t.Text)
	raw := strings.TrimSpace(t.CreatedAt)
	var created time.Time
	if ts, err := time.Parse(xCreatedLayout, raw); err == nil {
		created = ts.In(vietnam)
	}
	p, err := post.NewSocial(
		post.Base{SourceID: t.ID, Content: text, Platform: xPlatform},
		post.Social{
			Created:       created,
			CreatedRaw:    raw,
			ReactionCount: nonNegative(t.FavoriteCount) + nonNegative(t.RetweetCount) + nonNegative(t.ReplyCount),
		},
	)
	if err != nil {
		c.log.Debug("skip tweet", logger.String("id", t.ID), logger.Error(err))
		return post.Post{}, false
	}
	return p, true
}

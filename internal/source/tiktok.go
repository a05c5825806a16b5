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
	tiktokSourceName      = "tiktok"
	tiktokPlatform        = "TikTok"
	tiktokDefaultHost     = "tiktok-scraper7.p.rapidapi.com"
	tiktokDefaultRegion   = "vn"
	tiktokDefaultTarget   = 120
	tiktokDefaultPageSize = 30
	defaultMaxCursorPages = 10
)

// vietnam is the zone platform timestamps are rendered in.
var vietnam = mustLoadZone("Asia/Ho_Chi_Minh", 7*60*60)

func mustLoadZone(name string, offset int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, offset)
	}
	return loc
}

// TikTokConfig configures the TikTok search client.
type TikTokConfig struct {
	APIKey   string
	Host     string // RapidAPI host header
	BaseURL  string // defaults to https://<Host>
	Region   string
	Target   int
	PageSize int
	MaxPages int
	Timeout  time.Duration
}

// TikTokClient searches TikTok videos through the tiktok-scraper7 API.
type TikTokClient struct {
	httpSource
	cfg TikTokConfig
}

// NewTikTok creates a TikTok client. An API key is required.
func NewTikTok(cfg TikTokConfig, log logger.Logger) (*TikTokClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("tiktok: api key is required")
	}
	if cfg.Host == "" {
		cfg.Host = tiktokDefaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	if cfg.Region == "" {
		cfg.Region = tiktokDefaultRegion
	}
	if cfg.Target <= 0 {
		cfg.Target = tiktokDefaultTarget
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = tiktokDefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxCursorPages
	}
	headers := map[string]string{
		"X-RapidAPI-Key":  cfg.APIKey,
		"X-RapidAPI-Host": cfg.Host,
	}
	return &TikTokClient{
		httpSource: newHTTPSource(tiktokSourceName, cfg.Timeout, headers, log),
		cfg:        cfg,
	}, nil
}

type tiktokResponse struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data *tiktokData `json:"data"`
}

type tiktokData struct {
	Videos     []tiktokVideo `json:"videos"`
	Cursor     json.Number   `json:"cursor"`
	HasMore    bool          `json:"hasMore"`
	HasMoreAlt bool          `json:"has_more"`
}

type tiktokVideo struct {
	VideoID      string `json:"video_id"`
	AwemeID      string `json:"aweme_id"`
	ID           string `json:"id"`
	Title        string `json:"title"`
	DiggCount    int64  `json:"digg_count"`
	ShareCount   int64  `json:"share_count"`
	CommentCount int64  `json:"comment_count"`
	CreateTime   int64  `json:"create_time"`
}

// Search collects videos until the target is reached or the feed runs dry.
// Dates are not filtered here: the API has no date parameters.
func (c *TikTokClient) Search(ctx context.Context, query string, _, _ time.Time) ([]post.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("tiktok: query is required")
	}
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	pager := cursorPager[int64]{
		Target:   c.cfg.Target,
		MaxPages: c.cfg.MaxPages,
		Initial:  0,
		Fetch: func(ctx context.Context, cursor int64) (cursorPage[int64], error) {
			return c.fetchPage(ctx, query, cursor)
		},
		Advanced: func(prev, next int64) bool { return next > prev },
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

func (c *TikTokClient) searchURL(query string, cursor int64) string {
	params := url.Values{}
	params.Set("keywords", query)
	params.Set("region", c.cfg.Region)
	params.Set("count", strconv.Itoa(c.cfg.PageSize))
	params.Set("cursor", strconv.FormatInt(cursor, 10))
	params.Set("publish_time", "0")
	params.Set("sort_type", "0")
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/feed/search?" + params.Encode()
}

func (c *TikTokClient) fetchPage(ctx context.Context, query string, cursor int64) (cursorPage[int64], error) {
	u := c.searchURL(query, cursor)
	body, err := c.get(ctx, u)
	if err != nil {
		return cursorPage[int64]{}, err
	}

	var resp tiktokResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return cursorPage[int64]{}, parseError(c.name, u, fmt.Errorf("decode response: %w", err))
	}
	if resp.Data == nil {
		// An error envelope or an empty result set; either way nothing more to read.
		if resp.Code != 0 && resp.Msg != "" {
			c.log.Warn("api returned no data", logger.Int("code", resp.Code), logger.String("msg", resp.Msg))
		}
		return cursorPage[int64]{}, nil
	}

	page := cursorPage[int64]{HasMore: resp.Data.HasMore || resp.Data.HasMoreAlt}
	if resp.Data.Cursor != "" {
		next, err := resp.Data.Cursor.Int64()
		if err != nil {
			return cursorPage[int64]{}, parseError(c.name, u, fmt.Errorf("cursor %q: %w", resp.Data.Cursor, err))
		}
		page.Next = next
	}

	for _, v := range resp.Data.Videos {
		p, ok := c.toPost(v)
		if !ok {
			continue
		}
		page.Posts = append(page.Posts, p)
	}
	return page, nil
}

func (c *TikTokClient) toPost(v tiktokVideo) (post.Post, bool) {
	id := firstNonEmpty(v.VideoID, v.AwemeID, v.ID)
	var created time.Time
	var raw string
	if v.CreateTime > 0 {
		created = time.Unix(v.CreateTime, 0).In(vietnam)
		raw = strconv.FormatInt(v.CreateTime, 10)
	}
	p, err := post.NewSocial(
		post.Base{SourceID: id, Content: strings.TrimSpace(v.Title), Platform: tiktokPlatform},
		post.Social{
			Created:       created,
			CreatedRaw:    raw,
			ReactionCount: nonNegative(v.DiggCount) + nonNegative(v.ShareCount) + nonNegative(v.CommentCount),
		},
	)
	if err != nil {
		c.log.Debug("skip video", logger.String("id", id), logger.Error(err))
		return post.Post{}, false
	}
	return p, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

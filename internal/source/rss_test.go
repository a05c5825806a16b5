package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/floodpan/internal/post"
)

func TestNewRSS_EmptyFeeds(t *testing.T) {
	_, err := NewRSS(RSSConfig{}, nil)
	if err == nil {
		t.Fatal("expected error for nil feeds")
	}

	_, err = NewRSS(RSSConfig{Feeds: []string{}}, nil)
	if err == nil {
		t.Fatal("expected error for empty feeds")
	}
}

func TestRSSClient_Name(t *testing.T) {
	rs, err := NewRSS(RSSConfig{Feeds: []string{"https://example.com/feed.xml"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Name() != "rss" {
		t.Errorf("name = %q, want rss", rs.Name())
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple tags", "<p>hello</p>", "hello"},
		{"nested tags", "<div><p>hello</p></div>", "hello"},
		{"entities", "&amp; &lt; &gt;", "& < >"},
		{"mixed", "<b>bold</b> &amp; <i>italic</i>", "bold & italic"},
		{"empty", "", ""},
		{"no html", "plain text", "plain text"},
		{"self-closing", "line<br/>break", "line break"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripHTML(tt.input)
			if got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestItemPublishedTime(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	t.Run("published", func(t *testing.T) {
		item := &gofeed.Item{PublishedParsed: &now}
		if got := itemPublishedTime(item); !got.Equal(now) {
			t.Errorf("got %v, want %v", got, now)
		}
	})

	t.Run("updated fallback", func(t *testing.T) {
		item := &gofeed.Item{UpdatedParsed: &earlier}
		if got := itemPublishedTime(item); !got.Equal(earlier) {
			t.Errorf("got %v, want %v", got, earlier)
		}
	})

	t.Run("zero", func(t *testing.T) {
		item := &gofeed.Item{}
		if got := itemPublishedTime(item); !got.IsZero() {
			t.Errorf("got %v, want zero", got)
		}
	})
}

func TestItemID(t *testing.T) {
	t.Run("link", func(t *testing.T) {
		item := &gofeed.Item{GUID: "abc-123", Link: "https://example.com/post"}
		if got := itemID(item); got != "https://example.com/post" {
			t.Errorf("got %q, want link", got)
		}
	})

	t.Run("guid fallback", func(t *testing.T) {
		item := &gofeed.Item{GUID: "abc-123"}
		if got := itemID(item); got != "abc-123" {
			t.Errorf("got %q, want abc-123", got)
		}
	})
}

func TestFeedLabel(t *testing.T) {
	if got := feedLabel(&gofeed.Feed{Title: "VnExpress - Thời sự"}, "https://x/feed"); got != "VnExpress - Thời sự" {
		t.Errorf("got %q", got)
	}
	if got := feedLabel(&gofeed.Feed{}, "https://x/feed"); got != "https://x/feed" {
		t.Errorf("got %q, want URL", got)
	}
}

const rssFeedA = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Thời sự</title>
<item><title>Mưa lũ ở miền Trung</title><link>https://news.test/a1</link>
  <description><![CDATA[<p>Nước lên nhanh tại <b>Quảng Ngãi</b></p>]]></description>
  <pubDate>Mon, 03 Nov 2025 08:00:00 +0700</pubDate></item>
<item><title>Giá vàng hôm nay</title><link>https://news.test/a2</link>
  <description>Không liên quan</description>
  <pubDate>Mon, 03 Nov 2025 09:00:00 +0700</pubDate></item>
<item><title>MƯA LŨ tháng trước</title><link>https://news.test/a3</link>
  <description>Tin cũ</description>
  <pubDate>Wed, 15 Oct 2025 09:00:00 +0700</pubDate></item>
</channel></rss>`

const rssFeedB = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Xã hội</title>
<item><title>Cứu hộ vùng mua lu</title><link>https://news.test/b1</link>
  <description>Đội cứu hộ tiếp cận</description>
  <pubDate>Fri, 07 Nov 2025 10:00:00 +0700</pubDate></item>
<item><title>Mưa lũ không ngày</title><link>https://news.test/b2</link>
  <description>Không có ngày</description></item>
</channel></rss>`

func TestRSSSearch_FeedsArePages(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		switch r.URL.Path {
		case "/a.xml":
			_, _ = w.Write([]byte(rssFeedA))
		case "/b.xml":
			_, _ = w.Write([]byte(rssFeedB))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	rs, err := NewRSS(RSSConfig{Feeds: []string{ts.URL + "/a.xml", ts.URL + "/b.xml"}}, nil)
	if err != nil {
		t.Fatalf("new rss: %v", err)
	}

	posts, err := rs.Search(context.Background(), "mưa lũ", post.Date(2025, 11, 1), post.Date(2025, 11, 30))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2: %v", len(posts), posts)
	}

	p := posts[0]
	if p.Title() != "Mưa lũ ở miền Trung" {
		t.Errorf("title = %q", p.Title())
	}
	if p.Content != "Nước lên nhanh tại Quảng Ngãi" {
		t.Errorf("content = %q", p.Content)
	}
	if p.Platform != "Thời sự" {
		t.Errorf("platform = %q", p.Platform)
	}
	if p.DisplayDate() != "2025-11-03" {
		t.Errorf("date = %q", p.DisplayDate())
	}
	if p.EngagementScore() != 0 {
		t.Errorf("engagement = %d, want 0", p.EngagementScore())
	}
	if posts[1].SourceID != "https://news.test/b1" {
		t.Errorf("accent-free title should match: got %q", posts[1].SourceID)
	}
}

func TestRSSSearch_MissingFeedFails(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	rs, _ := NewRSS(RSSConfig{Feeds: []string{ts.URL + "/gone.xml"}}, nil)
	_, err := rs.Search(context.Background(), "lũ", time.Time{}, time.Time{})
	if !IsKind(err, KindStatus) {
		t.Fatalf("err = %v, want status error", err)
	}
}

func TestRSSSearch_BadFeedIsParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("this is not a feed"))
	}))
	defer ts.Close()

	rs, _ := NewRSS(RSSConfig{Feeds: []string{ts.URL}}, nil)
	_, err := rs.Search(context.Background(), "lũ", time.Time{}, time.Time{})
	if !IsKind(err, KindParse) {
		t.Fatalf("err = %v, want parse error", err)
	}
}

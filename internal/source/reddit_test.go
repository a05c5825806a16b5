package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func makeListing(after string, posts ...redditPost) redditListing {
	var l redditListing
	l.Data.After = after
	for _, p := range posts {
		l.Data.Children = append(l.Data.Children, redditChild{Data: p})
	}
	return l
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	return string(b)
}

func TestRedditClient_Name(t *testing.T) {
	rc := NewReddit(RedditConfig{}, nil)
	if rc.Name() != "reddit" {
		t.Errorf("name = %q, want reddit", rc.Name())
	}
}

func TestRedditSearch_AfterCursor(t *testing.T) {
	created := float64(time.Date(2025, 11, 2, 3, 0, 0, 0, time.UTC).Unix())
	var afters []string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != redditUserAgent {
			t.Errorf("user-agent = %q, want %q", r.Header.Get("User-Agent"), redditUserAgent)
		}
		if r.URL.Path != "/r/VietNam/search.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("restrict_sr") != "on" || q.Get("q") != "flood" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		afters = append(afters, q.Get("after"))

		var l redditListing
		switch q.Get("after") {
		case "":
			l = makeListing("t3_b",
				redditPost{ID: "a", Title: "Flood in Hue", Selftext: "Water everywhere", Permalink: "/r/VietNam/comments/a/", Score: 40, NumComments: 5, CreatedUTC: created},
				redditPost{ID: "b", Title: "Typhoon update", Permalink: "/r/VietNam/comments/b/", Score: 3, CreatedUTC: created},
			)
		default:
			l = makeListing("", redditPost{ID: "c", Title: "Relief drive", Permalink: "/r/VietNam/comments/c/", Score: -2, NumComments: 1})
		}
		_, _ = w.Write([]byte(mustJSON(t, l)))
	}))
	defer ts.Close()

	rc := NewReddit(RedditConfig{BaseURL: ts.URL, Subreddit: "VietNam"}, nil)
	posts, err := rc.Search(context.Background(), "flood", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("got %d posts, want 3", len(posts))
	}
	if strings.Join(afters, ",") != ",t3_b" {
		t.Errorf("afters = %v", afters)
	}

	p := posts[0]
	if !strings.Contains(p.Content, "Flood in Hue") || !strings.Contains(p.Content, "Water everywhere") {
		t.Errorf("content = %q, want title + selftext", p.Content)
	}
	if p.EngagementScore() != 45 {
		t.Errorf("engagement = %d, want 45", p.EngagementScore())
	}
	if p.SourceID != ts.URL+"/r/VietNam/comments/a/" {
		t.Errorf("source id = %q", p.SourceID)
	}
	if p.DisplayDate() != "2025-11-02" {
		t.Errorf("date = %q", p.DisplayDate())
	}
	if posts[1].Content != "Typhoon update" {
		t.Errorf("link post content = %q, want just title", posts[1].Content)
	}
	if posts[2].EngagementScore() != 1 {
		t.Errorf("negative score should clamp: got %d", posts[2].EngagementScore())
	}
	if posts[2].DisplayDate() != "N/A" {
		t.Errorf("missing created_utc date = %q", posts[2].DisplayDate())
	}
}

func TestRedditSearch_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	rc := NewReddit(RedditConfig{BaseURL: ts.URL}, nil)
	_, err := rc.Search(context.Background(), "flood", time.Time{}, time.Time{})
	if !IsKind(err, KindStatus) {
		t.Fatalf("err = %v, want status error", err)
	}
}

func TestRedditSearch_MalformedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{{{not json"))
	}))
	defer ts.Close()

	rc := NewReddit(RedditConfig{BaseURL: ts.URL}, nil)
	_, err := rc.Search(context.Background(), "flood", time.Time{}, time.Time{})
	if !IsKind(err, KindParse) {
		t.Fatalf("err = %v, want parse error", err)
	}
}

func TestRedditSearchURL_AllReddit(t *testing.T) {
	rc := NewReddit(RedditConfig{BaseURL: "https://reddit.test"}, nil)
	got := rc.searchURL("bão lũ", "")
	if !strings.HasPrefix(got, "https://reddit.test/search.json?") {
		t.Errorf("url = %q", got)
	}
	if strings.Contains(got, "restrict_sr") || strings.Contains(got, "after=") {
		t.Errorf("url = %q, want no subreddit restriction or cursor", got)
	}
}

package source

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/floodpan/internal/logger"
)

const (
	dantriSourceName = "dantri"
	dantriPlatform   = "Dân trí"
	dantriBaseURL    = "https://dantri.com.vn"
	dantriDateLayout = "20060102"
)

// DantriClient searches the Dân trí site search listing.
type DantriClient struct {
	htmlNewsClient
}

// NewDantri creates a Dân trí client.
func NewDantri(cfg NewsConfig, log logger.Logger) *DantriClient {
	cfg = cfg.withDefaults(dantriBaseURL)
	c := &DantriClient{htmlNewsClient{
		httpSource: newHTTPSource(dantriSourceName, cfg.Timeout, nil, log),
		cfg:        cfg,
		platform:   dantriPlatform,
		parse:      parseDantri,
	}}
	c.pageURL = func(query string, page int) string {
		return fmt.Sprintf("%s/tim-kiem/%s.htm?pi=%d", strings.TrimRight(cfg.BaseURL, "/"), dantriSlug(query), page)
	}
	return c
}

// dantriSlug joins query words with "+", escaping each word for the path.
func dantriSlug(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = url.PathEscape(w)
	}
	return strings.Join(words, "+")
}

func parseDantri(doc *goquery.Document) []newsRow {
	var rows []newsRow
	doc.Find(".article-item").Each(func(_ int, s *goquery.Selection) {
		link := s.Find(".dt-text-black-mine").First()
		href, _ := link.Attr("href")
		excerpt := s.Find(".article-excerpt").First()
		// The excerpt box also holds the date and comment widgets.
		body := excerpt.Clone()
		body.Find("span[data-id], button").Remove()
		row := newsRow{
			href:     href,
			title:    text(link),
			body:     text(body),
			comments: text(excerpt.Find("button")),
		}
		row.date = dantriDate(excerpt.Find("span[data-id]").First().AttrOr("data-id", ""))
		rows = append(rows, row)
	})
	return rows
}

// dantriDate reads the YYYYMMDD prefix of a data-id attribute.
func dantriDate(label string) time.Time {
	label = strings.TrimSpace(label)
	if len(label) < len(dantriDateLayout) {
		return time.Time{}
	}
	t, err := time.Parse(dantriDateLayout, label[:len(dantriDateLayout)])
	if err != nil {
		return time.Time{}
	}
	return t
}

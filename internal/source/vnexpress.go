package source

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/floodpan/internal/logger"
)

const (
	vnexpressSourceName = "vnexpress"
	vnexpressPlatform   = "VNExpress"
	vnexpressBaseURL    = "https://timkiem.vnexpress.net/"
)

// VNExpressClient searches the VNExpress site search listing.
type VNExpressClient struct {
	htmlNewsClient
}

// NewVNExpress creates a VNExpress client.
func NewVNExpress(cfg NewsConfig, log logger.Logger) *VNExpressClient {
	cfg = cfg.withDefaults(vnexpressBaseURL)
	c := &VNExpressClient{htmlNewsClient{
		httpSource: newHTTPSource(vnexpressSourceName, cfg.Timeout, nil, log),
		cfg:        cfg,
		platform:   vnexpressPlatform,
		parse:      parseVNExpress,
	}}
	c.pageURL = func(query string, page int) string {
		return fmt.Sprintf("%s?q=%s&page=%d", cfg.BaseURL, url.QueryEscape(query), page)
	}
	return c
}

func parseVNExpress(doc *goquery.Document) []newsRow {
	var rows []newsRow
	doc.Find("article.item-news[data-publishtime]").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("h3.title-news a").First()
		href, _ := link.Attr("href")
		row := newsRow{
			href:     href,
			title:    text(link),
			body:     text(s.Find("p.description")),
			comments: text(s.Find("p.meta-news span")),
		}
		if epoch, err := strconv.ParseInt(strings.TrimSpace(s.AttrOr("data-publishtime", "")), 10, 64); err == nil && epoch > 0 {
			row.date = time.Unix(epoch, 0).In(vietnam)
		}
		rows = append(rows, row)
	})
	return rows
}

// Package post defines the normalized post shared by every source.
package post

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind tags the variant a Post was constructed as.
type Kind string

const (
	KindNews   Kind = "news"
	KindSocial Kind = "social"
)

const (
	FocusDamage = "damage"
	FocusRescue = "rescue"

	dateLayout   = "2006-01-02"
	notAvailable = "N/A"
)

var (
	ErrEmptyContent  = errors.New("content is required")
	ErrEmptyPlatform = errors.New("platform is required")
	ErrNegativeCount = errors.New("count must not be negative")
	ErrWrongKind     = errors.New("operation does not apply to this post kind")
)

// Base holds the fields common to every variant.
type Base struct {
	SourceID string // origin-unique id, empty if unavailable
	Content  string
	Platform string
}

// News is the payload of an article from a news site.
type News struct {
	Title        string
	Published    time.Time // calendar date, UTC midnight
	CommentCount int
}

// Social is the payload of a post from a social network.
type Social struct {
	Created       time.Time // calendar date, zero when CreatedRaw could not be parsed
	CreatedRaw    string
	ReactionCount int64 // likes + shares + comments at ingestion time
}

// Metadata is classification output. Empty strings mean unset.
type Metadata struct {
	Sentiment      string
	Location       string
	Focus          string
	Direction      string
	DamageCategory string
	RescueGoods    string
}

// IsZero reports whether no field is set.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// Normalized trims every field and drops the category that contradicts Focus.
func (m Metadata) Normalized() Metadata {
	out := Metadata{
		Sentiment:      strings.TrimSpace(m.Sentiment),
		Location:       strings.TrimSpace(m.Location),
		Focus:          strings.TrimSpace(m.Focus),
		Direction:      strings.TrimSpace(m.Direction),
		DamageCategory: strings.TrimSpace(m.DamageCategory),
		RescueGoods:    strings.TrimSpace(m.RescueGoods),
	}
	switch out.Focus {
	case FocusDamage:
		out.RescueGoods = ""
	case FocusRescue:
		out.DamageCategory = ""
	}
	return out
}

// Post is a tagged union over News and Social. The kind is fixed at
// construction; only metadata and the engagement counters change afterwards.
type Post struct {
	Base

	meta   Metadata
	kind   Kind
	news   News
	social Social
}

// NewNews builds a validated news post.
func NewNews(b Base, n News) (Post, error) {
	if n.CommentCount < 0 {
		return Post{}, fmt.Errorf("comment count %d: %w", n.CommentCount, ErrNegativeCount)
	}
	n.Published = Day(n.Published)
	p := Post{Base: b, kind: KindNews, news: n}
	if err := p.Validate(); err != nil {
		return Post{}, err
	}
	return p, nil
}

// NewSocial builds a validated social post.
func NewSocial(b Base, s Social) (Post, error) {
	if s.ReactionCount < 0 {
		return Post{}, fmt.Errorf("reaction count %d: %w", s.ReactionCount, ErrNegativeCount)
	}
	s.Created = Day(s.Created)
	p := Post{Base: b, kind: KindSocial, social: s}
	if err := p.Validate(); err != nil {
		return Post{}, err
	}
	return p, nil
}

// Validate checks the invariants every persisted post must hold.
func (p Post) Validate() error {
	if strings.TrimSpace(p.Content) == "" {
		return ErrEmptyContent
	}
	if strings.TrimSpace(p.Platform) == "" {
		return ErrEmptyPlatform
	}
	switch p.kind {
	case KindNews:
		if p.news.CommentCount < 0 {
			return ErrNegativeCount
		}
	case KindSocial:
		if p.social.ReactionCount < 0 {
			return ErrNegativeCount
		}
	default:
		return fmt.Errorf("unknown post kind %q", p.kind)
	}
	return nil
}

func (p Post) Kind() Kind { return p.kind }

// News returns the news payload and whether p is a news post.
func (p Post) News() (News, bool) {
	return p.news, p.kind == KindNews
}

// Social returns the social payload and whether p is a social post.
func (p Post) Social() (Social, bool) {
	return p.social, p.kind == KindSocial
}

// Title is the news title, empty for social posts.
func (p Post) Title() string {
	if p.kind == KindNews {
		return p.news.Title
	}
	return ""
}

// Date is the variant-specific calendar date; zero if unknown.
func (p Post) Date() time.Time {
	switch p.kind {
	case KindNews:
		return p.news.Published
	case KindSocial:
		return p.social.Created
	}
	return time.Time{}
}

// SetCommentCount updates a news post's comment count.
func (p *Post) SetCommentCount(n int) error {
	if p.kind != KindNews {
		return ErrWrongKind
	}
	if n < 0 {
		return ErrNegativeCount
	}
	p.news.CommentCount = n
	return nil
}

// SetReactionCount updates a social post's reaction count.
func (p *Post) SetReactionCount(n int64) error {
	if p.kind != KindSocial {
		return ErrWrongKind
	}
	if n < 0 {
		return ErrNegativeCount
	}
	p.social.ReactionCount = n
	return nil
}

// SetMetadata stores normalized classification output.
func (p *Post) SetMetadata(m Metadata) {
	p.meta = m.Normalized()
}

// Meta returns the classification output, zero when unclassified.
func (p Post) Meta() Metadata { return p.meta }

// EngagementScore is comments for news and reactions for social posts.
func (p Post) EngagementScore() int64 {
	switch p.kind {
	case KindNews:
		return int64(p.news.CommentCount)
	case KindSocial:
		return p.social.ReactionCount
	}
	return 0
}

// DisplayDate renders the variant date for humans and CSV.
func (p Post) DisplayDate() string {
	switch p.kind {
	case KindNews:
		if !p.news.Published.IsZero() {
			return p.news.Published.Format(dateLayout)
		}
	case KindSocial:
		if !p.social.Created.IsZero() {
			return p.social.Created.Format(dateLayout)
		}
		if raw := strings.TrimSpace(p.social.CreatedRaw); raw != "" {
			return raw
		}
	}
	return notAvailable
}

func (p Post) String() string {
	switch p.kind {
	case KindNews:
		return fmt.Sprintf("news[%s %s %q comments=%d]", p.Platform, p.DisplayDate(), p.news.Title, p.news.CommentCount)
	case KindSocial:
		return fmt.Sprintf("social[%s %s reactions=%d]", p.Platform, p.DisplayDate(), p.social.ReactionCount)
	}
	return "post[invalid]"
}

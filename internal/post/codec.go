package post

import (
	"encoding/json"
	"errors"
	"fmt"
)

// wirePost is the persisted shape: shared fields, a type discriminator, and
// the fields of whichever variant the type names.
type wirePost struct {
	Type     Kind   `json:"type"`
	SourceID string `json:"source_id,omitempty"`
	Content  string `json:"content"`
	Platform string `json:"platform"`

	Title        string `json:"title,omitempty"`
	PublishDate  string `json:"publish_date,omitempty"`
	CommentCount *int   `json:"comment_count,omitempty"`

	CreatedDate   string `json:"created_date,omitempty"`
	CreatedRaw    string `json:"created_raw,omitempty"`
	ReactionCount *int64 `json:"reaction_count,omitempty"`

	Sentiment      string `json:"sentiment,omitempty"`
	Location       string `json:"location,omitempty"`
	Focus          string `json:"focus,omitempty"`
	Direction      string `json:"direction,omitempty"`
	DamageCategory string `json:"damage_category,omitempty"`
	RescueGoods    string `json:"rescue_goods,omitempty"`
}

var errMissingType = errors.New("post: missing type discriminator")

func (p Post) MarshalJSON() ([]byte, error) {
	w := wirePost{
		Type:           p.kind,
		SourceID:       p.SourceID,
		Content:        p.Content,
		Platform:       p.Platform,
		Sentiment:      p.meta.Sentiment,
		Location:       p.meta.Location,
		Focus:          p.meta.Focus,
		Direction:      p.meta.Direction,
		DamageCategory: p.meta.DamageCategory,
		RescueGoods:    p.meta.RescueGoods,
	}
	switch p.kind {
	case KindNews:
		comments := p.news.CommentCount
		w.Title = p.news.Title
		w.PublishDate = FormatDate(p.news.Published)
		w.CommentCount = &comments
	case KindSocial:
		reactions := p.social.ReactionCount
		w.CreatedDate = FormatDate(p.social.Created)
		w.CreatedRaw = p.social.CreatedRaw
		w.ReactionCount = &reactions
	default:
		return nil, fmt.Errorf("post: cannot marshal kind %q", p.kind)
	}
	return json.Marshal(w)
}

func (p *Post) UnmarshalJSON(data []byte) error {
	var w wirePost
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	base := Base{SourceID: w.SourceID, Content: w.Content, Platform: w.Platform}
	var (
		decoded Post
		err     error
	)
	switch w.Type {
	case KindNews:
		published, perr := ParseDate(w.PublishDate)
		if perr != nil {
			return fmt.Errorf("post: %w", perr)
		}
		n := News{Title: w.Title, Published: published}
		if w.CommentCount != nil {
			n.CommentCount = *w.CommentCount
		}
		decoded, err = NewNews(base, n)
	case KindSocial:
		created, perr := ParseDate(w.CreatedDate)
		if perr != nil {
			return fmt.Errorf("post: %w", perr)
		}
		s := Social{Created: created, CreatedRaw: w.CreatedRaw}
		if w.ReactionCount != nil {
			s.ReactionCount = *w.ReactionCount
		}
		decoded, err = NewSocial(base, s)
	case "":
		return errMissingType
	default:
		return fmt.Errorf("post: unknown type %q", w.Type)
	}
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}

	// Stored metadata is restored verbatim; it was normalized when first set.
	decoded.meta = Metadata{
		Sentiment:      w.Sentiment,
		Location:       w.Location,
		Focus:          w.Focus,
		Direction:      w.Direction,
		DamageCategory: w.DamageCategory,
		RescueGoods:    w.RescueGoods,
	}
	*p = decoded
	return nil
}

// MarshalList encodes posts as a JSON array of tagged objects.
func MarshalList(posts []Post) ([]byte, error) {
	if posts == nil {
		posts = []Post{}
	}
	return json.Marshal(posts)
}

// UnmarshalList decodes a JSON array written by MarshalList.
func UnmarshalList(data []byte) ([]Post, error) {
	var posts []Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

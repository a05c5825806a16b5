package export

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/floodpan/internal/post"
)

type jsonOutput struct {
	Meta    jsonMeta     `json:"meta"`
	Sources []jsonSource `json:"sources"`
}

type jsonMeta struct {
	Query string `json:"query"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Total int    `json:"total"`
}

type jsonSource struct {
	Source string      `json:"source"`
	Count  int         `json:"count"`
	Error  string      `json:"error,omitempty"`
	Posts  []post.Post `json:"posts"`
}

// JSONFormatter renders results as indented JSON; posts use the tagged
// cache encoding.
type JSONFormatter struct{}

// NewJSON creates a JSON formatter.
func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the results as JSON to w.
func (f *JSONFormatter) Format(w io.Writer, input Input) error {
	out := jsonOutput{
		Meta: jsonMeta{
			Query: input.Query,
			From:  post.FormatDate(input.From),
			To:    post.FormatDate(input.To),
			Total: input.Total(),
		},
		Sources: make([]jsonSource, 0, len(input.Results)),
	}
	for _, r := range input.Results {
		js := jsonSource{Source: r.Source, Count: len(r.Posts), Posts: r.Posts}
		if js.Posts == nil {
			js.Posts = []post.Post{}
		}
		if r.Err != nil {
			js.Error = r.Err.Error()
		}
		out.Sources = append(out.Sources, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

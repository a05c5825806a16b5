package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/floodpan/internal/post"
)

// Format selects the request/response shape of the LLM endpoint.
type Format string

const (
	FormatOpenAI Format = "openai"
	FormatGemini Format = "gemini"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultGeminiBase     = "https://generativelanguage.googleapis.com/v1beta/models/"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultMaxTokens      = 300
	httpTimeout           = 30 * time.Second
	maxResponseBytes      = 1 << 20
)

// SystemPrompt asks for one JSON object with the classification keys.
const SystemPrompt = `Bạn là AI phân loại nội dung bài viết về thiên tai (bão, lũ, sạt lở).
Trả về đúng một đối tượng JSON với các trường:
- loai_bai_viet: "damage" hoặc "rescue"
- cam_xuc_bai_viet: "tích cực", "tiêu cực" hoặc "trung lập"
- tinh_thanh: tên tỉnh/thành phố được nhắc tới
- huong_bai_viet: "urgent", "plan" hoặc "info"
- damage_category: "hạ tầng", "nông nghiệp", "nhà cửa" hoặc "sức khỏe" (chỉ khi loai_bai_viet là damage)
- rescue_goods: "thức ăn", "nước uống", "quần áo", "chỗ ở" hoặc "thuốc men" (chỉ khi loai_bai_viet là rescue)
Chỉ trả về JSON, không giải thích thêm.`

// LLMConfig configures the LLM classifier.
type LLMConfig struct {
	Format    Format
	Endpoint  string // full URL; defaults per format
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Prompt    string
}

// LLMClassifier sends post text to an OpenAI-compatible or Gemini endpoint
// and parses the returned JSON labels. It has no fallback: failures are
// returned so the caller decides whether to pass the post through.
type LLMClassifier struct {
	cfg    LLMConfig
	client *http.Client
}

// NewLLM creates an LLM classifier.
func NewLLM(cfg LLMConfig) (*LLMClassifier, error) {
	switch cfg.Format {
	case "", FormatOpenAI:
		cfg.Format = FormatOpenAI
		if cfg.Model == "" {
			cfg.Model = defaultOpenAIModel
		}
		// A custom endpoint may be a local server that needs no key.
		if cfg.Endpoint == "" {
			if cfg.APIKey == "" {
				return nil, errors.New("llm: api key is required for the default openai endpoint")
			}
			cfg.Endpoint = defaultOpenAIEndpoint
		}
	case FormatGemini:
		if cfg.Model == "" {
			cfg.Model = defaultGeminiModel
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = defaultGeminiBase + cfg.Model + ":generateContent"
		}
	default:
		return nil, fmt.Errorf("llm: unknown format %q (want openai or gemini)", cfg.Format)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpTimeout
	}
	if cfg.Prompt == "" {
		cfg.Prompt = SystemPrompt
	}
	return &LLMClassifier{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Classify calls the endpoint and normalizes its answer.
func (l *LLMClassifier) Classify(ctx context.Context, text string) (post.Metadata, error) {
	if strings.TrimSpace(text) == "" {
		return post.Metadata{}, errors.New("llm: empty text")
	}

	req, err := l.newRequest(ctx, text)
	if err != nil {
		return post.Metadata{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return post.Metadata{}, fmt.Errorf("llm: http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return post.Metadata{}, fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return post.Metadata{}, fmt.Errorf("llm: api returned status %d", resp.StatusCode)
	}

	raw, err := parseLabels(body)
	if err != nil {
		return post.Metadata{}, fmt.Errorf("llm: %w", err)
	}
	m := raw.Normalize()
	if m.IsZero() {
		return post.Metadata{}, errors.New("llm: response carried no recognizable labels")
	}
	return m, nil
}

func (l *LLMClassifier) newRequest(ctx context.Context, text string) (*http.Request, error) {
	var (
		payload any
		target  = l.cfg.Endpoint
	)
	switch l.cfg.Format {
	case FormatGemini:
		payload = geminiRequest{
			SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: l.cfg.Prompt}}},
			Contents:          []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		}
		if l.cfg.APIKey != "" && !strings.Contains(target, "key=") {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + "key=" + url.QueryEscape(l.cfg.APIKey)
		}
	default:
		payload = chatRequest{
			Model: l.cfg.Model,
			Messages: []chatMessage{
				{Role: "system", Content: l.cfg.Prompt},
				{Role: "user", Content: text},
			},
			MaxTokens: l.cfg.MaxTokens,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.Format == FormatOpenAI && l.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	}
	return req, nil
}

// parseLabels pulls the model's text out of either response envelope, strips
// markdown fences, and decodes the label object.
func parseLabels(body []byte) (labels, error) {
	output := responseText(body)
	obj := stripFences(output)
	if obj == "" {
		return labels{}, errors.New("empty response")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return labels{}, fmt.Errorf("decode labels: %w", err)
	}
	return labels{
		Focus:          firstString(fields, "loai_bai_viet", "focus"),
		Sentiment:      firstString(fields, "cam_xuc_bai_viet", "sentiment"),
		Location:       firstString(fields, "tinh_thanh", "location"),
		Direction:      firstString(fields, "huong_bai_viet", "direction"),
		DamageCategory: firstString(fields, "damage_category", "damageCategory"),
		RescueGoods:    firstString(fields, "rescue_goods", "rescueGoods"),
	}, nil
}

func responseText(body []byte) string {
	var env struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if len(env.Candidates) > 0 && len(env.Candidates[0].Content.Parts) > 0 {
			return env.Candidates[0].Content.Parts[0].Text
		}
		if len(env.Choices) > 0 && env.Choices[0].Message.Content != "" {
			return env.Choices[0].Message.Content
		}
	}
	return string(body)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	case strings.HasPrefix(s, "```"):
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	return s
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

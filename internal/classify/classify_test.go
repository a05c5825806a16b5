package classify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/floodpan/internal/post"
)

func TestLabelsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   labels
		want post.Metadata
	}{
		{
			name: "canonical damage",
			in: labels{Focus: "damage", Sentiment: "tiêu cực", Location: "  Quảng  Nam ",
				Direction: "urgent", DamageCategory: "Hạ tầng", RescueGoods: "thức ăn"},
			want: post.Metadata{Focus: "damage", Sentiment: SentimentNegative, Location: "Quảng Nam",
				Direction: DirectionUrgent, DamageCategory: DamageInfrastructure},
		},
		{
			name: "accent free rescue",
			in:   labels{Focus: "Rescue", Sentiment: "tich cuc", Direction: "ke hoach", DamageCategory: "nha cua", RescueGoods: "NUOC UONG"},
			want: post.Metadata{Focus: "rescue", Sentiment: SentimentPositive, Direction: DirectionPlan, RescueGoods: RescueWater},
		},
		{
			name: "english aliases",
			in:   labels{Sentiment: "Neutral", Direction: "information", DamageCategory: "agriculture"},
			want: post.Metadata{Sentiment: SentimentNeutral, Direction: DirectionInfo, DamageCategory: DamageAgriculture},
		},
		{
			name: "unknown values are unset",
			in:   labels{Focus: "weather", Sentiment: "mixed", DamageCategory: "xe cộ"},
			want: post.Metadata{},
		},
		{
			name: "đ folds to d",
			in:   labels{RescueGoods: "Chỗ ở tạm", Focus: "cứu trợ"},
			want: post.Metadata{Focus: "rescue", RescueGoods: RescueShelter},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestHeuristicClassifier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want post.Metadata
	}{
		{
			name: "damage report",
			text: "Lũ làm sập cầu ở Quảng Nam, thiệt hại nghiêm trọng.",
			want: post.Metadata{Sentiment: SentimentNegative, Location: "Quảng Nam", Focus: post.FocusDamage,
				Direction: DirectionUrgent, DamageCategory: DamageInfrastructure},
		},
		{
			name: "rescue drive",
			text: "Kế hoạch cứu trợ gạo cho bà con Hà Tĩnh",
			want: post.Metadata{Sentiment: SentimentPositive, Location: "Hà Tĩnh", Focus: post.FocusRescue,
				Direction: DirectionPlan, RescueGoods: RescueFood},
		},
		{
			name: "nothing matches",
			text: "Trời hôm nay nhiều mây",
			want: post.Metadata{Sentiment: SentimentNeutral, Focus: post.FocusDamage,
				Direction: DirectionInfo, DamageCategory: DamageInfrastructure},
		},
		{
			name: "whole words only",
			text: "Văn bản về chăn nuôi",
			want: post.Metadata{Sentiment: SentimentNeutral, Focus: post.FocusDamage,
				Direction: DirectionInfo, DamageCategory: DamageInfrastructure},
		},
		{
			name: "abbreviated city",
			text: "Mưa lớn ở TP.HCM gây ngập",
			want: post.Metadata{Sentiment: SentimentNeutral, Location: "TP.HCM", Focus: post.FocusDamage,
				Direction: DirectionInfo, DamageCategory: DamageInfrastructure},
		},
	}
	var h HeuristicClassifier
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, _ := h.Classify(context.Background(), tt.text)
			assert.Equal(t, got, again, "deterministic")
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, stripFences(in), "input %q", in)
	}
}

const labelJSON = "```json\n{\"loai_bai_viet\":\"rescue\",\"cam_xuc_bai_viet\":\"tích cực\",\"tinh_thanh\":\"Huế\",\"huong_bai_viet\":\"urgent\",\"damage_category\":\"nhà cửa\",\"rescue_goods\":\"thuốc men\"}\n```"

func TestLLMClassifier_OpenAI(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "Lũ ở Huế", req.Messages[1].Content)

		resp := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": labelJSON}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	c, err := NewLLM(LLMConfig{Endpoint: ts.URL, APIKey: "sk-test", Model: "gpt-test"})
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "Lũ ở Huế")
	require.NoError(t, err)
	assert.Equal(t, post.Metadata{
		Focus: post.FocusRescue, Sentiment: SentimentPositive, Location: "Huế",
		Direction: DirectionUrgent, RescueGoods: RescueMedicine,
	}, got)
}

func TestLLMClassifier_OpenAICompatibleWithoutKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sent := r.Header["Authorization"]
		assert.False(t, sent, "no Authorization header without a key")
		resp := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": labelJSON}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	c, err := NewLLM(LLMConfig{Format: FormatOpenAI, Endpoint: ts.URL + "/v1/chat/completions"})
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "Lũ ở Huế")
	require.NoError(t, err)
	assert.Equal(t, post.FocusRescue, got.Focus)
}

func TestLLMClassifier_Gemini(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "bão số 3", req.Contents[0].Parts[0].Text)

		resp := map[string]any{"candidates": []any{map[string]any{"content": map[string]any{
			"parts": []any{map[string]any{"text": `{"focus":"damage","sentiment":"negative","damage_category":"nông nghiệp"}`}},
		}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	c, err := NewLLM(LLMConfig{Format: FormatGemini, Endpoint: ts.URL + "/models/x:generateContent", APIKey: "g-key"})
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "bão số 3")
	require.NoError(t, err)
	assert.Equal(t, post.Metadata{Focus: post.FocusDamage, Sentiment: SentimentNegative, DamageCategory: DamageAgriculture}, got)
}

func TestLLMClassifier_RawBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"loai_bai_viet":"damage","huong_bai_viet":"info"}`)
	}))
	defer ts.Close()

	c, _ := NewLLM(LLMConfig{Endpoint: ts.URL, APIKey: "k"})
	got, err := c.Classify(context.Background(), "ngập")
	require.NoError(t, err)
	assert.Equal(t, post.FocusDamage, got.Focus)
	assert.Equal(t, DirectionInfo, got.Direction)
}

func TestLLMClassifier_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"not json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "xin lỗi, tôi không hiểu")
		}},
		{"empty choice", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"   "}}]}`)
		}},
		{"no labels", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, `{"foo":"bar"}`) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			c, err := NewLLM(LLMConfig{Endpoint: ts.URL, APIKey: "k"})
			require.NoError(t, err)
			_, err = c.Classify(context.Background(), "lũ")
			assert.Error(t, err)
		})
	}
}

func TestNewLLM_Validation(t *testing.T) {
	_, err := NewLLM(LLMConfig{Format: "claude"})
	assert.Error(t, err)

	_, err = NewLLM(LLMConfig{Format: FormatOpenAI})
	assert.Error(t, err, "the default openai endpoint needs a key")

	c, err := NewLLM(LLMConfig{Format: FormatGemini, APIKey: "k"})
	require.NoError(t, err)
	assert.Contains(t, c.cfg.Endpoint, defaultGeminiModel+":generateContent")
}

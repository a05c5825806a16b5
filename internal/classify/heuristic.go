package classify

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/floodpan/internal/post"
)

// rule assigns label when any keyword occurs as a whole phrase.
type rule struct {
	label    string
	keywords []string
}

var (
	sentimentRules = []rule{
		{SentimentPositive, []string{"tốt", "thành công", "phát triển", "ủng hộ", "hỗ trợ", "cứu", "giúp"}},
		{SentimentNegative, []string{"thiệt hại", "mất mát", "sập", "chết", "nguy hiểm", "khủng khiếp", "tử vong", "mất tích"}},
	}
	locationRules = []rule{
		{"Hà Nội", []string{"hà nội", "hanoi"}},
		{"TP.HCM", []string{"hồ chí minh", "sài gòn", "saigon", "tp.hcm", "tphcm"}},
		{"Đà Nẵng", []string{"đà nẵng", "da nang"}},
		{"Hải Phòng", []string{"hải phòng"}},
		{"Cần Thơ", []string{"cần thơ"}},
		{"Quảng Nam", []string{"quảng nam"}},
		{"Quảng Ngãi", []string{"quảng ngãi"}},
		{"Nghệ An", []string{"nghệ an"}},
		{"Hà Tĩnh", []string{"hà tĩnh"}},
		{"Quảng Bình", []string{"quảng bình"}},
		{"Quảng Trị", []string{"quảng trị"}},
		{"Thừa Thiên Huế", []string{"thừa thiên huế", "huế"}},
		{"Lào Cai", []string{"lào cai"}},
		{"Yên Bái", []string{"yên bái"}},
		{"Cao Bằng", []string{"cao bằng"}},
		{"Bắc Giang", []string{"bắc giang"}},
		{"Bình Định", []string{"bình định"}},
		{"Phú Yên", []string{"phú yên"}},
		{"Khánh Hòa", []string{"khánh hòa", "khánh hoà"}},
		{"Gia Lai", []string{"gia lai"}},
		{"Kon Tum", []string{"kon tum"}},
	}
	focusRules = []rule{
		{post.FocusRescue, []string{"cứu hộ", "cứu trợ", "giúp đỡ", "hỗ trợ", "viện trợ", "tiếp tế"}},
		{post.FocusDamage, []string{"thiệt hại", "mất mát", "tai nạn", "sập", "hư hỏng", "ngập"}},
	}
	directionRules = []rule{
		{DirectionUrgent, []string{"khẩn cấp", "gấp", "nguy hiểm", "nghiêm trọng"}},
		{DirectionPlan, []string{"kế hoạch", "dự kiến", "chuẩn bị", "phòng ngừa"}},
		{DirectionInfo, []string{"thông tin", "cập nhật", "báo cáo"}},
	}
	damageRules = []rule{
		{DamageInfrastructure, []string{"đường", "cầu", "điện", "nước"}},
		{DamageAgriculture, []string{"lúa", "rau", "cây trồng", "vật nuôi", "hoa màu"}},
		{DamageHousing, []string{"nhà", "mái", "tường", "sập"}},
		{DamageHealth, []string{"bị thương", "chết", "y tế", "bệnh"}},
	}
	rescueRules = []rule{
		{RescueFood, []string{"gạo", "mì", "thực phẩm", "ăn"}},
		{RescueWater, []string{"nước", "uống"}},
		{RescueClothes, []string{"áo", "quần", "chăn", "mền"}},
		{RescueShelter, []string{"nhà", "tạm", "lều", "trú"}},
		{RescueMedicine, []string{"thuốc", "y tế", "băng", "cứu thương"}},
	}
)

// HeuristicClassifier labels text with keyword rules. It is deterministic:
// unmatched fields get fixed defaults, except location which stays unset.
type HeuristicClassifier struct{}

// Classify never fails.
func (HeuristicClassifier) Classify(_ context.Context, text string) (post.Metadata, error) {
	t := phrases(text)
	m := post.Metadata{
		Sentiment:      match(t, sentimentRules, SentimentNeutral),
		Location:       match(t, locationRules, ""),
		Focus:          match(t, focusRules, post.FocusDamage),
		Direction:      match(t, directionRules, DirectionInfo),
		DamageCategory: match(t, damageRules, DamageInfrastructure),
		RescueGoods:    match(t, rescueRules, RescueFood),
	}
	return m.Normalized(), nil
}

func match(text string, rules []rule, fallback string) string {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, phrases(kw)) {
				return r.label
			}
		}
	}
	return fallback
}

// phrases composes and lowercases s, turns every non-letter/digit run into one space and
// pads the result, so keywords only match whole words.
func phrases(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(norm.NFC.String(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

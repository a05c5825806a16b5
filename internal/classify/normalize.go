package classify

import (
	"strings"

	"github.com/ppiankov/floodpan/internal/fold"
	"github.com/ppiankov/floodpan/internal/post"
)

// choice maps a folded fragment onto a canonical label. Order matters: the
// first fragment contained in the input wins.
type choice struct {
	fragment string
	label    string
}

var (
	focusChoices = []choice{
		{"damage", post.FocusDamage},
		{"thiet hai", post.FocusDamage},
		{"rescue", post.FocusRescue},
		{"cuu tro", post.FocusRescue},
		{"cuu ho", post.FocusRescue},
	}
	sentimentChoices = []choice{
		{"tich cuc", SentimentPositive},
		{"positive", SentimentPositive},
		{"tieu cuc", SentimentNegative},
		{"negative", SentimentNegative},
		{"trung lap", SentimentNeutral},
		{"neutral", SentimentNeutral},
	}
	directionChoices = []choice{
		{"urgent", DirectionUrgent},
		{"khan cap", DirectionUrgent},
		{"plan", DirectionPlan},
		{"ke hoach", DirectionPlan},
		{"info", DirectionInfo},
		{"thong tin", DirectionInfo},
	}
	damageChoices = []choice{
		{"ha tang", DamageInfrastructure},
		{"infrastructure", DamageInfrastructure},
		{"nong nghiep", DamageAgriculture},
		{"agricultur", DamageAgriculture},
		{"nha cua", DamageHousing},
		{"housing", DamageHousing},
		{"suc khoe", DamageHealth},
		{"health", DamageHealth},
	}
	rescueChoices = []choice{
		{"thuc an", RescueFood},
		{"food", RescueFood},
		{"nuoc uong", RescueWater},
		{"water", RescueWater},
		{"quan ao", RescueClothes},
		{"cloth", RescueClothes},
		{"cho o", RescueShelter},
		{"shelter", RescueShelter},
		{"thuoc men", RescueMedicine},
		{"medicine", RescueMedicine},
	}
)

// pick returns the label for value, or "" when nothing matches.
func pick(value string, choices []choice) string {
	key := fold.String(value)
	if key == "" {
		return ""
	}
	for _, c := range choices {
		if strings.Contains(key, c.fragment) {
			return c.label
		}
	}
	return ""
}

// labels is the raw, unvalidated classifier output.
type labels struct {
	Focus          string
	Sentiment      string
	Location       string
	Direction      string
	DamageCategory string
	RescueGoods    string
}

// Normalize maps raw labels onto canonical values. Unknown values become
// unset and the category contradicting the focus is dropped.
func (l labels) Normalize() post.Metadata {
	m := post.Metadata{
		Sentiment:      pick(l.Sentiment, sentimentChoices),
		Location:       strings.Join(strings.Fields(l.Location), " "),
		Focus:          pick(l.Focus, focusChoices),
		Direction:      pick(l.Direction, directionChoices),
		DamageCategory: pick(l.DamageCategory, damageChoices),
		RescueGoods:    pick(l.RescueGoods, rescueChoices),
	}
	return m.Normalized()
}

// Package classify labels disaster posts with sentiment, location and topical
// focus, either through an LLM endpoint or a keyword heuristic.
package classify

import (
	"context"

	"github.com/ppiankov/floodpan/internal/post"
)

// Canonical label values.
const (
	SentimentPositive = "tích cực"
	SentimentNegative = "tiêu cực"
	SentimentNeutral  = "trung lập"

	DirectionUrgent = "urgent"
	DirectionPlan   = "plan"
	DirectionInfo   = "info"

	DamageInfrastructure = "hạ tầng"
	DamageAgriculture    = "nông nghiệp"
	DamageHousing        = "nhà cửa"
	DamageHealth         = "sức khỏe"

	RescueFood     = "thức ăn"
	RescueWater    = "nước uống"
	RescueClothes  = "quần áo"
	RescueShelter  = "chỗ ở"
	RescueMedicine = "thuốc men"
)

// Classifier produces metadata for a post's text.
type Classifier interface {
	Classify(ctx context.Context, text string) (post.Metadata, error)
}

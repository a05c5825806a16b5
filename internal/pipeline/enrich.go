package pipeline

import (
	"context"

	"github.com/ppiankov/floodpan/internal/classify"
	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/post"
)

// Enrich labels each post with the classifier. A failed post passes through
// unenriched; the batch is never aborted.
type Enrich struct {
	classifier classify.Classifier
	log        logger.Logger
}

// NewEnrich builds the enrichment stage.
func NewEnrich(c classify.Classifier, log logger.Logger) *Enrich {
	if log == nil {
		log = logger.NewNop()
	}
	return &Enrich{classifier: c, log: log}
}

func (e *Enrich) Name() string { return "enrich" }

func (e *Enrich) Process(ctx context.Context, posts []post.Post) []post.Post {
	out := make([]post.Post, len(posts))
	failed := 0
	for i, p := range posts {
		out[i] = p
		if ctx.Err() != nil {
			failed++
			continue
		}
		m, err := e.classifier.Classify(ctx, p.Content)
		if err != nil {
			failed++
			e.log.Warn("enrich failed, keeping post unenriched",
				logger.String("platform", p.Platform),
				logger.String("source_id", p.SourceID),
				logger.Error(err),
			)
			continue
		}
		out[i].SetMetadata(m)
	}
	if failed > 0 {
		e.log.Info("enrichment finished with failures",
			logger.Int("posts", len(posts)),
			logger.Int("failed", failed),
		)
	}
	return out
}

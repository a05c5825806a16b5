// Package pipeline runs ordered transforms over a batch of posts.
package pipeline

import (
	"context"

	"github.com/ppiankov/floodpan/internal/logger"
	"github.com/ppiankov/floodpan/internal/post"
)

// Stage transforms a batch. Stages must not mutate the input slice's posts
// in place; they return a new slice.
type Stage interface {
	Name() string
	Process(ctx context.Context, posts []post.Post) []post.Post
}

// Pipeline feeds each stage's output into the next.
type Pipeline struct {
	stages []Stage
	log    logger.Logger
}

// New builds a pipeline. Nil stages are skipped.
func New(log logger.Logger, stages ...Stage) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	p := &Pipeline{log: log}
	for _, s := range stages {
		if s != nil {
			p.stages = append(p.stages, s)
		}
	}
	return p
}

// Then returns a new pipeline with extra stages appended.
func (p *Pipeline) Then(stages ...Stage) *Pipeline {
	all := make([]Stage, 0, len(p.stages)+len(stages))
	all = append(all, p.stages...)
	all = append(all, stages...)
	return New(p.log, all...)
}

// Names lists stage names in run order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes every stage in order.
func (p *Pipeline) Run(ctx context.Context, posts []post.Post) []post.Post {
	for _, s := range p.stages {
		in := len(posts)
		posts = s.Process(ctx, posts)
		p.log.Debug("stage done",
			logger.String("stage", s.Name()),
			logger.Int("in", in),
			logger.Int("out", len(posts)),
		)
	}
	return posts
}

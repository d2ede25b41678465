package wizard

import (
	"context"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
)

// LocalAPI runs the pipeline in-process instead of over HTTP.
type LocalAPI struct {
	Orchestrator *research.Orchestrator
	Synthesizer  *curriculum.Synthesizer
}

var _ API = (*LocalAPI)(nil)

func (l *LocalAPI) Research(ctx context.Context, q research.Query, onEvent func(research.Event)) ([]search.Candidate, error) {
	res, err := l.Orchestrator.Run(ctx, q, func(ev research.Event) error {
		if onEvent != nil {
			onEvent(ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res.Resources, nil
}

func (l *LocalAPI) GenerateCurriculum(ctx context.Context, req curriculum.GenerateRequest) (*curriculum.Curriculum, error) {
	return l.Synthesizer.Generate(ctx, req)
}

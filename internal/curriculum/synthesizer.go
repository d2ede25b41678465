// Package curriculum synthesizes research output and a learner profile into
// a structured curriculum document, and owns the parse boundary that turns
// the model's assembled output back into data.
package curriculum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/llm"
)

// Synthesizer generates curricula.
type Synthesizer struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
}

// NewSynthesizer creates a curriculum synthesizer.
func NewSynthesizer(provider llm.Provider, cfg Config, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	return &Synthesizer{provider: provider, cfg: cfg, logger: logger.Named("curriculum")}
}

// Stream requests a curriculum and passes the raw output to fn as it
// arrives. Chunks are not individually parseable; the concatenation of all
// chunks is the JSON document. On provider error or timeout Stream returns a
// *FailedError and whatever was delivered must be discarded.
func (s *Synthesizer) Stream(ctx context.Context, req GenerateRequest, fn func(chunk string) error) error {
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	ctx = llm.WithPurpose(ctx, llm.PurposeCurriculum)

	start := time.Now()
	resp, err := llm.StreamText(ctx, s.provider, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildTaskMessage(req)}},
		Schema:      Schema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}, fn)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		s.logger.Warn("curriculum generation failed",
			zap.String("subject", req.ResearchQuery.Subject),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return &FailedError{Err: err}
	}
	if resp.StopReason == "max_tokens" {
		s.logger.Warn("curriculum output truncated", zap.Int("max_tokens", s.cfg.MaxTokens))
	}

	s.logger.Info("curriculum generated",
		zap.String("subject", req.ResearchQuery.Subject),
		zap.Int("resources", len(req.ResearchContext)),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Generate buffers Stream and parses the result.
func (s *Synthesizer) Generate(ctx context.Context, req GenerateRequest) (*Curriculum, error) {
	var b strings.Builder
	if err := s.Stream(ctx, req, func(chunk string) error {
		b.WriteString(chunk)
		return nil
	}); err != nil {
		return nil, err
	}

	c, err := Parse(b.String())
	if err != nil {
		s.logger.Warn("curriculum output did not parse", zap.Error(err))
		return nil, err
	}
	for _, w := range c.Warnings() {
		s.logger.Info("curriculum soft bound", zap.String("warning", w))
	}
	return c, nil
}

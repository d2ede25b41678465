package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/store"
)

// LoggingProvider is a decorator that records every LLM request as an event
// and as a structured log line.
type LoggingProvider struct {
	inner     Provider
	eventRepo store.EventRepo
	logger    *zap.Logger
}

var (
	_ Provider = (*LoggingProvider)(nil)
	_ Streamer = (*LoggingProvider)(nil)
)

// WithLogging wraps a Provider with event logging. A nil repo disables event
// persistence; a nil logger disables log output.
func WithLogging(p Provider, repo store.EventRepo, logger *zap.Logger) *LoggingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{inner: p, eventRepo: repo, logger: logger.Named("llm")}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	l.record(ctx, "generate", req, resp, err, time.Since(start))
	return resp, err
}

func (l *LoggingProvider) Stream(ctx context.Context, req Request, fn func(chunk string) error) (*Response, error) {
	start := time.Now()
	resp, err := StreamText(ctx, l.inner, req, fn)
	l.record(ctx, "stream", req, resp, err, time.Since(start))
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) record(ctx context.Context, mode string, req Request, resp *Response, err error, latency time.Duration) {
	purpose := PurposeFrom(ctx)

	data := store.LLMRequestEventData{
		Provider:    l.inner.ModelID(),
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = serializeResponse(resp)
	}

	if err != nil {
		data.ErrorMessage = err.Error()
	}

	fields := []zap.Field{
		zap.String("mode", mode),
		zap.String("purpose", purpose),
		zap.String("model", data.Model),
		zap.Int("input_tokens", data.InputTokens),
		zap.Int("output_tokens", data.OutputTokens),
		zap.Int64("latency_ms", data.LatencyMs),
	}
	if err != nil {
		l.logger.Warn("llm request failed", append(fields, zap.Error(err))...)
	} else {
		l.logger.Debug("llm request", fields...)
	}

	if l.eventRepo == nil {
		return
	}
	// Detached from ctx so a cancelled request is still recorded.
	if logErr := l.eventRepo.AppendLLMRequest(context.WithoutCancel(ctx), data); logErr != nil {
		l.logger.Warn("failed to record LLM request event", zap.Error(logErr))
	}
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		switch {
		case m.Role == RoleTool:
			fmt.Fprintf(&b, "[tool %s %s]\n", m.ToolName, m.ToolCallID)
		default:
			fmt.Fprintf(&b, "[%s]\n", m.Role)
		}
		b.WriteString(m.Content)
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(&b, "\n-> %s(%s) id=%s", tc.Name, tc.Arguments, tc.ID)
		}
		b.WriteString("\n\n")
	}

	for _, t := range req.Tools {
		fmt.Fprintf(&b, "[tool: %s] %s\n", t.Name, t.Description)
	}

	if req.Schema != nil {
		schemaDef, err := json.Marshal(req.Schema.Definition)
		if err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(schemaDef)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func serializeResponse(resp *Response) string {
	if len(resp.ToolCalls) == 0 {
		return string(resp.Content)
	}
	var b strings.Builder
	b.Write(resp.Content)
	for _, tc := range resp.ToolCalls {
		fmt.Fprintf(&b, "\n-> %s(%s) id=%s", tc.Name, tc.Arguments, tc.ID)
	}
	return b.String()
}

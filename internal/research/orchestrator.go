// Package research turns a subject, grade and topic list into a vetted list
// of educational resources by running a language model with a search tool.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/llm"
	"github.com/atozfamily/homescholar/internal/search"
)

// State is a step of the tool loop.
type State int

const (
	AwaitingModel State = iota
	ToolRequested
	ToolExecuting
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingModel:
		return "awaiting model"
	case ToolRequested:
		return "tool requested"
	case ToolExecuting:
		return "executing tool"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Orchestrator runs research queries. It is safe for concurrent use; each
// Run owns its conversation.
type Orchestrator struct {
	provider llm.Provider
	search   search.Provider
	cfg      Config
	logger   *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(provider llm.Provider, sp search.Provider, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = def.MaxToolCalls
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	return &Orchestrator{
		provider: provider,
		search:   sp,
		cfg:      cfg,
		logger:   logger.Named("research"),
	}
}

// run is the mutable state of one Run.
type run struct {
	query    Query
	sink     Sink
	state    State
	messages []llm.Message
	pending  []llm.ToolCall
	text     string
	result   Result

	// candidates seen in successful tool results, deduplicated by URL
	candidates []search.Candidate
	seen       map[string]bool
}

// Run researches q, reporting progress to sink (which may be nil). The
// whole run is bounded by the configured timeout; on timeout or provider
// failure it returns a *FailedError. A run that finds no resources still
// succeeds with an empty list.
func (o *Orchestrator) Run(ctx context.Context, q Query, sink Sink) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = func(Event) error { return nil }
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	ctx = llm.WithPurpose(ctx, llm.PurposeResearch)

	r := &run{
		query: q.Normalized(),
		sink:  sink,
		state: AwaitingModel,
		seen:  make(map[string]bool),
	}
	r.messages = []llm.Message{{Role: llm.RoleUser, Content: buildTaskMessage(r.query)}}

	if err := sink(Event{Type: EventStatus, Message: "Researching " + r.query.Subject + " resources"}); err != nil {
		return nil, &FailedError{State: r.state, Err: err}
	}

	for r.state != Done {
		var err error
		switch r.state {
		case AwaitingModel:
			err = o.awaitModel(ctx, r)
		case ToolRequested:
			err = o.announceTools(r)
		case ToolExecuting:
			err = o.executeTools(ctx, r)
		}
		if err != nil {
			return nil, o.fail(ctx, r, err)
		}
	}

	o.finish(r)
	if err := sink(Event{Type: EventResources, Resources: r.result.Resources, Warnings: r.result.Warnings()}); err != nil {
		return nil, &FailedError{State: Done, Err: err}
	}

	o.logger.Info("research complete",
		zap.String("subject", r.query.Subject),
		zap.Int("tool_calls", r.result.ToolCalls),
		zap.Int("resources", len(r.result.Resources)),
		zap.Bool("from_search", r.result.FromSearch),
		zap.Bool("search_unavailable", r.result.SearchUnavailable),
	)
	return &r.result, nil
}

// awaitModel streams the model's next step. Text is forwarded as it
// arrives; tool calls are only known once the turn ends. Once the tool budget
// is spent the model is told to answer and any further calls are ignored.
func (o *Orchestrator) awaitModel(ctx context.Context, r *run) error {
	req := llm.Request{
		System:      systemPrompt,
		Messages:    r.messages,
		Tools:       []llm.Tool{searchTool},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}

	spent := r.result.ToolCalls >= o.cfg.MaxToolCalls
	if spent {
		// Tools stay declared: some providers reject a history holding tool
		// calls when the request offers none.
		req.System += budgetSpentPrompt
	}

	var b strings.Builder
	resp, err := llm.StreamText(ctx, o.provider, req, func(chunk string) error {
		b.WriteString(chunk)
		return r.sink(Event{Type: EventText, Text: chunk})
	})
	if err != nil {
		return err
	}

	if spent || len(resp.ToolCalls) == 0 {
		r.text = b.String()
		r.state = Done
		return nil
	}

	r.messages = append(r.messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   b.String(),
		ToolCalls: resp.ToolCalls,
	})
	r.pending = resp.ToolCalls
	r.state = ToolRequested
	return nil
}

// announceTools reports each requested call before any runs.
func (o *Orchestrator) announceTools(r *run) error {
	for _, call := range r.pending {
		if err := r.sink(Event{Type: EventToolCall, Query: queryArg(call.Arguments)}); err != nil {
			return err
		}
	}
	r.state = ToolExecuting
	return nil
}

// executeTools runs the pending calls in order and appends one tool message
// per call. Calls past the budget are answered with an error instead of
// being run, so every call still gets a result.
func (o *Orchestrator) executeTools(ctx context.Context, r *run) error {
	for _, call := range r.pending {
		var content string
		switch {
		case call.Name != SearchToolName:
			content = toolError("unknown tool: " + call.Name)
		case r.result.ToolCalls >= o.cfg.MaxToolCalls:
			content = toolError("search budget exhausted")
		default:
			r.result.ToolCalls++
			var err error
			content, err = o.runSearch(ctx, r, call)
			if err != nil {
				return err
			}
		}

		r.messages = append(r.messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		})
	}
	r.pending = nil
	r.state = AwaitingModel
	return nil
}

// runSearch executes one search call. Search failures become tool output
// for the model; only a sink error is returned.
func (o *Orchestrator) runSearch(ctx context.Context, r *run, call llm.ToolCall) (string, error) {
	// Malformed arguments leave the query empty and the provider rejects it.
	query := queryArg(call.Arguments)
	candidates, err := o.search.Search(ctx, query)

	ev := Event{Type: EventToolResult, Query: query, Count: len(candidates)}
	switch {
	case err == nil:
		for _, c := range candidates {
			if !r.seen[c.URL] {
				r.seen[c.URL] = true
				r.candidates = append(r.candidates, c)
			}
		}
	case errors.Is(err, search.ErrUnavailable):
		r.result.SearchUnavailable = true
		ev.Unavailable = true
		ev.Message = "Search is temporarily unavailable"
		o.logger.Warn("search unavailable", zap.String("query", query), zap.Error(err))
	default:
		ev.Message = "Search rejected the query"
		o.logger.Debug("search rejected query", zap.String("query", query), zap.Error(err))
	}

	return search.ToolResult(candidates, err), r.sink(ev)
}

// finish decides the resource list from the final answer.
func (o *Orchestrator) finish(r *run) {
	r.result.Text = r.text

	resources, ok := ParseResources(r.text)
	if !ok {
		resources = r.candidates
		r.result.FromSearch = len(resources) > 0
		if r.text != "" {
			o.logger.Debug("research answer held no resource list; using search results",
				zap.Int("candidates", len(resources)))
		}
	}
	if resources == nil {
		resources = []search.Candidate{}
	}
	r.result.Resources = clamp(resources)
}

// fail wraps err as a *FailedError, marking it as a timeout when the run's
// deadline passed.
func (o *Orchestrator) fail(ctx context.Context, r *run, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	o.logger.Warn("research failed",
		zap.String("state", r.state.String()),
		zap.Int("tool_calls", r.result.ToolCalls),
		zap.Error(err),
	)
	return &FailedError{State: r.state, Err: err}
}

func queryArg(args json.RawMessage) string {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return ""
	}
	return in.Query
}

func toolError(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}

package research

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/validation"
)

// Query is a validated research request. All three fields are required.
type Query struct {
	Subject string `json:"subject" validate:"notblank"`
	Grade   string `json:"grade" validate:"notblank"`
	Topics  string `json:"topics" validate:"notblank"`
}

// FieldMessages implements validation.Messager.
func (Query) FieldMessages() map[string]string {
	return map[string]string{
		"subject": "Subject is required",
		"grade":   "Grade level is required",
		"topics":  "Please specify topics of interest.",
	}
}

// Validate returns a *validation.Error naming each empty field, or nil.
func (q Query) Validate() error {
	return validation.Check(q)
}

// Normalized returns q with surrounding whitespace removed.
func (q Query) Normalized() Query {
	return Query{
		Subject: strings.TrimSpace(q.Subject),
		Grade:   strings.TrimSpace(q.Grade),
		Topics:  strings.TrimSpace(q.Topics),
	}
}

// Result is the outcome of one research run.
type Result struct {
	// Text is the model's final answer as produced.
	Text string

	// Resources is the vetted list handed to curriculum synthesis. It may be
	// empty and never holds more than MaxResources entries.
	Resources []search.Candidate

	// ToolCalls counts search invocations the model requested.
	ToolCalls int

	// SearchUnavailable is set when at least one search failed because the
	// backend was unreachable.
	SearchUnavailable bool

	// FromSearch is set when Resources came from raw search results because
	// the model's answer held no parseable resource list.
	FromSearch bool
}

// Warnings reports soft-bound violations that do not fail the run.
func (r *Result) Warnings() []string {
	var w []string
	if n := len(r.Resources); n < MinResources {
		w = append(w, fmt.Sprintf("only %d of the suggested %d-%d resources were found", n, MinResources, MaxResources))
	}
	if r.SearchUnavailable {
		w = append(w, "resource search was unavailable for part of this run")
	}
	return w
}

// EventType tags each Event sent to a Sink.
type EventType string

const (
	EventStatus     EventType = "status"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventText       EventType = "text"
	EventResources  EventType = "resources"
	EventError      EventType = "error"
)

// Event is one progress update. Its JSON form is a line of the research
// endpoint's NDJSON stream.
type Event struct {
	Type        EventType          `json:"type"`
	Message     string             `json:"message,omitempty"`
	Query       string             `json:"query,omitempty"`
	Count       int                `json:"count,omitempty"`
	Unavailable bool               `json:"unavailable,omitempty"`
	Text        string             `json:"text,omitempty"`
	Resources   []search.Candidate `json:"resources,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`

	// Code carries the HTTP status of a failure reported mid-stream.
	Code int `json:"code,omitempty"`
}

// Sink receives events in order. Returning an error aborts the run.
type Sink func(Event) error

// ErrResearchFailed matches any *FailedError via errors.Is.
var ErrResearchFailed = errors.New("research failed")

// FailedError reports a run that could not produce a result. State is where
// the loop was when it stopped.
type FailedError struct {
	State State
	Err   error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("research failed while %s: %v", e.State, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrResearchFailed) match.
func (e *FailedError) Is(target error) bool { return target == ErrResearchFailed }

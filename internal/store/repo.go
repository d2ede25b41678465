package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Before  int64     // id < Before (0 = no bound)
	Purpose string    // exact purpose match (empty = any)
	From    time.Time // timestamp >= From
}

// CurriculumInput is what the generation phase hands to persistence: the
// originating research query and the curriculum document.
type CurriculumInput struct {
	Subject   string
	Grade     string
	Topics    string
	Title     string
	Resources json.RawMessage
	Document  json.RawMessage
}

// CurriculumRecord is a persisted curriculum with its assigned identity.
type CurriculumRecord struct {
	ID        string
	Subject   string
	Grade     string
	Topics    string
	Title     string
	Resources json.RawMessage
	Document  json.RawMessage
	CreatedAt time.Time
}

// CurriculumRepo persists generated curricula.
type CurriculumRepo interface {
	// Save assigns an ID and timestamp and stores the curriculum.
	Save(ctx context.Context, in CurriculumInput) (CurriculumRecord, error)

	// Get returns the curriculum with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (CurriculumRecord, error)

	// List returns the most recent curricula first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]CurriculumRecord, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored LLM request event.
type LLMRequestEventRecord struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsageStats aggregates token usage for one purpose.
type LLMUsageStats struct {
	Purpose      string `db:"purpose"`
	Calls        int    `db:"calls"`
	InputTokens  int    `db:"input_tokens"`
	OutputTokens int    `db:"output_tokens"`
	AvgLatencyMs int64  `db:"avg_latency_ms"`
}

// LLMModelUsage aggregates token usage for one model.
type LLMModelUsage struct {
	Model        string `db:"model"`
	Calls        int    `db:"calls"`
	InputTokens  int    `db:"input_tokens"`
	OutputTokens int    `db:"output_tokens"`
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEventRecord, error)

	// LLMUsageByPurpose aggregates usage per purpose label.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error)

	// LLMUsageByModel aggregates usage per model.
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}

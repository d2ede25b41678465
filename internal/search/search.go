// Package search finds candidate educational resources for a free-text
// query. Backends are swappable behind Provider; the research orchestrator
// depends only on that contract.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/httputil"
	"github.com/atozfamily/homescholar/internal/validation"
)

// Candidate is one discovered resource.
type Candidate struct {
	Title   string `json:"title" validate:"required"`
	URL     string `json:"url" validate:"required,http_url"`
	Snippet string `json:"snippet"`
}

// Provider searches a single backend. Earlier results are more relevant.
//
// An empty or blank query fails with ErrEmptyQuery. Transport, status and
// decoding failures fail with *UnavailableError, never with an empty list,
// so callers can tell "no results" from "search broken".
type Provider interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
	Name() string
}

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// ErrUnavailable matches any *UnavailableError via errors.Is.
var ErrUnavailable = errors.New("search unavailable")

// UnavailableError reports that a backend could not be reached or failed.
type UnavailableError struct {
	Backend string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("search backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnavailable) match.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Config selects and tunes the search backend.
type Config struct {
	// Backend is "mock" or "openalex".
	Backend    string        `mapstructure:"backend"`
	Email      string        `mapstructure:"email"` // OpenAlex polite pool
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"` // 0 disables caching
}

// DefaultConfig returns the offline defaults.
func DefaultConfig() Config {
	return Config{
		Backend:    "mock",
		MaxResults: 8,
		Timeout:    10 * time.Second,
		CacheTTL:   10 * time.Minute,
	}
}

// New builds the configured backend, wrapped in a cache when CacheTTL > 0.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var p Provider
	switch cfg.Backend {
	case "", "mock":
		p = NewMock()
	case "openalex":
		client := &http.Client{Timeout: cfg.Timeout}
		p = &OpenAlex{
			Retrier:    httputil.NewRetrier(client, logger.Named("openalex")),
			Email:      cfg.Email,
			MaxResults: cfg.MaxResults,
		}
	default:
		return nil, fmt.Errorf("unknown search backend: %q", cfg.Backend)
	}

	if cfg.CacheTTL > 0 {
		p = Cached(p, cfg.CacheTTL)
	}
	return p, nil
}

// Sanitize trims candidates and drops any without a title or an absolute
// http(s) URL.
func Sanitize(in []Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		c.Title = strings.TrimSpace(c.Title)
		c.URL = strings.TrimSpace(c.URL)
		c.Snippet = strings.TrimSpace(c.Snippet)
		if validation.Validate.Struct(c) != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// normalizeQuery lowercases and collapses whitespace.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

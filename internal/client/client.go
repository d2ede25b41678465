// Package client talks to the homescholar HTTP API. It satisfies the
// wizard's API interface so the terminal wizard runs against a server.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
)

// maxEventLine bounds one NDJSON line; a resources event with ten
// candidates is far below it.
const maxEventLine = 1 << 20

// APIError is a non-success answer from the server, either as an HTTP
// status or as an error event inside a research stream.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Timeout reports whether the server gave up waiting on the model.
func (e *APIError) Timeout() bool {
	return e.Status == http.StatusGatewayTimeout
}

// SavedCurriculum is a curriculum as stored by the server.
type SavedCurriculum struct {
	ID            string                 `json:"id"`
	ResearchQuery research.Query         `json:"researchQuery"`
	Title         string                 `json:"title"`
	Curriculum    *curriculum.Curriculum `json:"curriculum"`
	Resources     []search.Candidate     `json:"resources"`
	CreatedAt     time.Time              `json:"createdAt"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
	}
}

// Research posts q and decodes the event stream, passing each event to
// onEvent (which may be nil). It returns the resources of the final
// "resources" event.
func (c *Client) Research(ctx context.Context, q research.Query, onEvent func(research.Event)) ([]search.Candidate, error) {
	resp, err := c.post(ctx, "/api/ai/research", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev research.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode research event: %w", err)
		}
		if onEvent != nil {
			onEvent(ev)
		}
		switch ev.Type {
		case research.EventError:
			code := ev.Code
			if code == 0 {
				code = http.StatusInternalServerError
			}
			return nil, &APIError{Status: code, Message: ev.Message}
		case research.EventResources:
			if ev.Resources == nil {
				return []search.Candidate{}, nil
			}
			return ev.Resources, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read research stream: %w", err)
	}
	return nil, errors.New("research stream ended without resources")
}

// GenerateCurriculum posts req, buffers the streamed body and parses it
// once complete. Unusable output is a *curriculum.MalformedOutputError.
func (c *Client) GenerateCurriculum(ctx context.Context, req curriculum.GenerateRequest) (*curriculum.Curriculum, error) {
	resp, err := c.post(ctx, "/api/ai/generate-curriculum", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		// A cut stream is indistinguishable from truncated output.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &curriculum.MalformedOutputError{Raw: string(raw), Err: err}
	}
	return curriculum.Parse(string(raw))
}

// SaveCurriculum stores c together with the research it came from.
func (c *Client) SaveCurriculum(ctx context.Context, q research.Query, resources []search.Candidate, doc *curriculum.Curriculum) (*SavedCurriculum, error) {
	body := map[string]any{
		"researchQuery":   q,
		"researchContext": resources,
		"curriculum":      doc,
	}
	resp, err := c.post(ctx, "/api/curricula", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out SavedCurriculum
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode saved curriculum: %w", err)
	}
	return &out, nil
}

// ListCurricula returns up to limit saved curricula, newest first.
func (c *Client) ListCurricula(ctx context.Context, limit int) ([]SavedCurriculum, error) {
	path := "/api/curricula"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var out []SavedCurriculum
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCurriculum returns one saved curriculum.
func (c *Client) GetCurriculum(ctx context.Context, id string) (*SavedCurriculum, error) {
	var out SavedCurriculum
	if err := c.getJSON(ctx, "/api/curricula/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends req and turns any non-2xx answer into an *APIError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err == nil {
		apiErr.Message = body.Message
		apiErr.Fields = body.Errors
	}
	return nil, apiErr
}

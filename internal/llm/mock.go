package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content   json.RawMessage
	ToolCalls []ToolCall
	Usage     Usage
	Err       error

	// StreamErrAfter, when positive, makes Stream fail with Err after
	// delivering that many chunks instead of failing up front.
	StreamErrAfter int
}

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order and records all requests.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request

	// ChunkSize controls how Stream splits content. Default 8 bytes.
	ChunkSize int
}

var (
	_ Provider = (*MockProvider)(nil)
	_ Streamer = (*MockProvider)(nil)
)

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Generate returns the next canned response or ErrProviderUnavailable if
// the queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return m.toResponse(resp), nil
}

// Stream pops the next canned response and delivers its content in
// ChunkSize pieces.
func (m *MockProvider) Stream(ctx context.Context, req Request, fn func(chunk string) error) (*Response, error) {
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}
	if resp.Err != nil && resp.StreamErrAfter <= 0 {
		return nil, resp.Err
	}

	size := m.ChunkSize
	if size <= 0 {
		size = 8
	}

	content := string(resp.Content)
	delivered := 0
	for start := 0; start < len(content); start += size {
		if resp.Err != nil && delivered == resp.StreamErrAfter {
			return nil, &ErrStreamInterrupted{Delivered: delivered, Err: resp.Err}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(content))
		if err := fn(content[start:end]); err != nil {
			return nil, err
		}
		delivered++
	}
	if resp.Err != nil {
		return nil, &ErrStreamInterrupted{Delivered: delivered, Err: resp.Err}
	}

	return m.toResponse(resp), nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate and Stream calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Call returns a copy of the i-th recorded request.
func (m *MockProvider) Call(i int) Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[i]
}

func (m *MockProvider) next(req Request) (MockResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return MockResponse{}, &ErrProviderUnavailable{Err: nil}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *MockProvider) toResponse(resp MockResponse) *Response {
	stop := "end"
	if len(resp.ToolCalls) > 0 {
		stop = "tool_use"
	}
	return &Response{
		Content:    resp.Content,
		ToolCalls:  resp.ToolCalls,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: stop,
	}
}

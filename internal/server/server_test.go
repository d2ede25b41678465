package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/llm"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/store"
)

const curriculumJSON = `{"title":"Exploring Photosynthesis","description":"How plants make food.","objectives":["Describe photosynthesis","Identify leaf parts","Run a light experiment"],"lessons":[{"title":"Week 1: What plants need","description":"Sprout beans."}]}`

var testResource = search.Candidate{Title: "Test Resource", URL: "https://example.com", Snippet: "A great resource."}

type staticSearch struct{}

func (staticSearch) Name() string { return "static" }

func (staticSearch) Search(context.Context, string) ([]search.Candidate, error) {
	return []search.Candidate{testResource}, nil
}

// blockingProvider never answers before its context ends.
type blockingProvider struct{}

func (blockingProvider) ModelID() string { return "blocking" }

func (blockingProvider) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type testEnv struct {
	srv       *Server
	research  *llm.MockProvider
	generate  *llm.MockProvider
	curricula store.CurriculumRepo
}

func newTestEnv(t *testing.T, researchResponses, generateResponses []llm.MockResponse) *testEnv {
	t.Helper()

	st, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		research:  llm.NewMockProvider(researchResponses...),
		generate:  llm.NewMockProvider(generateResponses...),
		curricula: st.CurriculumRepo(),
	}
	env.srv = New(DefaultConfig(), Deps{
		Research:    research.NewOrchestrator(env.research, staticSearch{}, research.DefaultConfig(), nil),
		Synthesizer: curriculum.NewSynthesizer(env.generate, curriculum.DefaultConfig(), nil),
		Curricula:   env.curricula,
		ModelID:     "mock",
	})
	return env
}

func do(t *testing.T, s *Server, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeEvents(t *testing.T, r io.Reader) []research.Event {
	t.Helper()
	var events []research.Event
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		var ev research.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), "line %q", sc.Text())
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func toolCall(query string) llm.ToolCall {
	args, _ := json.Marshal(map[string]string{"query": query})
	return llm.ToolCall{ID: "c1", Name: research.SearchToolName, Arguments: args}
}

var scienceQuery = research.Query{Subject: "Science", Grade: "5", Topics: "Photosynthesis"}

func TestResearch_StreamsEvents(t *testing.T) {
	env := newTestEnv(t, []llm.MockResponse{
		{ToolCalls: []llm.ToolCall{toolCall("photosynthesis")}},
		{Content: json.RawMessage(`[{"title":"Test Resource","url":"https://example.com","snippet":"A great resource."}]`)},
	}, nil)

	resp := do(t, env.srv, http.MethodPost, "/api/ai/research", scienceQuery)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	events := decodeEvents(t, resp.Body)
	require.NotEmpty(t, events)
	assert.Equal(t, research.EventStatus, events[0].Type)

	last := events[len(events)-1]
	require.Equal(t, research.EventResources, last.Type)
	assert.Equal(t, []search.Candidate{testResource}, last.Resources)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestResearch_Validation(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := do(t, env.srv, http.MethodPost, "/api/ai/research", research.Query{Subject: "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]string{
		"subject": "Subject is required",
		"grade":   "Grade level is required",
		"topics":  "Please specify topics of interest.",
	}, body.Errors)
	assert.Empty(t, env.research.Calls, "invalid input must not reach the provider")
}

func TestResearch_BadBody(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := do(t, env.srv, http.MethodPost, "/api/ai/research", "{not json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, msgBadBody, body.Message)
}

func TestResearch_ProviderFailureBeforeOutput(t *testing.T) {
	env := newTestEnv(t, []llm.MockResponse{
		{Err: &llm.ErrProviderUnavailable{Err: errors.New("upstream said: secret 503 payload")}},
	}, nil)

	resp := do(t, env.srv, http.MethodPost, "/api/ai/research", scienceQuery)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret", "provider payload leaked to client")
	assert.Contains(t, string(raw), msgProvider)
}

func TestResearch_Timeout(t *testing.T) {
	cfg := research.DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	srv := New(DefaultConfig(), Deps{
		Research: research.NewOrchestrator(blockingProvider{}, staticSearch{}, cfg, nil),
	})

	resp := do(t, srv, http.MethodPost, "/api/ai/research", scienceQuery)
	require.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, msgTimeout, body.Message)
}

func TestResearch_FailureAfterOutputIsErrorEvent(t *testing.T) {
	env := newTestEnv(t, []llm.MockResponse{
		{ToolCalls: []llm.ToolCall{toolCall("photosynthesis")}},
		{Err: &llm.ErrProviderUnavailable{Err: errors.New("gone")}},
	}, nil)

	resp := do(t, env.srv, http.MethodPost, "/api/ai/research", scienceQuery)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := decodeEvents(t, resp.Body)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, research.EventError, last.Type)
	assert.Equal(t, http.StatusBadGateway, last.Code)
	assert.Equal(t, msgProvider, last.Message)
}

func generateBody() curriculum.GenerateRequest {
	return curriculum.GenerateRequest{
		ResearchQuery:   scienceQuery,
		ResearchContext: []search.Candidate{testResource},
		Profile:         curriculum.Profile{ChildName: "Alex", Duration: "Semester (18 weeks)"},
	}
}

func TestGenerateCurriculum_StreamsDocument(t *testing.T) {
	env := newTestEnv(t, nil, []llm.MockResponse{{Content: json.RawMessage(curriculumJSON)}})

	resp := do(t, env.srv, http.MethodPost, "/api/ai/generate-curriculum", generateBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	c, err := curriculum.Parse(string(raw))
	require.NoError(t, err)
	assert.Equal(t, "Exploring Photosynthesis", c.Title)

	req := env.generate.Call(0)
	assert.Contains(t, req.Messages[0].Content, "Child: Alex")
}

func TestGenerateCurriculum_Validation(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	body := generateBody()
	body.ChildName = ""
	body.Duration = ""
	resp := do(t, env.srv, http.MethodPost, "/api/ai/generate-curriculum", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Child's name is required", out.Errors["childName"])
	assert.Equal(t, "Please select a duration.", out.Errors["duration"])
}

func TestGenerateCurriculum_ProviderFailure(t *testing.T) {
	env := newTestEnv(t, nil, []llm.MockResponse{
		{Err: &llm.ErrRateLimit{}},
	})

	resp := do(t, env.srv, http.MethodPost, "/api/ai/generate-curriculum", generateBody())
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestGenerateCurriculum_InterruptedStreamIsTruncated(t *testing.T) {
	env := newTestEnv(t, nil, []llm.MockResponse{
		{Content: json.RawMessage(curriculumJSON), Err: errors.New("connection reset"), StreamErrAfter: 2},
	})

	resp := do(t, env.srv, http.MethodPost, "/api/ai/generate-curriculum", generateBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_, err = curriculum.Parse(string(raw))
	assert.ErrorIs(t, err, curriculum.ErrMalformedOutput)
}

func TestCurricula_SaveListShow(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	var doc curriculum.Curriculum
	require.NoError(t, json.Unmarshal([]byte(curriculumJSON), &doc))

	resp := do(t, env.srv, http.MethodPost, "/api/curricula", map[string]any{
		"researchQuery":   scienceQuery,
		"researchContext": []search.Candidate{testResource},
		"curriculum":      doc,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var saved CurriculumResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, "Exploring Photosynthesis", saved.Title)
	assert.Equal(t, scienceQuery, saved.ResearchQuery)

	var roundTrip curriculum.Curriculum
	require.NoError(t, json.Unmarshal(saved.Curriculum, &roundTrip))
	assert.Equal(t, doc, roundTrip)

	resp = do(t, env.srv, http.MethodGet, "/api/curricula?limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []CurriculumResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	resp = do(t, env.srv, http.MethodGet, "/api/curricula/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var shown CurriculumResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&shown))
	var resources []search.Candidate
	require.NoError(t, json.Unmarshal(shown.Resources, &resources))
	assert.Equal(t, []search.Candidate{testResource}, resources)
}

func TestCurricula_NotFound(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := do(t, env.srv, http.MethodGet, "/api/curricula/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, msgNotFound, body.Message)
}

func TestCurricula_SaveRequiresCurriculum(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := do(t, env.srv, http.MethodPost, "/api/curricula", map[string]any{"researchQuery": scienceQuery})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Errors, "curriculum")
}

func TestCurricula_SaveRejectsIncompleteDocument(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	docs := []map[string]any{
		{"title": "Plant Life", "description": "Seeds to trees.", "objectives": nil, "lessons": []any{}},
		{"title": "Plant Life", "description": "Seeds to trees.", "objectives": []string{"Name parts"}},
	}
	for _, doc := range docs {
		resp := do(t, env.srv, http.MethodPost, "/api/curricula", map[string]any{
			"researchQuery": scienceQuery,
			"curriculum":    doc,
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body errorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body.Errors, "curriculum")
	}

	list, err := env.curricula.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRun_ReturnsNilAfterShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := DefaultConfig()
	cfg.Addr = addr
	srv := New(cfg, Deps{})

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, srv.Shutdown(time.Second))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestCurricula_WithoutStore(t *testing.T) {
	srv := New(DefaultConfig(), Deps{})

	resp := do(t, srv, http.MethodGet, "/api/curricula", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := do(t, env.srv, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "mock", body["model"])
}

func TestFailureStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"deadline", &research.FailedError{Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"provider", &curriculum.FailedError{Err: &llm.ErrProviderUnavailable{Err: errors.New("x")}}, http.StatusBadGateway},
		{"interrupted", &llm.ErrStreamInterrupted{Err: errors.New("x")}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := failureStatus(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

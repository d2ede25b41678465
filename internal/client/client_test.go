package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/wizard"
)

var _ wizard.API = (*Client)(nil)

var (
	testResource = search.Candidate{Title: "Test Resource", URL: "https://example.com", Snippet: "A great resource."}
	scienceQuery = research.Query{Subject: "Science", Grade: "5", Topics: "Photosynthesis"}
)

const curriculumJSON = `{"title":"Exploring Photosynthesis","description":"How plants make food.","objectives":["Describe photosynthesis","Identify leaf parts","Run a light experiment"],"lessons":[{"title":"Week 1: What plants need","description":"Sprout beans."}]}`

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c := New(ts.URL + "/")
	c.HTTP = ts.Client()
	return c
}

func TestResearch(t *testing.T) {
	var got research.Query
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/ai/research", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"type":"status","message":"Researching"}`)
		fmt.Fprintln(w, `{"type":"tool_call","query":"photosynthesis"}`)
		fmt.Fprintln(w)
		fmt.Fprintln(w, `{"type":"resources","resources":[{"title":"Test Resource","url":"https://example.com","snippet":"A great resource."}]}`)
	})

	var types []research.EventType
	resources, err := c.Research(context.Background(), scienceQuery, func(ev research.Event) {
		types = append(types, ev.Type)
	})
	require.NoError(t, err)
	assert.Equal(t, scienceQuery, got)
	assert.Equal(t, []search.Candidate{testResource}, resources)
	assert.Equal(t, []research.EventType{research.EventStatus, research.EventToolCall, research.EventResources}, types)
}

func TestResearch_EmptyResources(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"type":"resources"}`)
	})

	resources, err := c.Research(context.Background(), scienceQuery, nil)
	require.NoError(t, err)
	assert.NotNil(t, resources)
	assert.Empty(t, resources)
}

func TestResearch_ErrorEvent(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"type":"tool_call","query":"x"}`)
		fmt.Fprintln(w, `{"type":"error","message":"took too long","code":504}`)
	})

	_, err := c.Research(context.Background(), scienceQuery, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.Status)
	assert.True(t, apiErr.Timeout())
}

func TestResearch_TruncatedStream(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"type":"status"}`)
	})

	_, err := c.Research(context.Background(), scienceQuery, nil)
	assert.Error(t, err)
}

func TestResearch_ValidationStatus(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"Some fields are missing or invalid.","errors":{"subject":"Subject is required"}}`)
	})

	_, err := c.Research(context.Background(), research.Query{}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Subject is required", apiErr.Fields["subject"])
	assert.False(t, apiErr.Timeout())
}

func TestGenerateCurriculum(t *testing.T) {
	var got curriculum.GenerateRequest
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/ai/generate-curriculum", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		flusher := w.(http.Flusher)
		for i := 0; i < len(curriculumJSON); i += 10 {
			fmt.Fprint(w, curriculumJSON[i:min(i+10, len(curriculumJSON))])
			flusher.Flush()
		}
	})

	req := curriculum.GenerateRequest{
		ResearchQuery:   scienceQuery,
		ResearchContext: []search.Candidate{testResource},
		Profile:         curriculum.Profile{ChildName: "Alex", Duration: "Semester (18 weeks)"},
	}
	cur, err := c.GenerateCurriculum(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Exploring Photosynthesis", cur.Title)
	assert.Equal(t, "Alex", got.ChildName)
	assert.Equal(t, []search.Candidate{testResource}, got.ResearchContext)
}

func TestGenerateCurriculum_Malformed(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, curriculumJSON[:40])
	})

	_, err := c.GenerateCurriculum(context.Background(), curriculum.GenerateRequest{})
	assert.ErrorIs(t, err, curriculum.ErrMalformedOutput)
}

func TestGenerateCurriculum_ServerError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"message":"The AI service is temporarily unavailable."}`)
	})

	_, err := c.GenerateCurriculum(context.Background(), curriculum.GenerateRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "temporarily unavailable")
}

func TestSaveListGet(t *testing.T) {
	saved := `{"id":"abc","researchQuery":{"subject":"Science","grade":"5","topics":"Photosynthesis"},"title":"Exploring Photosynthesis","curriculum":` +
		curriculumJSON + `,"resources":[{"title":"Test Resource","url":"https://example.com","snippet":"A great resource."}],"createdAt":"2026-01-02T03:04:05Z"}`

	var posted map[string]json.RawMessage
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/curricula":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, saved)
		case r.Method == http.MethodGet && r.URL.Path == "/api/curricula":
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			fmt.Fprint(w, "["+saved+"]")
		case r.URL.Path == "/api/curricula/abc":
			fmt.Fprint(w, saved)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Curriculum not found."}`)
		}
	})
	ctx := context.Background()

	doc, err := curriculum.Parse(curriculumJSON)
	require.NoError(t, err)

	rec, err := c.SaveCurriculum(ctx, scienceQuery, []search.Candidate{testResource}, doc)
	require.NoError(t, err)
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, doc, rec.Curriculum)
	assert.Contains(t, posted, "researchQuery")
	assert.Contains(t, posted, "curriculum")

	list, err := c.ListCurricula(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, scienceQuery, list[0].ResearchQuery)

	one, err := c.GetCurriculum(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []search.Candidate{testResource}, one.Resources)

	_, err = c.GetCurriculum(ctx, "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

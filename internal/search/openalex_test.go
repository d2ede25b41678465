package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atozfamily/homescholar/internal/httputil"
)

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"nil map", nil, ""},
		{"single word", map[string][]int{"hello": {0}}, "hello"},
		{
			name:  "ordered",
			index: map[string][]int{"Plants": {0}, "make": {1}, "sugar": {2}},
			want:  "Plants make sugar",
		},
		{
			name:  "repeated word",
			index: map[string][]int{"the": {0, 4}, "leaf": {1}, "traps": {2}, "light,": {3}, "sun": {5}},
			want:  "the leaf traps light, the sun",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconstructAbstract(tt.index); got != tt.want {
				t.Errorf("reconstructAbstract() = %q, want %q", got, tt.want)
			}
		})
	}
}

const sampleOpenAlexJSON = `{
  "results": [
    {
      "id": "https://openalex.org/W1",
      "title": "Teaching Photosynthesis in Elementary Classrooms",
      "doi": "https://doi.org/10.1000/photo",
      "abstract_inverted_index": {"Students": [0], "model": [1], "photosynthesis": [2]},
      "primary_location": {"landing_page_url": "https://journals.example.edu/photo"}
    },
    {
      "id": "https://openalex.org/W2",
      "title": "Leaf Pigments",
      "doi": "https://doi.org/10.1000/leaf",
      "abstract_inverted_index": {},
      "primary_location": null
    },
    {
      "id": "https://openalex.org/W3",
      "title": "Chlorophyll Basics",
      "doi": "",
      "primary_location": {"landing_page_url": ""}
    },
    {
      "id": "not a url",
      "title": "Broken Record",
      "doi": ""
    }
  ]
}`

func useOpenAlexServer(t *testing.T, handler http.HandlerFunc) *OpenAlex {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	t.Cleanup(func() { openAlexSearchBase = old })

	r := httputil.NewRetrier(ts.Client(), nil)
	r.BaseDelay = time.Millisecond
	return &OpenAlex{Retrier: r, Email: "test@example.com", MaxResults: 5}
}

func TestOpenAlexSearch(t *testing.T) {
	var gotQuery, gotMailto string
	b := useOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search")
		gotMailto = r.URL.Query().Get("mailto")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleOpenAlexJSON)
	})

	results, err := b.Search(context.Background(), "photosynthesis grade 5")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "photosynthesis grade 5" || gotMailto != "test@example.com" {
		t.Errorf("unexpected params search=%q mailto=%q", gotQuery, gotMailto)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3 (invalid URL dropped)", len(results))
	}

	if results[0].URL != "https://journals.example.edu/photo" {
		t.Errorf("URL = %q, want landing page", results[0].URL)
	}
	if results[0].Snippet != "Students model photosynthesis" {
		t.Errorf("Snippet = %q", results[0].Snippet)
	}
	if results[1].URL != "https://doi.org/10.1000/leaf" {
		t.Errorf("URL = %q, want DOI link", results[1].URL)
	}
	if results[2].URL != "https://openalex.org/W3" {
		t.Errorf("URL = %q, want OpenAlex record", results[2].URL)
	}
}

func TestOpenAlexSearch_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"still throttled", http.StatusTooManyRequests, `{}`},
		{"bad json", http.StatusOK, `{"results": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := useOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := b.Search(context.Background(), "volcanoes")
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
			var ue *UnavailableError
			if !errors.As(err, &ue) || ue.Backend != "openalex" {
				t.Fatalf("expected *UnavailableError from openalex, got %T", err)
			}
		})
	}
}

func TestOpenAlexSearch_EmptyQuery(t *testing.T) {
	called := false
	b := useOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	if _, err := b.Search(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if called {
		t.Fatal("empty query must not reach the API")
	}
}

func TestTruncateWords(t *testing.T) {
	long := strings.Repeat("word ", 70)
	got := truncateWords(long, 60)
	if !strings.HasSuffix(got, "...") || len(strings.Fields(got)) != 60 {
		t.Fatalf("unexpected truncation %q", got)
	}
	if truncateWords("a b", 60) != "a b" {
		t.Fatal("short text should be untouched")
	}
}

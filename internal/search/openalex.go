package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/atozfamily/homescholar/internal/httputil"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// maxSnippetWords bounds the abstract text carried as a snippet.
const maxSnippetWords = 60

// OpenAlex queries the OpenAlex works API. Results come back ordered by
// relevance; each maps to a landing page URL with the reconstructed
// abstract as its snippet.
type OpenAlex struct {
	Retrier    *httputil.Retrier
	Email      string // sent as mailto for polite pool access
	MaxResults int
}

func (b *OpenAlex) Name() string { return "openalex" }

func (b *OpenAlex) Search(ctx context.Context, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	perPage := b.MaxResults
	if perPage <= 0 {
		perPage = 8
	}
	if perPage > 50 {
		perPage = 50
	}

	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {"1"},
		"select":   {"id,title,doi,abstract_inverted_index,primary_location"},
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &UnavailableError{Backend: b.Name(), Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.Retrier.Do(ctx, req)
	if err != nil {
		return nil, &UnavailableError{Backend: b.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{Backend: b.Name(), Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, &UnavailableError{Backend: b.Name(), Err: fmt.Errorf("parsing response: %w", err)}
	}

	results := make([]Candidate, 0, len(oar.Results))
	for _, work := range oar.Results {
		results = append(results, Candidate{
			Title:   work.Title,
			URL:     work.link(),
			Snippet: truncateWords(reconstructAbstract(work.AbstractInvertedIndex), maxSnippetWords),
		})
	}
	return Sanitize(results), nil
}

// link prefers the landing page, then the DOI resolver, then the OpenAlex
// record itself.
func (w openAlexWork) link() string {
	if w.PrimaryLocation != nil && w.PrimaryLocation.LandingPageURL != "" {
		return w.PrimaryLocation.LandingPageURL
	}
	if w.DOI != "" {
		if strings.HasPrefix(w.DOI, "http") {
			return w.DOI
		}
		return "https://doi.org/" + w.DOI
	}
	return w.ID
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "..."
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string            `json:"id"`
	Title                 string            `json:"title"`
	DOI                   string            `json:"doi"`
	AbstractInvertedIndex map[string][]int  `json:"abstract_inverted_index"`
	PrimaryLocation       *openAlexLocation `json:"primary_location"`
}

type openAlexLocation struct {
	LandingPageURL string `json:"landing_page_url"`
}

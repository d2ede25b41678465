package research

import (
	"encoding/json"
	"strings"

	"github.com/atozfamily/homescholar/internal/search"
)

// ParseResources extracts a resource list from the model's final answer.
// It accepts a bare JSON array, an array inside a ```json fence or prose,
// and an object with a "resources" array. Invalid entries are dropped and
// duplicates (by URL) removed. ok is false when no array could be decoded.
func ParseResources(text string) (resources []search.Candidate, ok bool) {
	for _, candidate := range jsonCandidates(text) {
		var list []search.Candidate
		if err := json.Unmarshal([]byte(candidate), &list); err == nil {
			return dedupe(search.Sanitize(list)), true
		}
		var wrapped struct {
			Resources []search.Candidate `json:"resources"`
		}
		if err := json.Unmarshal([]byte(candidate), &wrapped); err == nil && wrapped.Resources != nil {
			return dedupe(search.Sanitize(wrapped.Resources)), true
		}
	}
	return nil, false
}

// jsonCandidates yields substrings of text likely to hold the JSON answer,
// most specific first.
func jsonCandidates(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	out := []string{text}
	if body, ok := fenced(text); ok {
		out = append(out, body)
	}
	if i, j := strings.Index(text, "["), strings.LastIndex(text, "]"); i >= 0 && j > i {
		out = append(out, text[i:j+1])
	}
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		out = append(out, text[i:j+1])
	}
	return out
}

// fenced returns the body of the first ``` code fence in text.
func fenced(text string) (string, bool) {
	_, rest, ok := strings.Cut(text, "```")
	if !ok {
		return "", false
	}
	// Drop the info string ("json") on the opening line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	body, _, ok := strings.Cut(rest, "```")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(body), true
}

func dedupe(in []search.Candidate) []search.Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]search.Candidate, 0, len(in))
	for _, c := range in {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	return out
}

// clamp caps list at MaxResources.
func clamp(list []search.Candidate) []search.Candidate {
	if len(list) > MaxResources {
		return list[:MaxResources]
	}
	return list
}

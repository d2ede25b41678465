package search

import (
	"encoding/json"
	"errors"
)

// ToolResult renders a search outcome as the raw JSON string fed back to a
// model as tool output: the candidate array on success, or an object with an
// "error" field describing why the search could not run.
func ToolResult(candidates []Candidate, err error) string {
	if err != nil {
		msg := "search is temporarily unavailable"
		if errors.Is(err, ErrEmptyQuery) {
			msg = "query must be a non-empty string"
		}
		data, _ := json.Marshal(map[string]string{"error": msg})
		return string(data)
	}

	if candidates == nil {
		candidates = []Candidate{}
	}
	data, merr := json.Marshal(candidates)
	if merr != nil {
		return `{"error":"search results could not be encoded"}`
	}
	return string(data)
}

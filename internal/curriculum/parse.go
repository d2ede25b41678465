package curriculum

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/atozfamily/homescholar/internal/llm"
)

// Parse turns the fully assembled synthesis output into a Curriculum. It
// tolerates surrounding whitespace and a single markdown code fence; any
// other deviation from Schema is a *MalformedOutputError. Soft bounds on
// counts are left to Warnings.
func Parse(raw string) (*Curriculum, error) {
	body := unfence(strings.TrimSpace(raw))
	if body == "" {
		return nil, &MalformedOutputError{Raw: raw, Err: errors.New("empty output")}
	}

	if err := llm.ValidateJSON(Schema, json.RawMessage(body)); err != nil {
		return nil, &MalformedOutputError{Raw: raw, Err: err}
	}

	var c Curriculum
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return nil, &MalformedOutputError{Raw: raw, Err: err}
	}
	if strings.TrimSpace(c.Title) == "" {
		return nil, &MalformedOutputError{Raw: raw, Err: errors.New("title is empty")}
	}
	return &c, nil
}

// unfence strips a ```json ... ``` wrapper when it encloses the whole text.
func unfence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(s[3:], "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

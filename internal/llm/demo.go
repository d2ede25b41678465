package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DemoProvider is an offline Provider that answers research and curriculum
// requests deterministically. It backs the "mock" provider setting so the
// whole pipeline can run without credentials.
//
// Requests offering tools get one search call built from the prompt's
// "Subject:" and "Topics:" lines; once tool output is present the candidates
// are echoed back as a JSON array. Schema-constrained requests get a small
// curriculum document built from the prompt's labelled lines.
type DemoProvider struct {
	chunkSize int
}

var (
	_ Provider = (*DemoProvider)(nil)
	_ Streamer = (*DemoProvider)(nil)
)

// NewDemoProvider returns a DemoProvider.
func NewDemoProvider() *DemoProvider {
	return &DemoProvider{chunkSize: 24}
}

func (d *DemoProvider) Generate(_ context.Context, req Request) (*Response, error) {
	return d.respond(req), nil
}

func (d *DemoProvider) Stream(ctx context.Context, req Request, fn func(chunk string) error) (*Response, error) {
	resp := d.respond(req)
	content := string(resp.Content)
	for start := 0; start < len(content); start += d.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := fn(content[start:min(start+d.chunkSize, len(content))]); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (d *DemoProvider) ModelID() string {
	return "demo"
}

func (d *DemoProvider) respond(req Request) *Response {
	prompt := lastUserMessage(req.Messages)
	resp := &Response{Model: "demo", StopReason: "end"}

	switch {
	case req.Schema != nil:
		resp.Content = demoCurriculum(prompt)
	case len(req.Tools) > 0 && !hasToolOutput(req.Messages):
		query := strings.TrimSpace(labelled(prompt, "Subject") + " " + labelled(prompt, "Topics"))
		args, _ := json.Marshal(map[string]string{"query": query})
		resp.ToolCalls = []ToolCall{{ID: "demo-1", Name: req.Tools[0].Name, Arguments: args}}
		resp.StopReason = "tool_use"
	case hasToolOutput(req.Messages):
		resp.Content = demoResources(req.Messages)
	default:
		resp.Content = json.RawMessage("[]")
	}

	resp.Usage = Usage{InputTokens: len(prompt) / 4, OutputTokens: len(resp.Content) / 4}
	resp.Usage.TotalTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
	return resp
}

func demoResources(msgs []Message) json.RawMessage {
	type resource struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	}

	seen := make(map[string]bool)
	out := []resource{}
	for _, m := range msgs {
		if m.Role != RoleTool {
			continue
		}
		var batch []resource
		if err := json.Unmarshal([]byte(m.Content), &batch); err != nil {
			continue
		}
		for _, r := range batch {
			if seen[r.URL] || len(out) == 10 {
				continue
			}
			seen[r.URL] = true
			out = append(out, r)
		}
	}

	data, _ := json.Marshal(out)
	return data
}

func demoCurriculum(prompt string) json.RawMessage {
	subject := orDefault(labelled(prompt, "Subject"), "General Studies")
	topics := orDefault(labelled(prompt, "Topics"), "core concepts")
	grade := orDefault(labelled(prompt, "Grade"), "mixed")
	child := orDefault(labelled(prompt, "Child"), "your learner")
	duration := orDefault(labelled(prompt, "Duration"), "the term")

	doc := map[string]any{
		"title":       fmt.Sprintf("%s: %s", subject, topics),
		"description": fmt.Sprintf("A %s plan for %s (grade %s) exploring %s.", duration, child, grade, topics),
		"objectives": []string{
			fmt.Sprintf("Explain the key ideas of %s", topics),
			fmt.Sprintf("Apply %s vocabulary in discussion and writing", subject),
			"Complete a short project that demonstrates understanding",
		},
		"lessons": []map[string]string{
			{"title": "Week 1: Introduction to " + topics, "description": "Survey the topic and collect questions."},
			{"title": "Week 2: Exploring " + topics, "description": "Work through the core resources together."},
			{"title": "Week 3: Project and review", "description": "Build and present a project, then review."},
		},
	}
	data, _ := json.Marshal(doc)
	return data
}

func lastUserMessage(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func hasToolOutput(msgs []Message) bool {
	for _, m := range msgs {
		if m.Role == RoleTool {
			return true
		}
	}
	return false
}

// labelled returns the value of the first "Label: value" line in text.
func labelled(text, label string) string {
	prefix := label + ":"
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-* "))
		if v, ok := strings.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

package curriculum

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/atozfamily/homescholar/internal/llm"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/validation"
)

func sampleRequest() GenerateRequest {
	return GenerateRequest{
		ResearchQuery: research.Query{Subject: "Science", Grade: "5", Topics: "Photosynthesis"},
		ResearchContext: []search.Candidate{
			{Title: "Test Resource", URL: "https://example.com", Snippet: "A great resource."},
			{Title: "Leaves", URL: "https://example.org/leaves", Snippet: "All about leaves."},
		},
		Profile: Profile{ChildName: "Alex", Duration: "Semester (18 weeks)"},
	}
}

func TestGenerate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(sampleJSON)})
	s := NewSynthesizer(mock, DefaultConfig(), nil)

	c, err := s.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Title != "Exploring Photosynthesis" {
		t.Errorf("Title = %q", c.Title)
	}

	req := mock.Call(0)
	if req.Schema == nil || req.Schema.Name != "curriculum" {
		t.Fatalf("request not schema constrained: %+v", req.Schema)
	}
	if !strings.Contains(req.System, "single JSON object") {
		t.Error("system prompt does not demand a single JSON object")
	}

	msg := req.Messages[0].Content
	for _, want := range []string{
		"Child: Alex",
		"Duration: Semester (18 weeks)",
		"Learning style: Balanced",
		"Focus areas: Core concepts",
		"State requirements: None provided",
		`"url": "https://example.com"`,
		"Subject: Science",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("task message missing %q\n%s", want, msg)
		}
	}
}

func TestStream_ConcatenationIsDocument(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(sampleJSON)})
	mock.ChunkSize = 7
	s := NewSynthesizer(mock, DefaultConfig(), nil)

	var chunks []string
	if err := s.Stream(context.Background(), sampleRequest(), func(c string) error {
		chunks = append(chunks, c)
		return nil
	}); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	if _, err := Parse(chunks[0]); err == nil {
		t.Error("a single chunk should not parse on its own")
	}
	if _, err := Parse(strings.Join(chunks, "")); err != nil {
		t.Errorf("concatenation does not parse: %v", err)
	}
}

func TestPrompt_ProfileFieldsAndStyleHints(t *testing.T) {
	req := sampleRequest()
	req.Duration = "year"
	req.LearningStyle = "Kinesthetic"
	req.FocusAreas = "Lab skills"
	req.StateRequirements = "Texas TEKS"
	req.ResearchContext = nil

	msg := buildTaskMessage(req)
	for _, want := range []string{
		"Duration: Full Year (36 weeks)",
		"Learning style: Kinesthetic",
		"Focus areas: Lab skills",
		"State requirements: Texas TEKS",
		"hands-on",
		"None found",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("task message missing %q", want)
		}
	}
}

func TestGenerate_EmptyResearchContext(t *testing.T) {
	req := sampleRequest()
	req.ResearchContext = []search.Candidate{}

	s := NewSynthesizer(llm.NewDemoProvider(), DefaultConfig(), nil)
	c, err := s.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate with no resources: %v", err)
	}
	if len(c.Objectives) == 0 || len(c.Lessons) == 0 {
		t.Errorf("demo curriculum incomplete: %+v", c)
	}
	if !strings.Contains(c.Description, "Alex") {
		t.Errorf("description does not mention the child: %q", c.Description)
	}
}

func TestGenerate_Malformed(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`Sure! Here's a plan: week 1 plants.`)})
	s := NewSynthesizer(mock, DefaultConfig(), nil)

	_, err := s.Generate(context.Background(), sampleRequest())
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
	if errors.Is(err, ErrGenerationFailed) {
		t.Error("malformed output is not a generation failure")
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("slow down")}})
	s := NewSynthesizer(mock, DefaultConfig(), nil)

	_, err := s.Generate(context.Background(), sampleRequest())
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	var rl *llm.ErrRateLimit
	if !errors.As(err, &rl) {
		t.Error("provider error not preserved")
	}
}

func TestStream_InterruptedMidway(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content:        json.RawMessage(sampleJSON),
		Err:            errors.New("connection reset"),
		StreamErrAfter: 2,
	})
	s := NewSynthesizer(mock, DefaultConfig(), nil)

	var got int
	err := s.Stream(context.Background(), sampleRequest(), func(string) error { got++; return nil })
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if got != 2 {
		t.Errorf("delivered %d chunks before failure, want 2", got)
	}
}

type slowProvider struct{}

func (slowProvider) ModelID() string { return "slow" }

func (slowProvider) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGenerate_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	s := NewSynthesizer(slowProvider{}, Config{Timeout: 20 * time.Millisecond}, nil)
	_, err := s.Generate(context.Background(), sampleRequest())
	if !errors.Is(err, ErrGenerationFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timed-out ErrGenerationFailed, got %v", err)
	}
}

func TestGenerate_Validation(t *testing.T) {
	mock := llm.NewMockProvider()
	s := NewSynthesizer(mock, DefaultConfig(), nil)

	req := sampleRequest()
	req.ChildName = ""
	req.Duration = " "
	req.ResearchQuery.Topics = ""

	_, err := s.Generate(context.Background(), req)
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Error, got %v", err)
	}
	m := verr.Map()
	if m["childName"] != "Child's name is required" || m["duration"] != "Please select a duration." {
		t.Errorf("profile messages = %v", m)
	}
	if m["topics"] != "Please specify topics of interest." {
		t.Errorf("query messages = %v", m)
	}
	if mock.CallCount() != 0 {
		t.Error("invalid request reached the model")
	}
}

func TestGenerateRequestJSON(t *testing.T) {
	body := `{
		"researchQuery": {"subject": "Science", "grade": "5", "topics": "Photosynthesis"},
		"researchContext": [{"title": "Test Resource", "url": "https://example.com", "snippet": "A great resource."}],
		"childName": "Alex",
		"duration": "Semester (18 weeks)",
		"learningStyle": "Visual"
	}`
	var req GenerateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}
	if req.ChildName != "Alex" || req.LearningStyle != "Visual" || req.ResearchQuery.Grade != "5" || len(req.ResearchContext) != 1 {
		t.Errorf("decoded %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

package curriculum

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const sampleJSON = `{
  "title": "Exploring Photosynthesis",
  "description": "A semester-long journey into how plants make food.",
  "objectives": ["Describe photosynthesis", "Identify leaf structures", "Design a light experiment"],
  "lessons": [
    {"title": "Week 1: What plants need", "description": "Sprout beans in different conditions."},
    {"title": "Week 2: Inside a leaf", "description": "Sketch leaf cross-sections."}
  ]
}`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", sampleJSON, false},
		{"surrounding whitespace", "\n\n  " + sampleJSON + "  \n", false},
		{"json fence", "```json\n" + sampleJSON + "\n```", false},
		{"bare fence", "```\n" + sampleJSON + "\n```", false},
		{"empty", "   ", true},
		{"prose", "Here is your curriculum: it covers plants.", true},
		{"truncated", sampleJSON[:60], true},
		{"missing lessons", `{"title":"T","description":"D","objectives":[]}`, true},
		{"wrong type", `{"title":"T","description":"D","objectives":"one","lessons":[]}`, true},
		{"extra key", `{"title":"T","description":"D","objectives":[],"lessons":[],"notes":"x"}`, true},
		{"lesson missing description", `{"title":"T","description":"D","objectives":[],"lessons":[{"title":"W1"}]}`, true},
		{"blank title", `{"title":"  ","description":"D","objectives":[],"lessons":[]}`, true},
		{"array", `[]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedOutput) {
					t.Fatalf("expected ErrMalformedOutput, got %v", err)
				}
				var merr *MalformedOutputError
				if !errors.As(err, &merr) || merr.Raw != tt.raw {
					t.Errorf("MalformedOutputError should carry the raw text")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if c.Title != "Exploring Photosynthesis" || len(c.Lessons) != 2 {
				t.Errorf("unexpected curriculum %+v", c)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	first, err := Parse(sampleJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	data, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Parse(string(data))
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("round trip changed value:\n%+v\n%+v", first, second)
	}
	if second.Objectives[0] != "Describe photosynthesis" || second.Lessons[1].Title != "Week 2: Inside a leaf" {
		t.Error("ordering not preserved")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"title", "description", "objectives", "lessons"} {
		if _, ok := keys[k]; !ok {
			t.Errorf("serialized form missing %q", k)
		}
	}
	if len(keys) != 4 {
		t.Errorf("serialized form has %d keys, want 4", len(keys))
	}
}

func TestWarnings(t *testing.T) {
	c := &Curriculum{Title: "T", Objectives: []string{"a"}}
	w := c.Warnings()
	if len(w) != 2 {
		t.Fatalf("warnings = %v, want objectives and lessons", w)
	}

	ok := &Curriculum{Title: "T", Objectives: []string{"a", "b", "c"}, Lessons: []Lesson{{Title: "W1"}}}
	if w := ok.Warnings(); len(w) != 0 {
		t.Errorf("unexpected warnings %v", w)
	}

	// Out-of-bounds counts still parse.
	c2, err := Parse(`{"title":"T","description":"D","objectives":["1","2","3","4","5","6"],"lessons":[]}`)
	if err != nil {
		t.Fatalf("soft bounds must not fail parsing: %v", err)
	}
	if len(c2.Warnings()) != 2 {
		t.Errorf("warnings = %v", c2.Warnings())
	}
}

func TestFormat(t *testing.T) {
	c, err := Parse(sampleJSON)
	if err != nil {
		t.Fatal(err)
	}
	out := Format(c)
	for _, want := range []string{
		"Exploring Photosynthesis\n========================",
		"1. Describe photosynthesis",
		"- Week 2: Inside a leaf",
		"    Sketch leaf cross-sections.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format missing %q\n%s", want, out)
		}
	}
	if Format(nil) != "" {
		t.Error("Format(nil) should be empty")
	}
}

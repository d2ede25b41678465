package curriculum

import (
	"errors"
	"fmt"

	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/validation"
)

// Curriculum is the generated plan. Field order and JSON names are the wire
// contract with clients.
type Curriculum struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Objectives  []string `json:"objectives"`
	Lessons     []Lesson `json:"lessons"`
}

// Lesson is one week-by-week entry.
type Lesson struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Soft bounds on objectives given to the model.
const (
	MinObjectives = 3
	MaxObjectives = 5
)

// Warnings reports soft-bound violations. They never fail a parse.
func (c *Curriculum) Warnings() []string {
	var w []string
	if n := len(c.Objectives); n < MinObjectives || n > MaxObjectives {
		w = append(w, fmt.Sprintf("expected %d-%d objectives, got %d", MinObjectives, MaxObjectives, n))
	}
	if len(c.Lessons) == 0 {
		w = append(w, "curriculum has no lessons")
	}
	return w
}

// Duration is a selectable plan length.
type Duration struct {
	Value string
	Label string
}

// Durations lists the plan lengths offered by the generation form. Any
// free-text duration is also accepted.
var Durations = []Duration{
	{Value: "quarter", Label: "Quarter (9 weeks)"},
	{Value: "semester", Label: "Semester (18 weeks)"},
	{Value: "year", Label: "Full Year (36 weeks)"},
}

// DurationLabel returns the label for a known duration value, or v itself.
func DurationLabel(v string) string {
	for _, d := range Durations {
		if d.Value == v {
			return d.Label
		}
	}
	return v
}

// Profile describes the learner the plan is written for.
type Profile struct {
	ChildName         string `json:"childName" validate:"notblank"`
	Duration          string `json:"duration" validate:"notblank"`
	LearningStyle     string `json:"learningStyle,omitempty"`
	FocusAreas        string `json:"focusAreas,omitempty"`
	StateRequirements string `json:"stateRequirements,omitempty"`
}

// FieldMessages implements validation.Messager.
func (Profile) FieldMessages() map[string]string {
	return map[string]string{
		"childName": "Child's name is required",
		"duration":  "Please select a duration.",
	}
}

// Validate returns a *validation.Error naming each empty required field.
func (p Profile) Validate() error {
	return validation.Check(p)
}

// GenerateRequest is the full synthesis input. Its JSON form is the body of
// the generate-curriculum endpoint.
type GenerateRequest struct {
	ResearchQuery   research.Query     `json:"researchQuery"`
	ResearchContext []search.Candidate `json:"researchContext"`
	Profile
}

// Validate checks the query and the profile. An empty research context is
// allowed.
func (r GenerateRequest) Validate() error {
	var fields []validation.FieldError
	for _, err := range []error{r.ResearchQuery.Validate(), r.Profile.Validate()} {
		if err == nil {
			continue
		}
		var verr *validation.Error
		if !errors.As(err, &verr) {
			return err
		}
		fields = append(fields, verr.Fields...)
	}
	if len(fields) == 0 {
		return nil
	}
	return &validation.Error{Fields: fields}
}

// ErrGenerationFailed matches any *FailedError via errors.Is.
var ErrGenerationFailed = errors.New("curriculum generation failed")

// FailedError reports a synthesis call that errored or timed out. No partial
// output from a failed call is valid.
type FailedError struct {
	Err error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("curriculum generation failed: %v", e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrGenerationFailed) match.
func (e *FailedError) Is(target error) bool { return target == ErrGenerationFailed }

// ErrMalformedOutput matches any *MalformedOutputError via errors.Is.
var ErrMalformedOutput = errors.New("malformed curriculum output")

// MalformedOutputError reports assembled output that is not a curriculum
// document. Raw holds the text for logging; it is never shown to users.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed curriculum output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedOutput) match.
func (e *MalformedOutputError) Is(target error) bool { return target == ErrMalformedOutput }

// Package wizard is the two-phase research → generation flow as a tagged
// state value and a pure reducer. It knows nothing about rendering; the TUI
// and the CLI drive it through Reduce or a Runner.
package wizard

import (
	"fmt"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
)

// Phase is the wizard's position in the flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResearchForm
	PhaseResearching
	PhaseResearchComplete
	PhaseResearchFailed
	PhaseGenerationForm
	PhaseGenerating
	PhaseGenerationComplete
	PhaseGenerationFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:               "idle",
	PhaseResearchForm:       "research form",
	PhaseResearching:        "researching",
	PhaseResearchComplete:   "research complete",
	PhaseResearchFailed:     "research failed",
	PhaseGenerationForm:     "generation form",
	PhaseGenerating:         "generating",
	PhaseGenerationComplete: "generation complete",
	PhaseGenerationFailed:   "generation failed",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Field names a form input. Values match the JSON names used in validation
// errors.
type Field string

const (
	FieldSubject           Field = "subject"
	FieldGrade             Field = "grade"
	FieldTopics            Field = "topics"
	FieldChildName         Field = "childName"
	FieldDuration          Field = "duration"
	FieldLearningStyle     Field = "learningStyle"
	FieldFocusAreas        Field = "focusAreas"
	FieldStateRequirements Field = "stateRequirements"
)

// ResearchFields and ProfileFields list each form's inputs in display order.
var (
	ResearchFields = []Field{FieldSubject, FieldGrade, FieldTopics}
	ProfileFields  = []Field{FieldChildName, FieldDuration, FieldLearningStyle, FieldFocusAreas, FieldStateRequirements}
)

// State is one immutable snapshot of the wizard. Reduce never mutates its
// input; maps and slices are copied before they change.
type State struct {
	Phase Phase

	// Form inputs. They survive failures so the user can resubmit.
	Query   research.Query
	Profile curriculum.Profile

	// Errors maps a field to its validation message.
	Errors map[Field]string

	// Submitted is the query the current research result belongs to.
	Submitted  research.Query
	Resources  []search.Candidate
	Curriculum *curriculum.Curriculum

	// Notice is a dismissable, human-readable failure message.
	Notice string

	// RequestID identifies the in-flight request. Settlement events carrying
	// any other id are stale and ignored.
	RequestID string
}

// New returns the initial state.
func New() State {
	return State{Phase: PhaseResearchForm}
}

// Busy reports whether a request is in flight. Submit controls are disabled
// and form fields frozen while busy.
func (s State) Busy() bool {
	return s.Phase == PhaseResearching || s.Phase == PhaseGenerating
}

// SubmitLabel is the label of the active form's submit control.
func (s State) SubmitLabel() string {
	switch s.Phase {
	case PhaseResearching:
		return "Researching..."
	case PhaseGenerating:
		return "Generating..."
	case PhaseGenerationForm, PhaseGenerationFailed:
		return "Generate Curriculum"
	default:
		return "Start Research"
	}
}

// Value returns the current input for f.
func (s State) Value(f Field) string {
	switch f {
	case FieldSubject:
		return s.Query.Subject
	case FieldGrade:
		return s.Query.Grade
	case FieldTopics:
		return s.Query.Topics
	case FieldChildName:
		return s.Profile.ChildName
	case FieldDuration:
		return s.Profile.Duration
	case FieldLearningStyle:
		return s.Profile.LearningStyle
	case FieldFocusAreas:
		return s.Profile.FocusAreas
	case FieldStateRequirements:
		return s.Profile.StateRequirements
	}
	return ""
}

// Summary echoes the submitted query and resource count after research.
func (s State) Summary() string {
	return fmt.Sprintf("Found %d resources for %s, grade %s: %s",
		len(s.Resources), s.Submitted.Subject, s.Submitted.Grade, s.Submitted.Topics)
}

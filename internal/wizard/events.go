package wizard

import (
	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
)

// Event is an input to Reduce: a user action or a request settlement.
type Event interface{ isEvent() }

type (
	// FieldEdited sets one form input.
	FieldEdited struct {
		Field Field
		Value string
	}

	// ResearchSubmitted submits the research form. RequestID names the
	// request that will be started if the form is valid.
	ResearchSubmitted struct{ RequestID string }

	ResearchSucceeded struct {
		RequestID string
		Resources []search.Candidate
	}

	ResearchFailed struct {
		RequestID string
		Err       error
	}

	// NoticeDismissed closes the failure notice and returns to the form.
	NoticeDismissed struct{}

	// ProceedToGeneration opens the profile form after research.
	ProceedToGeneration struct{}

	GenerationSubmitted struct{ RequestID string }

	GenerationSucceeded struct {
		RequestID  string
		Curriculum *curriculum.Curriculum
	}

	GenerationFailed struct {
		RequestID string
		Err       error
	}

	// BackToResearch returns to the research form with inputs kept.
	BackToResearch struct{}

	// Reset discards everything.
	Reset struct{}
)

func (FieldEdited) isEvent()         {}
func (ResearchSubmitted) isEvent()   {}
func (ResearchSucceeded) isEvent()   {}
func (ResearchFailed) isEvent()      {}
func (NoticeDismissed) isEvent()     {}
func (ProceedToGeneration) isEvent() {}
func (GenerationSubmitted) isEvent() {}
func (GenerationSucceeded) isEvent() {}
func (GenerationFailed) isEvent()    {}
func (BackToResearch) isEvent()      {}
func (Reset) isEvent()               {}

// Effect is work Reduce asks its driver to perform.
type Effect interface{ isEffect() }

type (
	StartResearch struct {
		RequestID string
		Query     research.Query
	}

	StartGeneration struct {
		RequestID string
		Request   curriculum.GenerateRequest
	}

	// CancelInFlight aborts the named request.
	CancelInFlight struct{ RequestID string }

	// ResearchCompleted hands a finished research result to the caller's
	// completion callback.
	ResearchCompleted struct {
		Query     research.Query
		Resources []search.Candidate
	}

	// CurriculumCompleted hands the finished curriculum and its originating
	// query to the caller's persistence callback.
	CurriculumCompleted struct {
		Query      research.Query
		Curriculum *curriculum.Curriculum
	}
)

func (StartResearch) isEffect()       {}
func (StartGeneration) isEffect()     {}
func (CancelInFlight) isEffect()      {}
func (ResearchCompleted) isEffect()   {}
func (CurriculumCompleted) isEffect() {}

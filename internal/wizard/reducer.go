package wizard

import (
	"errors"
	"maps"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/validation"
)

// Reduce applies ev to s and returns the next state plus the effects the
// driver must perform. It is pure: no I/O, no clocks, no randomness.
// Events that make no sense in the current phase leave the state unchanged.
func Reduce(s State, ev Event) (State, []Effect) {
	if s.Phase == PhaseIdle {
		s.Phase = PhaseResearchForm
	}

	switch ev := ev.(type) {
	case FieldEdited:
		return editField(s, ev), nil

	case ResearchSubmitted:
		return submitResearch(s, ev)

	case ResearchSucceeded:
		if s.Phase != PhaseResearching || ev.RequestID != s.RequestID {
			return s, nil
		}
		resources := ev.Resources
		if resources == nil {
			resources = []search.Candidate{}
		}
		s.Phase = PhaseResearchComplete
		s.Resources = resources
		s.RequestID = ""
		return s, []Effect{ResearchCompleted{Query: s.Submitted, Resources: resources}}

	case ResearchFailed:
		if s.Phase != PhaseResearching || ev.RequestID != s.RequestID {
			return s, nil
		}
		s.Phase = PhaseResearchFailed
		s.Notice = researchNotice(ev.Err)
		s.RequestID = ""
		return s, nil

	case NoticeDismissed:
		switch s.Phase {
		case PhaseResearchFailed:
			s.Phase = PhaseResearchForm
		case PhaseGenerationFailed:
			s.Phase = PhaseGenerationForm
		}
		s.Notice = ""
		return s, nil

	case ProceedToGeneration:
		if s.Phase != PhaseResearchComplete {
			return s, nil
		}
		s.Phase = PhaseGenerationForm
		s.Errors = nil
		return s, nil

	case GenerationSubmitted:
		return submitGeneration(s, ev)

	case GenerationSucceeded:
		if s.Phase != PhaseGenerating || ev.RequestID != s.RequestID {
			return s, nil
		}
		s.Phase = PhaseGenerationComplete
		s.Curriculum = ev.Curriculum
		s.RequestID = ""
		return s, []Effect{CurriculumCompleted{Query: s.Submitted, Curriculum: ev.Curriculum}}

	case GenerationFailed:
		if s.Phase != PhaseGenerating || ev.RequestID != s.RequestID {
			return s, nil
		}
		s.Phase = PhaseGenerationFailed
		s.Notice = generationNotice(ev.Err)
		s.RequestID = ""
		return s, nil

	case BackToResearch:
		effects := cancelEffects(s)
		next := New()
		next.Query = s.Query
		next.Profile = s.Profile
		return next, effects

	case Reset:
		return New(), cancelEffects(s)
	}
	return s, nil
}

func cancelEffects(s State) []Effect {
	if s.Busy() && s.RequestID != "" {
		return []Effect{CancelInFlight{RequestID: s.RequestID}}
	}
	return nil
}

func editField(s State, ev FieldEdited) State {
	researchForm := s.Phase == PhaseResearchForm || s.Phase == PhaseResearchFailed
	profileForm := s.Phase == PhaseGenerationForm || s.Phase == PhaseGenerationFailed

	switch ev.Field {
	case FieldSubject, FieldGrade, FieldTopics:
		if !researchForm {
			return s
		}
	case FieldChildName, FieldDuration, FieldLearningStyle, FieldFocusAreas, FieldStateRequirements:
		if !profileForm {
			return s
		}
	default:
		return s
	}

	switch ev.Field {
	case FieldSubject:
		s.Query.Subject = ev.Value
	case FieldGrade:
		s.Query.Grade = ev.Value
	case FieldTopics:
		s.Query.Topics = ev.Value
	case FieldChildName:
		s.Profile.ChildName = ev.Value
	case FieldDuration:
		s.Profile.Duration = ev.Value
	case FieldLearningStyle:
		s.Profile.LearningStyle = ev.Value
	case FieldFocusAreas:
		s.Profile.FocusAreas = ev.Value
	case FieldStateRequirements:
		s.Profile.StateRequirements = ev.Value
	}

	if _, ok := s.Errors[ev.Field]; ok {
		s.Errors = maps.Clone(s.Errors)
		delete(s.Errors, ev.Field)
	}
	return s
}

func submitResearch(s State, ev ResearchSubmitted) (State, []Effect) {
	if s.Phase != PhaseResearchForm && s.Phase != PhaseResearchFailed {
		return s, nil
	}

	if errs := fieldErrors(s.Query.Validate()); errs != nil {
		s.Phase = PhaseResearchForm
		s.Errors = errs
		s.Notice = ""
		return s, nil
	}

	q := s.Query.Normalized()
	next := State{
		Phase:     PhaseResearching,
		Query:     s.Query,
		Profile:   s.Profile,
		Submitted: q,
		RequestID: ev.RequestID,
	}
	return next, []Effect{StartResearch{RequestID: ev.RequestID, Query: q}}
}

func submitGeneration(s State, ev GenerationSubmitted) (State, []Effect) {
	if s.Phase != PhaseGenerationForm && s.Phase != PhaseGenerationFailed {
		return s, nil
	}

	if errs := fieldErrors(s.Profile.Validate()); errs != nil {
		s.Phase = PhaseGenerationForm
		s.Errors = errs
		s.Notice = ""
		return s, nil
	}

	s.Phase = PhaseGenerating
	s.Errors = nil
	s.Notice = ""
	s.Curriculum = nil
	s.RequestID = ev.RequestID

	req := curriculum.GenerateRequest{
		ResearchQuery:   s.Submitted,
		ResearchContext: s.Resources,
		Profile:         s.Profile,
	}
	return s, []Effect{StartGeneration{RequestID: ev.RequestID, Request: req}}
}

// fieldErrors converts a validation error to per-field messages.
func fieldErrors(err error) map[Field]string {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return nil
	}
	out := make(map[Field]string, len(verr.Fields))
	for _, f := range verr.Fields {
		out[Field(f.Field)] = f.Message
	}
	return out
}

package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/library"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/screen"
	"github.com/atozfamily/homescholar/internal/ui/components"
	"github.com/atozfamily/homescholar/internal/ui/layout"
	wiz "github.com/atozfamily/homescholar/internal/wizard"
)

const saveTimeout = 10 * time.Second

// Deps are the wizard screen's collaborators. Library may be nil, in which
// case finished curricula are not saved.
type Deps struct {
	API          wiz.API
	Library      library.Library
	MaxToolCalls int
	Logger       *zap.Logger
}

// refreshMsg tells the screen that the runner or the feed has news.
type refreshMsg struct{}

// feed collects what the runner's goroutines report, for the UI goroutine
// to drain on the next refresh.
type feed struct {
	mu      sync.Mutex
	events  []research.Event
	saved   *library.Entry
	saveErr error
}

// Screen walks the user through research and curriculum generation.
type Screen struct {
	deps   Deps
	runner *wiz.Runner

	dirty     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	feed      feed

	state   wiz.State
	focus   int
	texts   map[wiz.Field]*components.TextField
	choices map[wiz.Field]*components.Choice

	activity []string
	searches int
	warnings []string
	saved    *library.Entry
	saveErr  string
	scroll   int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.Closer = (*Screen)(nil)

// New creates a wizard screen in the research form.
func New(deps Deps) *Screen {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MaxToolCalls <= 0 {
		deps.MaxToolCalls = research.DefaultConfig().MaxToolCalls
	}

	s := &Screen{
		deps:    deps,
		dirty:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		texts:   make(map[wiz.Field]*components.TextField),
		choices: make(map[wiz.Field]*components.Choice),
	}
	s.buildControls()

	s.runner = wiz.NewRunner(deps.API, wiz.Callbacks{
		OnChange: func(wiz.State) { s.signal() },
		OnProgress: func(ev research.Event) {
			s.feed.mu.Lock()
			s.feed.events = append(s.feed.events, ev)
			s.feed.mu.Unlock()
			s.signal()
		},
		OnCurriculumComplete: s.save,
	})
	s.state = s.runner.State()
	return s
}

func (s *Screen) buildControls() {
	choice := func(f wiz.Field, label string) {
		opts := wiz.Options(f)
		values := make([]string, len(opts))
		labels := make([]string, len(opts))
		for i, o := range opts {
			values[i], labels[i] = o.Value, o.Label
		}
		c := components.NewChoice(label, values, labels)
		s.choices[f] = &c
	}
	text := func(f wiz.Field, label, placeholder string) {
		t := components.NewTextField(label, placeholder, 200)
		s.texts[f] = &t
	}

	choice(wiz.FieldSubject, "Subject")
	choice(wiz.FieldGrade, "Grade Level")
	text(wiz.FieldTopics, "Topics of Interest", "e.g. photosynthesis, the water cycle")

	text(wiz.FieldChildName, "Child's Name", "e.g. Alex")
	choice(wiz.FieldDuration, "Duration")
	choice(wiz.FieldLearningStyle, "Learning Style")
	s.choices[wiz.FieldLearningStyle].Default = "Balanced"
	text(wiz.FieldFocusAreas, "Focus Areas", "optional")
	text(wiz.FieldStateRequirements, "State Requirements", "optional")
}

// signal wakes the listener without ever blocking the caller. Bursts
// coalesce into a single refresh.
func (s *Screen) signal() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Screen) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.dirty:
			return refreshMsg{}
		case <-s.done:
			return nil
		}
	}
}

// save persists a finished curriculum. It runs on the runner's goroutine.
func (s *Screen) save(q research.Query, c *curriculum.Curriculum) {
	if s.deps.Library == nil {
		return
	}
	resources := s.runner.State().Resources

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	entry, err := s.deps.Library.Save(ctx, q, resources, c)

	s.feed.mu.Lock()
	if err != nil {
		s.deps.Logger.Warn("saving curriculum failed", zap.Error(err))
		s.feed.saveErr = err
	} else {
		s.feed.saved = &entry
	}
	s.feed.mu.Unlock()
	s.signal()
}

// Close cancels in-flight requests. The screen is unusable afterwards.
func (s *Screen) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.runner.Close()
	})
}

func (s *Screen) Init() tea.Cmd {
	return tea.Batch(s.listen(), s.focusCmd())
}

func (s *Screen) Title() string {
	return "New Curriculum"
}

// State returns the wizard state the screen last rendered.
func (s *Screen) State() wiz.State {
	return s.state
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		cmd := s.sync()
		return s, tea.Batch(s.listen(), cmd)

	case tea.KeyMsg:
		return s, s.handleKey(msg)
	}

	if t := s.focusedText(); t != nil {
		var cmd tea.Cmd
		*t, cmd, _ = t.Update(msg)
		return s, cmd
	}
	return s, nil
}

// sync pulls the runner state and drained feed into the screen and returns
// a focus command when the phase changed.
func (s *Screen) sync() tea.Cmd {
	prev := s.state.Phase
	s.state = s.runner.State()

	s.feed.mu.Lock()
	events := s.feed.events
	s.feed.events = nil
	saved, saveErr := s.feed.saved, s.feed.saveErr
	s.feed.saved, s.feed.saveErr = nil, nil
	s.feed.mu.Unlock()

	if s.state.Phase == wiz.PhaseResearching && prev != wiz.PhaseResearching {
		s.activity, s.searches, s.warnings = nil, 0, nil
	}
	for _, ev := range events {
		s.record(ev)
	}
	if saved != nil {
		s.saved, s.saveErr = saved, ""
	} else if saveErr != nil {
		s.saveErr = saveErr.Error()
	}
	if s.state.Phase == wiz.PhaseResearchForm && prev != wiz.PhaseResearchForm {
		s.saved, s.saveErr = nil, ""
	}

	for f, t := range s.texts {
		t.SetValue(s.state.Value(f))
		t.Error = s.state.Errors[f]
	}
	for f, c := range s.choices {
		if c.Value() != s.state.Value(f) {
			c.Select(s.state.Value(f))
		}
		c.Error = s.state.Errors[f]
	}

	if s.state.Phase == prev {
		return nil
	}
	s.focus, s.scroll = 0, 0
	return s.focusCmd()
}

func (s *Screen) record(ev research.Event) {
	switch ev.Type {
	case research.EventStatus:
		s.activity = append(s.activity, ev.Message)
	case research.EventToolCall:
		s.searches++
		s.activity = append(s.activity, fmt.Sprintf("Searching: %s", ev.Query))
	case research.EventToolResult:
		if ev.Unavailable {
			s.activity = append(s.activity, "Search unavailable, continuing")
		} else {
			s.activity = append(s.activity, fmt.Sprintf("Found %d results", ev.Count))
		}
	case research.EventResources:
		s.warnings = ev.Warnings
	case research.EventError:
		s.activity = append(s.activity, ev.Message)
	}
}

// fields lists the inputs of the form shown in the current phase.
func (s *Screen) fields() []wiz.Field {
	switch s.state.Phase {
	case wiz.PhaseResearchForm, wiz.PhaseResearching, wiz.PhaseResearchFailed:
		return wiz.ResearchFields
	case wiz.PhaseGenerationForm, wiz.PhaseGenerating, wiz.PhaseGenerationFailed:
		return wiz.ProfileFields
	}
	return nil
}

func (s *Screen) isForm() bool {
	return len(s.fields()) > 0 && !s.state.Busy()
}

func (s *Screen) focusedField() (wiz.Field, bool) {
	fields := s.fields()
	if s.focus < len(fields) {
		return fields[s.focus], true
	}
	return "", false
}

func (s *Screen) focusedText() *components.TextField {
	if !s.isForm() {
		return nil
	}
	f, ok := s.focusedField()
	if !ok {
		return nil
	}
	return s.texts[f]
}

func (s *Screen) focusCmd() tea.Cmd {
	for _, t := range s.texts {
		t.Blur()
	}
	if t := s.focusedText(); t != nil {
		return t.Focus()
	}
	return nil
}

func (s *Screen) moveFocus(delta int) tea.Cmd {
	n := len(s.fields()) + 1
	s.focus = (s.focus + delta + n) % n
	return s.focusCmd()
}

func (s *Screen) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+r" {
		s.runner.Dispatch(wiz.Reset{})
		return s.sync()
	}

	switch s.state.Phase {
	case wiz.PhaseResearching, wiz.PhaseGenerating:
		if key == "ctrl+b" {
			s.runner.Dispatch(wiz.BackToResearch{})
			return s.sync()
		}
		return nil

	case wiz.PhaseResearchComplete:
		switch key {
		case "enter":
			s.runner.Dispatch(wiz.ProceedToGeneration{})
			return s.sync()
		case "ctrl+b":
			s.runner.Dispatch(wiz.BackToResearch{})
			return s.sync()
		case "up", "k":
			s.scroll = max(s.scroll-1, 0)
		case "down", "j":
			s.scroll++
		}
		return nil

	case wiz.PhaseGenerationComplete:
		switch key {
		case "n":
			s.runner.Dispatch(wiz.Reset{})
			return s.sync()
		case "up", "k":
			s.scroll = max(s.scroll-1, 0)
		case "down", "j":
			s.scroll++
		case "pgup":
			s.scroll = max(s.scroll-10, 0)
		case "pgdown":
			s.scroll += 10
		}
		return nil
	}

	return s.handleFormKey(msg)
}

func (s *Screen) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		return s.moveFocus(1)
	case "shift+tab", "up":
		return s.moveFocus(-1)
	case "ctrl+x":
		if s.state.Notice != "" {
			s.runner.Dispatch(wiz.NoticeDismissed{})
			return s.sync()
		}
		return nil
	case "ctrl+b":
		if s.state.Phase == wiz.PhaseGenerationForm || s.state.Phase == wiz.PhaseGenerationFailed {
			s.runner.Dispatch(wiz.BackToResearch{})
			return s.sync()
		}
		return nil
	case "enter":
		if _, onField := s.focusedField(); onField {
			return s.moveFocus(1)
		}
		return s.submit()
	}

	f, ok := s.focusedField()
	if !ok {
		return nil
	}
	if c := s.choices[f]; c != nil {
		next, changed := c.Update(msg)
		*c = next
		if changed {
			s.runner.Edit(f, c.Value())
			s.sync()
		}
		return nil
	}
	if t := s.texts[f]; t != nil {
		next, cmd, changed := t.Update(msg)
		*t = next
		if changed {
			s.runner.Edit(f, t.Value())
			s.sync()
		}
		return cmd
	}
	return nil
}

func (s *Screen) submit() tea.Cmd {
	switch s.state.Phase {
	case wiz.PhaseResearchForm, wiz.PhaseResearchFailed:
		s.runner.SubmitResearch()
	case wiz.PhaseGenerationForm, wiz.PhaseGenerationFailed:
		s.runner.SubmitGeneration()
	default:
		return nil
	}
	return s.sync()
}

func (s *Screen) KeyHints() []layout.KeyHint {
	switch s.state.Phase {
	case wiz.PhaseResearching, wiz.PhaseGenerating:
		return []layout.KeyHint{
			{Key: "Ctrl+B", Description: "Cancel"},
			{Key: "Esc", Description: "Back"},
		}
	case wiz.PhaseResearchComplete:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Continue"},
			{Key: "↑↓", Description: "Scroll"},
			{Key: "Ctrl+B", Description: "Edit research"},
			{Key: "Esc", Description: "Back"},
		}
	case wiz.PhaseGenerationComplete:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Scroll"},
			{Key: "N", Description: "New curriculum"},
			{Key: "Esc", Description: "Back"},
		}
	}

	hints := []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "←→", Description: "Choose"},
		{Key: "Enter", Description: "Submit"},
	}
	if s.state.Notice != "" {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+X", Description: "Dismiss"})
	}
	if s.state.Phase == wiz.PhaseGenerationForm || s.state.Phase == wiz.PhaseGenerationFailed {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+B", Description: "Edit research"})
	}
	return append(hints, layout.KeyHint{Key: "Ctrl+R", Description: "Start over"})
}

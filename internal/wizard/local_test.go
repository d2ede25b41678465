package wizard

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/llm"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
)

func TestLocalAPI_FullFlow(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	demo := llm.NewDemoProvider()
	api := &LocalAPI{
		Orchestrator: research.NewOrchestrator(demo, search.NewMock(), research.DefaultConfig(), nil),
		Synthesizer:  curriculum.NewSynthesizer(demo, curriculum.DefaultConfig(), nil),
	}

	var (
		gotQuery research.Query
		gotCurr  *curriculum.Curriculum
		events   int
	)
	r := NewRunner(api, Callbacks{
		OnResearchComplete:   func(q research.Query, _ []search.Candidate) { gotQuery = q },
		OnCurriculumComplete: func(_ research.Query, c *curriculum.Curriculum) { gotCurr = c },
		OnProgress:           func(research.Event) { events++ },
	})
	defer r.Close()

	r.Edit(FieldSubject, "Science")
	r.Edit(FieldGrade, "5")
	r.Edit(FieldTopics, "Photosynthesis")
	r.SubmitResearch()
	r.Wait()

	s := r.State()
	if s.Phase != PhaseResearchComplete {
		t.Fatalf("phase = %v, notice %q", s.Phase, s.Notice)
	}
	if gotQuery != (research.Query{Subject: "Science", Grade: "5", Topics: "Photosynthesis"}) {
		t.Errorf("completion query = %+v", gotQuery)
	}
	if events == 0 {
		t.Error("no progress events forwarded")
	}

	r.Dispatch(ProceedToGeneration{})
	r.Edit(FieldChildName, "Alex")
	r.Edit(FieldDuration, "Semester (18 weeks)")
	r.SubmitGeneration()
	r.Wait()

	s = r.State()
	if s.Phase != PhaseGenerationComplete || s.Curriculum == nil {
		t.Fatalf("phase = %v, notice %q", s.Phase, s.Notice)
	}
	if gotCurr == nil || gotCurr.Title == "" || len(gotCurr.Lessons) == 0 {
		t.Errorf("curriculum = %+v", gotCurr)
	}
}

func TestOptions(t *testing.T) {
	if got := Label(FieldGrade, "5"); got != "Grade 5" {
		t.Errorf("Label(grade, 5) = %q", got)
	}
	if got := Label(FieldGrade, "K"); got != "Kindergarten" {
		t.Errorf("Label(grade, K) = %q", got)
	}
	if got := Label(FieldTopics, "Photosynthesis"); got != "Photosynthesis" {
		t.Errorf("free text label = %q", got)
	}
	if Options(FieldTopics) != nil {
		t.Error("topics is free text")
	}

	found := false
	for _, o := range Options(FieldDuration) {
		if o.Value == "Semester (18 weeks)" {
			found = true
		}
	}
	if !found {
		t.Error("durations missing the semester option")
	}
}

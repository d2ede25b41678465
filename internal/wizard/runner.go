package wizard

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
)

// API is the network side of the wizard, implemented by the HTTP client.
type API interface {
	Research(ctx context.Context, q research.Query, onEvent func(research.Event)) ([]search.Candidate, error)
	GenerateCurriculum(ctx context.Context, req curriculum.GenerateRequest) (*curriculum.Curriculum, error)
}

// Callbacks are invoked by a Runner outside its state lock. They must not
// call back into the Runner synchronously.
type Callbacks struct {
	// OnResearchComplete receives the submitted query and its resources.
	OnResearchComplete func(research.Query, []search.Candidate)

	// OnCurriculumComplete receives the finished curriculum and the query
	// it was built from. This is the persistence boundary.
	OnCurriculumComplete func(research.Query, *curriculum.Curriculum)

	// OnProgress receives research progress events while researching.
	OnProgress func(research.Event)

	// OnChange is called after every dispatch with the state current at
	// delivery. Calls never overlap and never deliver an older state after a
	// newer one; states settled concurrently may be coalesced.
	OnChange func(State)
}

// Runner drives Reduce against an API. Each request runs in its own
// goroutine with a cancellable context; settlements are fed back as events,
// so a response that arrives after a resubmit, reset or cancel is dropped by
// the reducer's request id check.
type Runner struct {
	api API
	cb  Callbacks

	// NewID generates request ids. Tests may replace it.
	NewID func() string

	mu      sync.Mutex
	notify  sync.Mutex // serialises OnChange; never taken while holding mu
	state   State
	cancels map[string]context.CancelFunc
	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a Runner in the initial state.
func NewRunner(api API, cb Callbacks) *Runner {
	ctx, stop := context.WithCancel(context.Background())
	return &Runner{
		api:     api,
		cb:      cb,
		NewID:   uuid.NewString,
		state:   New(),
		cancels: make(map[string]context.CancelFunc),
		ctx:     ctx,
		stop:    stop,
	}
}

// State returns the current state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Edit sets a form field.
func (r *Runner) Edit(f Field, value string) {
	r.Dispatch(FieldEdited{Field: f, Value: value})
}

// SubmitResearch submits the research form with a fresh request id.
func (r *Runner) SubmitResearch() {
	r.Dispatch(ResearchSubmitted{RequestID: r.NewID()})
}

// SubmitGeneration submits the profile form with a fresh request id.
func (r *Runner) SubmitGeneration() {
	r.Dispatch(GenerationSubmitted{RequestID: r.NewID()})
}

// Dispatch reduces ev and performs the resulting effects.
func (r *Runner) Dispatch(ev Event) {
	r.mu.Lock()
	next, effects := Reduce(r.state, ev)
	r.state = next
	r.mu.Unlock()

	if r.cb.OnChange != nil {
		r.notify.Lock()
		r.cb.OnChange(r.State())
		r.notify.Unlock()
	}
	for _, eff := range effects {
		r.perform(eff)
	}
}

func (r *Runner) perform(eff Effect) {
	switch eff := eff.(type) {
	case StartResearch:
		ctx := r.track(eff.RequestID)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer r.untrack(eff.RequestID)

			resources, err := r.api.Research(ctx, eff.Query, func(e research.Event) {
				if r.cb.OnProgress != nil && ctx.Err() == nil {
					r.cb.OnProgress(e)
				}
			})
			if err != nil {
				r.Dispatch(ResearchFailed{RequestID: eff.RequestID, Err: err})
				return
			}
			r.Dispatch(ResearchSucceeded{RequestID: eff.RequestID, Resources: resources})
		}()

	case StartGeneration:
		ctx := r.track(eff.RequestID)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer r.untrack(eff.RequestID)

			c, err := r.api.GenerateCurriculum(ctx, eff.Request)
			if err != nil {
				r.Dispatch(GenerationFailed{RequestID: eff.RequestID, Err: err})
				return
			}
			r.Dispatch(GenerationSucceeded{RequestID: eff.RequestID, Curriculum: c})
		}()

	case CancelInFlight:
		r.mu.Lock()
		cancel := r.cancels[eff.RequestID]
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}

	case ResearchCompleted:
		if r.cb.OnResearchComplete != nil {
			r.cb.OnResearchComplete(eff.Query, eff.Resources)
		}

	case CurriculumCompleted:
		if r.cb.OnCurriculumComplete != nil {
			r.cb.OnCurriculumComplete(eff.Query, eff.Curriculum)
		}
	}
}

func (r *Runner) track(id string) context.Context {
	ctx, cancel := context.WithCancel(r.ctx)
	r.mu.Lock()
	r.cancels[id] = cancel
	r.mu.Unlock()
	return ctx
}

func (r *Runner) untrack(id string) {
	r.mu.Lock()
	cancel := r.cancels[id]
	delete(r.cancels, id)
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until every started request has settled.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close cancels all in-flight requests and waits for them to settle.
func (r *Runner) Close() {
	r.stop()
	r.wg.Wait()
}

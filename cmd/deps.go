package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/client"
	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/library"
	"github.com/atozfamily/homescholar/internal/llm"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/store"
)

// openStore opens the configured database.
func openStore() (*store.Store, error) {
	dsn, err := cfg.StoreDSN()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(cfg.Store.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// pipeline is the in-process research and synthesis stack.
type pipeline struct {
	provider     llm.Provider
	search       search.Provider
	orchestrator *research.Orchestrator
	synthesizer  *curriculum.Synthesizer
}

// buildPipeline wires the LLM provider, search backend, orchestrator and
// synthesizer. LLM calls are recorded in events when it is non-nil.
func buildPipeline(ctx context.Context, events store.EventRepo) (*pipeline, error) {
	provider, err := llm.NewProvider(ctx, cfg.LLM, events, logger.Named("llm"))
	if err != nil {
		return nil, err
	}
	sp, err := search.New(cfg.Search, logger.Named("search"))
	if err != nil {
		return nil, err
	}
	logger.Info("pipeline ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", provider.ModelID()),
		zap.String("search", sp.Name()))

	return &pipeline{
		provider:     provider,
		search:       sp,
		orchestrator: research.NewOrchestrator(provider, sp, cfg.Research, logger.Named("research")),
		synthesizer:  curriculum.NewSynthesizer(provider, cfg.Curriculum, logger.Named("curriculum")),
	}, nil
}

// openLibrary returns the server's library when a server URL is
// configured, else the local database. The returned close func is never nil.
func openLibrary() (library.Library, func(), error) {
	if cfg.Client.ServerURL != "" {
		return &library.Remote{Client: client.New(cfg.Client.ServerURL)}, func() {}, nil
	}
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return &library.Local{Repo: st.CurriculumRepo()}, func() { _ = st.Close() }, nil
}

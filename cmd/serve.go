package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atozfamily/homescholar/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research and curriculum API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := buildPipeline(ctx, st.EventRepo())
		if err != nil {
			return err
		}

		srv := server.New(cfg.Server, server.Deps{
			Research:      p.orchestrator,
			Synthesizer:   p.synthesizer,
			Curricula:     st.CurriculumRepo(),
			Logger:        logger,
			ModelID:       p.provider.ModelID(),
			SearchBackend: p.search.Name(),
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(srv.Run)
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))
			return srv.Shutdown(shutdownTimeout)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

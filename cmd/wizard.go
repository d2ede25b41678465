package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atozfamily/homescholar/internal/app"
	"github.com/atozfamily/homescholar/internal/client"
	"github.com/atozfamily/homescholar/internal/library"
	"github.com/atozfamily/homescholar/internal/screen"
	"github.com/atozfamily/homescholar/internal/screens/home"
	libraryscreen "github.com/atozfamily/homescholar/internal/screens/library"
	wizardscreen "github.com/atozfamily/homescholar/internal/screens/wizard"
	"github.com/atozfamily/homescholar/internal/wizard"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Build a curriculum in the terminal wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard(cmd)
	},
}

func init() {
	wizardCmd.Flags().String("server", "", "Use a running HomeScholar server instead of calling the model directly")
	_ = v.BindPFlag("client.server_url", wizardCmd.Flags().Lookup("server"))
}

// runWizard builds the wizard's API, either a server client or the
// in-process pipeline, and launches the TUI.
func runWizard(cmd *cobra.Command) error {
	var (
		api    wizard.API
		lib    library.Library
		status string
	)
	if cfg.Client.ServerURL != "" {
		c := client.New(cfg.Client.ServerURL)
		api, lib = c, &library.Remote{Client: c}
		status = cfg.Client.ServerURL
	} else {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := buildPipeline(cmd.Context(), st.EventRepo())
		if err != nil {
			return err
		}
		api = &wizard.LocalAPI{Orchestrator: p.orchestrator, Synthesizer: p.synthesizer}
		lib = &library.Local{Repo: st.CurriculumRepo()}
		status = fmt.Sprintf("%s · %s", p.provider.ModelID(), p.search.Name())
	}

	return app.Run(app.Options{
		Screens: home.Factories{
			Wizard: func() screen.Screen {
				return wizardscreen.New(wizardscreen.Deps{
					API:          api,
					Library:      lib,
					MaxToolCalls: cfg.Research.MaxToolCalls,
					Logger:       logger.Named("wizard"),
				})
			},
			Library: func() screen.Screen { return libraryscreen.New(lib) },
		},
		Status: status,
		Logger: logger,
	})
}

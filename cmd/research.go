package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/atozfamily/homescholar/internal/client"
	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/library"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/validation"
	"github.com/atozfamily/homescholar/internal/wizard"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research a subject and print progress as it streams",
	Long: "Research a subject and print progress as it streams. With --child, also write a\n" +
		"curriculum from the results and save it to the library.",
	Example: `  homescholar research --subject Science --grade 5 --topics photosynthesis
  homescholar research --subject Math --grade 3 --topics fractions --child Alex --duration "Quarter (9 weeks)"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		q := research.Query{}
		q.Subject, _ = f.GetString("subject")
		q.Grade, _ = f.GetString("grade")
		q.Topics, _ = f.GetString("topics")

		profile := curriculum.Profile{}
		profile.ChildName, _ = f.GetString("child")
		profile.Duration, _ = f.GetString("duration")
		profile.LearningStyle, _ = f.GetString("style")
		profile.FocusAreas, _ = f.GetString("focus")
		profile.StateRequirements, _ = f.GetString("state-requirements")
		noSave, _ := f.GetBool("no-save")

		if err := q.Validate(); err != nil {
			return describeInvalid(err)
		}

		api, lib, closeAll, err := pipelineAPI(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAll()

		out := cmd.OutOrStdout()
		resources, err := api.Research(cmd.Context(), q, func(ev research.Event) {
			printEvent(out, ev)
		})
		if err != nil {
			return fmt.Errorf("research: %w", err)
		}
		fmt.Fprintf(out, "\n%d resources:\n", len(resources))
		for i, r := range resources {
			fmt.Fprintf(out, "  %2d. %s\n      %s\n", i+1, r.Title, r.URL)
		}

		if profile.ChildName == "" {
			return nil
		}
		if profile.Duration == "" {
			profile.Duration = curriculum.Durations[1].Label
		}

		req := curriculum.GenerateRequest{ResearchQuery: q, ResearchContext: resources, Profile: profile}
		if err := req.Validate(); err != nil {
			return describeInvalid(err)
		}
		fmt.Fprintf(out, "\nWriting a %s curriculum for %s...\n\n", profile.Duration, profile.ChildName)
		doc, err := api.GenerateCurriculum(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("generate curriculum: %w", err)
		}
		fmt.Fprintln(out, curriculum.Format(doc))

		if noSave {
			return nil
		}
		entry, err := lib.Save(cmd.Context(), q, resources, doc)
		if err != nil {
			return fmt.Errorf("save curriculum: %w", err)
		}
		fmt.Fprintf(out, "Saved as %s\n", entry.ID)
		return nil
	},
}

func init() {
	f := researchCmd.Flags()
	f.String("subject", "", "Subject, e.g. Science")
	f.String("grade", "", "Grade level, K or 1-12")
	f.String("topics", "", "Topics of interest")
	f.String("child", "", "Child's name; when set a curriculum is generated")
	f.String("duration", "", "Curriculum length (default \"Semester (18 weeks)\")")
	f.String("style", "", "Learning style, e.g. Visual")
	f.String("focus", "", "Focus areas")
	f.String("state-requirements", "", "State requirements to cover")
	f.Bool("no-save", false, "Do not save the generated curriculum")
}

// pipelineAPI returns the wizard API and library for non-interactive
// commands, backed by the server when one is configured.
func pipelineAPI(ctx context.Context) (wizard.API, library.Library, func(), error) {
	if cfg.Client.ServerURL != "" {
		c := client.New(cfg.Client.ServerURL)
		return c, &library.Remote{Client: c}, func() {}, nil
	}
	st, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := buildPipeline(ctx, st.EventRepo())
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	api := &wizard.LocalAPI{Orchestrator: p.orchestrator, Synthesizer: p.synthesizer}
	return api, &library.Local{Repo: st.CurriculumRepo()}, func() { _ = st.Close() }, nil
}

func printEvent(w io.Writer, ev research.Event) {
	switch ev.Type {
	case research.EventStatus:
		fmt.Fprintf(w, "… %s\n", ev.Message)
	case research.EventToolCall:
		fmt.Fprintf(w, "→ search: %s\n", ev.Query)
	case research.EventToolResult:
		if ev.Unavailable {
			fmt.Fprintln(w, "← search unavailable")
		} else {
			fmt.Fprintf(w, "← %d results\n", ev.Count)
		}
	case research.EventResources:
		for _, warn := range ev.Warnings {
			fmt.Fprintf(w, "! %s\n", warn)
		}
	case research.EventError:
		fmt.Fprintf(w, "✗ %s\n", ev.Message)
	}
}

// describeInvalid turns a validation error into one line per field.
func describeInvalid(err error) error {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return err
	}
	msg := "invalid input:"
	for _, fe := range verr.Fields {
		msg += "\n  " + fe.Field + ": " + fe.Message
	}
	return errors.New(msg)
}

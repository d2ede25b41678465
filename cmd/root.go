package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/config"
	"github.com/atozfamily/homescholar/internal/logging"
)

var (
	v      = config.New()
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "homescholar",
	Short: "Research-backed homeschool curricula",
	Long: "HomeScholar researches a subject with an AI model and a resource search, then writes a\n" +
		"week-by-week curriculum for your child. Run without a subcommand for the terminal wizard.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a config file (default ./homescholar.yaml or ~/.config/homescholar/homescholar.yaml)")
	pf.String("db", "", "Database DSN; a file path for sqlite (overrides HOMESCHOLAR_STORE_DSN)")
	pf.String("log-file", "", "Write JSON logs to this file, rotated")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("provider", "", "LLM provider: anthropic, openai, gemini, openrouter, mock")

	_ = v.BindPFlag("store.dsn", pf.Lookup("db"))
	_ = v.BindPFlag("log.file", pf.Lookup("log-file"))
	_ = v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("llm.provider", pf.Lookup("provider"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(curriculaCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	cfg = loaded

	// The terminal UI owns the screen, so only the file core logs there.
	if isInteractive(cmd) {
		cfg.Log.Quiet = true
	}
	l, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	logger = l
	logger.Debug("configuration loaded",
		zap.String("config_file", v.ConfigFileUsed()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("store_driver", cfg.Store.Driver))
	return nil
}

func isInteractive(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "wizard"
}

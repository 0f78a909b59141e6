// Package commands defines the Cobra commands of the docchat binary.
package commands

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/audit"
	"github.com/54b3r/docchat-go/internal/config"
	"github.com/54b3r/docchat-go/internal/logging"
)

// NewRootCmd constructs the docchat command tree. Before any subcommand runs
// the root loads .env and the YAML config into the environment, builds the
// logger from the result, and stores it in the command context.
func NewRootCmd() *cobra.Command {
	var configPath, logLevel string

	root := &cobra.Command{
		Use:   "docchat",
		Short: "Ask questions about your documents",
		Long: `docchat answers questions from the documents you give it.

Files (PDF, DOCX, XLSX, plain text, Markdown) are split into
overlapping chunks, embedded, and indexed per scope. A question retrieves
the nearest chunks and the configured model answers from them, citing the
files it drew on.

Settings come from the environment, a .env file in the working directory,
and a YAML file (--config, DOCCHAT_CONFIG, ~/.docchat/config.yaml or
./docchat.yaml), in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Variables already set in the shell win over .env.
			_ = godotenv.Load()

			path, err := config.Load(configPath, logging.New())
			if err != nil {
				return err
			}

			if logLevel != "" {
				if err := os.Setenv("LOG_LEVEL", logLevel); err != nil {
					return err
				}
			}
			// Rebuilt so LOG_LEVEL and LOG_FORMAT from the YAML file apply.
			log := logging.New()
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))

			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), path)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file (default: ~/.docchat/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)
	return root
}

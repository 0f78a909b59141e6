package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/assistant"
	"github.com/54b3r/docchat-go/internal/config"
	"github.com/54b3r/docchat-go/internal/ingestion"
	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/tracing"
)

// askScope is the scope ID used for one-shot CLI questions.
const askScope = "cli"

// NewAskCmd constructs the `docchat ask` command, which indexes the given
// files in memory, answers a single question from them, and exits.
func NewAskCmd() *cobra.Command {
	var files []string
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about local files",
		Long: `Index the files given with --file in memory and answer one question
from them. Nothing is persisted: the index and transcript live only for the
duration of the command.

Examples:
  docchat ask --file report.pdf "what was the Q3 revenue?"
  docchat ask -f notes.md -f budget.xlsx "summarise the open items"
  docchat ask --html -f handbook.docx "how many vacation days do I get?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			flush, _, err := tracing.Install(tracing.OptionsFromEnv())
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer flush()

			settings, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			gen, _, err := buildGenerator(ctx, settings)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			emb, err := buildEmbedder(logging.FromContext(ctx))
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			uploadDir, err := os.MkdirTemp("", "docchat-ask-")
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer os.RemoveAll(uploadDir)

			asst, err := assistant.New(assistant.Config{
				Embedder:         emb,
				Generator:        gen,
				NewIndex:         assistant.FlatIndexes,
				UploadDir:        uploadDir,
				ChunkSize:        settings.ChunkSize,
				ChunkOverlap:     chunkOverlap(settings),
				TopK:             settings.TopK,
				SummarySentences: settings.SummarySentences,
				MaxContextTokens: settings.MaxContextTokens,
			})
			if err != nil {
				return fmt.Errorf("ask: failed to initialise assistant: %w", err)
			}
			if _, err := asst.Create(ctx, askScope); err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			if len(files) > 0 {
				batch, err := readFiles(files)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				res, err := asst.Upload(ctx, askScope, batch)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				for _, f := range res.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped %s: %v\n", f.Filename, f.Err)
				}
			}

			answer, err := asst.Query(ctx, askScope, args[0])
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			return printAnswer(cmd.OutOrStdout(), answer, asHTML)
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Document to index before answering (repeatable)")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Print the formatted HTML answer instead of plain text")

	return cmd
}

// readFiles loads each path into an upload batch named by its base name.
func readFiles(paths []string) ([]ingestion.File, error) {
	out := make([]ingestion.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ingestion.File{Name: filepath.Base(p), Data: data})
	}
	return out, nil
}

// printAnswer writes the answer followed by its de-duplicated sources.
func printAnswer(w io.Writer, a *assistant.Answer, asHTML bool) error {
	body := a.Text
	if asHTML {
		body = a.HTML
	}
	if _, err := fmt.Fprintln(w, body); err != nil {
		return err
	}
	if len(a.Citations) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sources:")
	seen := make(map[string]bool, len(a.Citations))
	for _, name := range a.Citations {
		if seen[name] {
			continue
		}
		seen[name] = true
		fmt.Fprintf(w, "  - %s\n", name)
	}
	return nil
}

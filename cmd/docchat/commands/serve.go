package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/assistant"
	"github.com/54b3r/docchat-go/internal/config"
	"github.com/54b3r/docchat-go/internal/embedder"
	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/server"
	"github.com/54b3r/docchat-go/internal/tracing"
)

// NewServeCmd constructs the `docchat serve` command, which starts the HTTP
// server exposing scope management, upload, and query endpoints.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docchat HTTP server",
		Long: `Start the docchat HTTP server.

Each scope is an isolated document collection with its own vector index and
transcript. Clients create a scope, upload files into it, and query it:

  POST   /api/scopes                  create a scope
  GET    /api/scopes/{id}             describe a scope
  DELETE /api/scopes/{id}             delete a scope
  POST   /api/scopes/{id}/documents   upload files (multipart, field "file")
  DELETE /api/scopes/{id}/documents   remove all documents
  POST   /api/scopes/{id}/query       ask a question
  GET    /api/scopes/{id}/history     read the transcript

Examples:
  docchat serve
  docchat serve --port 9090
  INDEX_BACKEND=qdrant MODEL_PROVIDER=openai docchat serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			settings, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			if cmd.Flags().Changed("host") || settings.Host == "" {
				settings.Host = host
			}
			if cmd.Flags().Changed("port") || settings.Port == 0 {
				settings.Port = port
			}

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			flush, traced, err := tracing.Install(tracing.OptionsFromEnv())
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer flush()
			log.Info("langfuse tracing", slog.Bool("enabled", traced))

			gen, providerCfg, err := buildGenerator(ctx, settings)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("provider initialised",
				slog.String("provider", string(providerCfg.Backend)),
				slog.String("model", gen.Model()),
			)

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("embedder initialised",
				slog.String("backend", embedder.ResolveBackend()),
				slog.Int("dimensions", emb.Dimensions()),
			)

			newIndex, qc, err := buildIndexFactory(settings, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			if qc != nil {
				defer func() { _ = qc.Close() }()
			}

			transcript, closeTranscript := openTranscript(settings, log)
			defer closeTranscript()

			asst, err := assistant.New(assistant.Config{
				Embedder:         emb,
				Generator:        gen,
				NewIndex:         newIndex,
				Transcript:       transcript,
				UploadDir:        settings.UploadDir,
				ChunkSize:        settings.ChunkSize,
				ChunkOverlap:     chunkOverlap(settings),
				TopK:             settings.TopK,
				SummarySentences: settings.SummarySentences,
				MaxContextTokens: settings.MaxContextTokens,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise assistant: %w", err)
			}

			srv, err := server.New(asst, &server.Config{
				Host:           settings.Host,
				Port:           settings.Port,
				Logger:         log,
				Pingers:        buildPingers(gen, providerCfg, emb, qc),
				RateLimit:      settings.RateLimit,
				RateBurst:      settings.RateBurst,
				APIKey:         settings.APIKey,
				MaxUploadBytes: settings.MaxUploadBytes,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (overrides DOCCHAT_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (overrides DOCCHAT_PORT)")

	return cmd
}

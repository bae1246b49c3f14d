package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ocrrelay/internal/logger"
	"ocrrelay/internal/ocr"
	"ocrrelay/internal/server"
	"ocrrelay/internal/source"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the OCR relay HTTP server",
	Long: `Start the HTTP server exposing:

  GET  /health    liveness probe, no authentication
  POST /ocr-pdf   OCR a document, requires the x-api-key header

Required environment variables:
  API_KEY - shared secret expected in the x-api-key header

The server stops gracefully on SIGINT or SIGTERM, waiting up to
SHUTDOWN_TIMEOUT for in-flight requests.`,
	Example: `  # Listen on the port from PORT (default 8000)
  ocrrelay serve

  # Override the port
  ocrrelay serve --port 9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := source.NewStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create file store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close file store")
		}
	}()

	engine, err := ocr.NewEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create OCR engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR engine")
		}
	}()

	acquirer := source.NewAcquirer(store, source.Config{
		FetchTimeout: cfg.FetchTimeout,
		MaxBytes:     cfg.MaxDocumentBytes,
	})
	handlers := server.NewHandlers(acquirer, ocr.Limit(engine, cfg.MaxConcurrentJobs), cfg.MaxDocumentBytes)

	log.Info().
		Str("addr", cfg.Addr()).
		Str("engine", engine.Name()).
		Str("store", store.Name()).
		Int("max_jobs", cfg.MaxConcurrentJobs).
		Int64("max_bytes", cfg.MaxDocumentBytes).
		Str("version", version).
		Msg("Starting OCR relay")

	srv := server.New(cfg.Addr(), server.NewRouter(handlers, cfg.APIKey), cfg.ShutdownTimeout)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info().Msg("OCR relay stopped")
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ocrrelay/internal/config"
	"ocrrelay/internal/logger"
)

var version = "1.0.0"

// appConfig is the configuration loaded by main, nil when loading failed.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "ocrrelay",
	Short: "OCR relay - extract text from PDF documents",
	Long: `ocrrelay accepts PDF documents over HTTP, runs them through an OCR
engine and returns the extracted plain text.

Documents can be sent as a raw application/pdf body, as inline base64, or
as the id of a file held in Google Drive or a Cloud Storage bucket. The
default engine shells out to ocrmypdf and pdftotext.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command with cfg as the application configuration.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	appConfig = cfg

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// loadedConfig returns the configuration loaded at startup, reloading it to
// surface the original error when startup loading failed.
func loadedConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	appConfig = cfg
	return cfg, nil
}

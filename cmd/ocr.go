package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrrelay/internal/logger"
	"ocrrelay/internal/ocr"
	"ocrrelay/internal/source"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [pdf-file]",
	Short: "Extract text from a local PDF with the configured OCR engine",
	Long: `Run a local PDF file through the same OCR engine the server uses and
print the extracted text.

The engine is chosen by OCR_ENGINE:
  local      - ocrmypdf followed by pdftotext (default)
  vision     - Google Cloud Vision document text detection (up to 5 pages, 20MB)
  documentai - Google Document AI OCR processor

The cloud engines need GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.`,
	Example: `  # Extract text from scan.pdf to stdout
  ocrrelay ocr scan.pdf

  # Save extracted text to file
  ocrrelay ocr scan.pdf -o extracted.txt

  # Include metadata and output as JSON
  ocrrelay ocr scan.pdf --json -o result.json

  # Process with custom timeout
  ocrrelay ocr large-document.pdf --timeout 600`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	Text               string    `json:"text"`
	Length             int       `json:"length"`
	PageCount          int       `json:"page_count,omitempty"`
	Engine             string    `json:"engine"`
	ProcessedAt        time.Time `json:"processed_at,omitempty"`
	ProcessingDuration string    `json:"processing_duration,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().BoolP("metadata", "m", false, "Include metadata in output")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	if timeoutSecs <= 0 {
		return fmt.Errorf("--timeout must be positive, got %d", timeoutSecs)
	}

	cfg, err := loadedConfig()
	if err != nil {
		return err
	}

	pdfPath := args[0]
	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Str("engine", cfg.Engine).
		Bool("json", jsonOutput).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR processing")

	fileInfo, err := validatePDFFile(pdfPath, cfg.MaxDocumentBytes, log)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to read PDF file: %w", err)
	}
	if err := source.ValidatePDF(data); err != nil {
		log.Error().Str("file", pdfPath).Msg("File does not start with a PDF signature")
		return fmt.Errorf("%s: %w", pdfPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	engine, err := ocr.NewEngine(ctx, cfg)
	if err != nil {
		return handleOCRError(err, log)
	}
	defer func() {
		if closeErr := engine.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR engine")
		}
	}()

	result, err := engine.Recognize(ctx, data)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Str("engine", result.Engine).
		Int("page_count", result.PageCount).
		Dur("duration", result.ProcessingDuration).
		Int("text_length", result.Length).
		Msg("OCR processing completed successfully")

	return outputResults(result, fileInfo, outputPath, jsonOutput, includeMetadata, log)
}

// validatePDFFile checks if the file exists, is readable and fits the size limit
func validatePDFFile(pdfPath string, maxBytes int64, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("PDF file not found")
			return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("Permission denied accessing PDF file")
			return nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}

	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().
			Str("file", pdfPath).
			Msg("File does not have .pdf extension")
	}

	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}

	if maxBytes > 0 && fileInfo.Size() > maxBytes {
		log.Error().
			Str("file", pdfPath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", maxBytes).
			Msg("PDF file exceeds maximum size limit")
		return nil, fmt.Errorf("PDF file too large (%d bytes), maximum is %d bytes (MAX_DOCUMENT_BYTES)",
			fileInfo.Size(), maxBytes)
	}

	return fileInfo, nil
}

// handleOCRError turns engine failures into actionable messages
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	switch {
	case errors.Is(err, ocr.ErrRecognitionTimeout), errors.Is(err, ocr.ErrExtractionTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out, try increasing --timeout or RECOGNITION_TIMEOUT: %w", err)
	case errors.Is(err, ocr.ErrContextCanceled), errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrPDFTooLarge):
		return fmt.Errorf("PDF file is too large for the vision engine (maximum 20MB): %w", err)
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages for the vision engine (maximum 5 pages), try OCR_ENGINE=local: %w", err)
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials not configured, set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %w", err)
	case errors.Is(err, ocr.ErrRecognitionFailed), errors.Is(err, ocr.ErrExtractionFailed):
		return fmt.Errorf("OCR tool failed, check that ocrmypdf and pdftotext are installed: %w", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}

// outputResults formats and outputs the OCR results
func outputResults(result *ocr.Result, fileInfo os.FileInfo, outputPath string, jsonOutput, includeMetadata bool, log zerolog.Logger) error {
	var outputData []byte

	if jsonOutput {
		var err error
		outputData, err = json.MarshalIndent(OCROutput{
			Text:               result.Text,
			Length:             result.Length,
			PageCount:          result.PageCount,
			Engine:             result.Engine,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		var output strings.Builder
		if includeMetadata {
			fmt.Fprintf(&output, "=== OCR Results for %s ===\n", filepath.Base(fileInfo.Name()))
			fmt.Fprintf(&output, "File size: %d bytes\n", fileInfo.Size())
			fmt.Fprintf(&output, "Engine: %s\n", result.Engine)
			if result.PageCount > 0 {
				fmt.Fprintf(&output, "Pages processed: %d\n", result.PageCount)
			}
			fmt.Fprintf(&output, "Processing time: %v\n", result.ProcessingDuration)
			fmt.Fprintf(&output, "Processed at: %s\n", result.ProcessedAt.Format(time.RFC3339))
			output.WriteString("\n=== Extracted Text ===\n\n")
		}
		output.WriteString(result.Text)
		output.WriteString("\n")
		outputData = []byte(output.String())
	}

	if outputPath == "" {
		if _, err := os.Stdout.Write(outputData); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, outputData, 0o644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(outputData)).
		Msg("OCR results written to file")
	return nil
}

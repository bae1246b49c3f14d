package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ocrrelay/internal/logger"
)

const (
	// DefaultRecognitionTimeout bounds a single ocrmypdf run.
	DefaultRecognitionTimeout = 120 * time.Second

	// DefaultExtractionTimeout bounds a single pdftotext run.
	DefaultExtractionTimeout = 60 * time.Second

	// waitDelay bounds how long Wait blocks on pipes after the process group is killed.
	waitDelay = 5 * time.Second

	maxDiagnosticBytes = 2048
)

// PipelineConfig configures the local ocrmypdf + pdftotext engine.
type PipelineConfig struct {
	ScratchDir         string
	OCRMyPDFPath       string
	PdfToTextPath      string
	Language           string
	Optimize           int
	RecognitionTimeout time.Duration
	ExtractionTimeout  time.Duration
}

// Pipeline implements Engine with the ocrmypdf and pdftotext command line tools.
type Pipeline struct {
	cfg PipelineConfig
	log zerolog.Logger
}

// NewPipeline creates a local engine, filling unset fields with defaults.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if cfg.OCRMyPDFPath == "" {
		cfg.OCRMyPDFPath = "ocrmypdf"
	}
	if cfg.PdfToTextPath == "" {
		cfg.PdfToTextPath = "pdftotext"
	}
	if cfg.Language == "" {
		cfg.Language = "pol"
	}
	if cfg.RecognitionTimeout <= 0 {
		cfg.RecognitionTimeout = DefaultRecognitionTimeout
	}
	if cfg.ExtractionTimeout <= 0 {
		cfg.ExtractionTimeout = DefaultExtractionTimeout
	}
	return &Pipeline{
		cfg: cfg,
		log: logger.WithComponent("pipeline"),
	}
}

// Name implements Engine.
func (p *Pipeline) Name() string { return EngineLocal }

// Close implements Engine.
func (p *Pipeline) Close() error { return nil }

// CheckTools reports which of the external binaries cannot be found.
func (p *Pipeline) CheckTools() error {
	var errs []error
	for _, bin := range []string{p.cfg.OCRMyPDFPath, p.cfg.PdfToTextPath} {
		if _, err := exec.LookPath(bin); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recognize implements Engine. The scratch files are removed before it
// returns on every path.
func (p *Pipeline) Recognize(ctx context.Context, pdf []byte) (*Result, error) {
	const op = "Recognize"
	started := time.Now()

	if !hasPDFSignature(pdf) {
		return nil, NewOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	log := p.log
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		log = l.With().Str("component", "pipeline").Logger()
	}

	scratch, err := NewScratch(p.cfg.ScratchDir, pdf, log)
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	defer scratch.Close()

	log = log.With().Str("scratch_id", scratch.ID).Logger()
	log.Debug().Int("bytes", len(pdf)).Msg("Running OCR")

	if _, err := p.run(ctx, "recognize", p.cfg.RecognitionTimeout, ErrRecognitionFailed, ErrRecognitionTimeout,
		p.cfg.OCRMyPDFPath,
		"-l", p.cfg.Language,
		"--skip-text",
		"--optimize", strconv.Itoa(p.cfg.Optimize),
		scratch.InputPath,
		scratch.OutputPath,
	); err != nil {
		return nil, err
	}

	log.Debug().Msg("Extracting text")
	stdout, err := p.run(ctx, "extractText", p.cfg.ExtractionTimeout, ErrExtractionFailed, ErrExtractionTimeout,
		p.cfg.PdfToTextPath,
		"-enc", "UTF-8",
		scratch.OutputPath,
		"-",
	)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(stdout))

	pages, err := CountPages(scratch.OutputPath)
	if err != nil {
		log.Debug().Err(err).Msg("Could not count pages")
	}

	result := newResult(EngineLocal, text, pages, started)
	log.Info().
		Int("length", result.Length).
		Int("pages", pages).
		Dur("duration", result.ProcessingDuration).
		Msg("OCR finished")
	return result, nil
}

// run executes bin under its own deadline and classifies the outcome as
// success, timeout, caller cancellation or tool failure.
func (p *Pipeline) run(ctx context.Context, op string, timeout time.Duration, failed, timedOut error, bin string, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, args...)
	isolate(cmd)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	switch {
	case err == nil:
		return stdout.Bytes(), nil
	case ctx.Err() != nil:
		return nil, contextError(op, ctx, timedOut)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return nil, NewOCRError(op, timedOut, fmt.Sprintf("%s did not finish within %s", filepath.Base(bin), timeout))
	default:
		return nil, NewOCRError(op, failed, diagnostic(bin, err, stderr.Bytes()))
	}
}

// diagnostic renders the exit status and the tail of stderr.
func diagnostic(bin string, err error, stderr []byte) string {
	msg := strings.TrimSpace(string(stderr))
	if len(msg) > maxDiagnosticBytes {
		msg = "..." + msg[len(msg)-maxDiagnosticBytes:]
	}
	if msg == "" {
		return fmt.Sprintf("%s: %v", filepath.Base(bin), err)
	}
	return fmt.Sprintf("%s: %v: %s", filepath.Base(bin), err, msg)
}

package ocr

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"ocrrelay/internal/config"
	"ocrrelay/internal/logger"
)

// NewEngine builds the engine selected by cfg.Engine.
func NewEngine(ctx context.Context, cfg *config.Config) (Engine, error) {
	switch cfg.Engine {
	case config.EngineLocal, "":
		p := NewPipeline(PipelineConfig{
			ScratchDir:         cfg.ScratchDir,
			OCRMyPDFPath:       cfg.OCRMyPDFPath,
			PdfToTextPath:      cfg.PdfToTextPath,
			Language:           cfg.OCRLanguage,
			Optimize:           cfg.OCROptimize,
			RecognitionTimeout: cfg.RecognitionTimeout,
			ExtractionTimeout:  cfg.ExtractionTimeout,
		})
		if err := p.CheckTools(); err != nil {
			log := logger.WithComponent("pipeline")
			log.Warn().Err(err).Msg("OCR tools not found on PATH, requests will fail")
		}
		return p, nil
	case config.EngineVision:
		return NewGoogleVisionEngine(ctx)
	case config.EngineDocumentAI:
		return NewDocumentAIEngine(ctx, DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
			Timeout:     cfg.RecognitionTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}
}

// Limited wraps an Engine so that at most n Recognize calls run at once.
type Limited struct {
	Engine
	sem *semaphore.Weighted
}

// Limit returns e guarded by a weighted semaphore of size n.
func Limit(e Engine, n int) *Limited {
	if n < 1 {
		n = 1
	}
	return &Limited{Engine: e, sem: semaphore.NewWeighted(int64(n))}
}

// Recognize waits for a free slot, giving up when ctx is done.
func (l *Limited) Recognize(ctx context.Context, pdf []byte) (*Result, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, NewOCRError("Recognize", ErrContextCanceled, err.Error())
	}
	defer l.sem.Release(1)
	return l.Engine.Recognize(ctx, pdf)
}

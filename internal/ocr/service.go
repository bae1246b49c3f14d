// Package ocr turns validated PDF bytes into plain text.
//
// The default engine is a local tool chain: ocrmypdf embeds a text layer into
// the document, then pdftotext dumps that layer as UTF-8. Every job works on
// its own pair of scratch files which are removed before the job returns,
// whether it succeeded or not.
//
// Two cloud engines share the same interface:
//   - vision: Google Cloud Vision document text detection (up to 5 pages, 20MB)
//   - documentai: a Google Document AI OCR processor
//
// Required Environment Variables for the cloud engines:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID: for documentai
package ocr

import (
	"context"
	"time"
)

// Engine names reported in Result.Engine.
const (
	EngineLocal      = "ocrmypdf"
	EngineVision     = "google-vision"
	EngineDocumentAI = "document-ai"
)

// Engine defines the interface for OCR text extraction backends.
type Engine interface {
	// Recognize extracts the text of a PDF document.
	// The returned text is trimmed of surrounding whitespace.
	Recognize(ctx context.Context, pdf []byte) (*Result, error)

	// Name identifies the engine in responses and logs.
	Name() string

	// Close releases any client held by the engine.
	Close() error
}

// Result contains the results of OCR processing with metadata.
type Result struct {
	// Text is the extracted text content from all pages, concatenated in reading order.
	Text string `json:"text"`

	// Length is the byte length of Text.
	Length int `json:"length"`

	// PageCount is the number of pages in the document, 0 when unknown.
	PageCount int `json:"page_count,omitempty"`

	// Engine is the name of the engine that produced Text.
	Engine string `json:"engine"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

func newResult(engine, text string, pages int, started time.Time) *Result {
	now := time.Now()
	return &Result{
		Text:               text,
		Length:             len(text),
		PageCount:          pages,
		Engine:             engine,
		ProcessedAt:        now,
		ProcessingDuration: now.Sub(started),
	}
}

// hasPDFSignature reports whether data starts with the %PDF magic bytes.
func hasPDFSignature(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}

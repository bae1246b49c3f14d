package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocumentAIConfig identifies the Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Timeout     time.Duration
}

// ProcessorName returns the full resource name of the processor.
func (c DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIEngine implements Engine using a Google Document AI OCR processor.
type DocumentAIEngine struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
}

// NewDocumentAIEngine creates the engine with credentials from environment.
func NewDocumentAIEngine(ctx context.Context, config DocumentAIConfig) (*DocumentAIEngine, error) {
	const op = "NewDocumentAIEngine"

	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRecognitionTimeout
	}

	// Regional processors live behind regional endpoints.
	var clientOptions []option.ClientOption
	if config.Location != "us" {
		clientOptions = append(clientOptions, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)))
	}
	creds := credentialOptions()
	clientOptions = append(clientOptions, creds...)

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(creds) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIEngine{client: client, config: config}, nil
}

// Name implements Engine.
func (d *DocumentAIEngine) Name() string { return EngineDocumentAI }

// Recognize implements Engine.
func (d *DocumentAIEngine) Recognize(ctx context.Context, pdf []byte) (*Result, error) {
	const op = "Recognize"
	started := time.Now()

	if !hasPDFSignature(pdf) {
		return nil, NewOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	resp, err := d.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: d.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdf,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, contextError(op, ctx, ErrRecognitionTimeout)
		case processCtx.Err() != nil:
			return nil, NewOCRError(op, ErrRecognitionTimeout, fmt.Sprintf("Document AI did not answer within %s", d.config.Timeout))
		default:
			return nil, NewOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
		}
	}
	if resp.Document == nil {
		return nil, NewOCRError(op, ErrOCRFailed, "no document in response")
	}

	text := strings.TrimSpace(resp.Document.Text)
	if text == "" {
		return nil, NewOCRError(op, ErrEmptyDocument, "")
	}
	return newResult(EngineDocumentAI, text, len(resp.Document.Pages), started), nil
}

// Close closes the underlying Document AI client.
func (d *DocumentAIEngine) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous Vision processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous Vision processing
	MaxPagesSync = 5
)

// credentialOptions picks Google credentials from the environment: inline
// JSON first, then a credentials file. Nil means Application Default Credentials.
func credentialOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}

// GoogleVisionEngine implements Engine using Google Cloud Vision API.
type GoogleVisionEngine struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionEngine creates a Vision engine with credentials from environment.
func NewGoogleVisionEngine(ctx context.Context) (*GoogleVisionEngine, error) {
	const op = "NewGoogleVisionEngine"

	opts := credentialOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}
	return &GoogleVisionEngine{client: client}, nil
}

// Name implements Engine.
func (g *GoogleVisionEngine) Name() string { return EngineVision }

// Recognize implements Engine.
func (g *GoogleVisionEngine) Recognize(ctx context.Context, pdf []byte) (*Result, error) {
	const op = "Recognize"
	started := time.Now()

	if len(pdf) > MaxFileSizeBytes {
		return nil, NewOCRError(op, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(pdf)))
	}
	if !hasPDFSignature(pdf) {
		return nil, NewOCRError(op, ErrInvalidPDF, "missing PDF header")
	}
	// An unreadable page tree is left for Vision to judge.
	if pages, err := CountPagesBytes(pdf); err == nil && pages > MaxPagesSync {
		return nil, NewOCRError(op, ErrTooManyPages, fmt.Sprintf("document has %d pages", pages))
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdf,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(op, ctx, ErrRecognitionTimeout)
		}
		return nil, NewOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, NewOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, NewOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	text, err := visionText(fileResp)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}
	return newResult(EngineVision, text, len(fileResp.Responses), started), nil
}

// visionText joins the full-text annotation of every page, separated by form feeds
// the way pdftotext separates pages.
func visionText(fileResp *visionpb.AnnotateFileResponse) (string, error) {
	if len(fileResp.Responses) == 0 {
		return "", ErrEmptyDocument
	}

	var all strings.Builder
	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return "", fmt.Errorf("error processing page %d: %s", pageIdx+1, page.Error.Message)
		}
		if pageIdx > 0 {
			all.WriteString("\n\f")
		}
		if page.FullTextAnnotation != nil {
			all.WriteString(page.FullTextAnnotation.Text)
		}
	}

	text := strings.TrimSpace(all.String())
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionEngine) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

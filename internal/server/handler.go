package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ocrrelay/internal/logger"
	"ocrrelay/internal/ocr"
	"ocrrelay/internal/source"
)

// Acquirer resolves a source request into PDF bytes.
type Acquirer interface {
	Acquire(ctx context.Context, req source.Request) (*source.Document, error)
}

// Recognizer extracts text from PDF bytes.
type Recognizer interface {
	Recognize(ctx context.Context, pdf []byte) (*ocr.Result, error)
}

// jsonOverhead leaves room for field names and the access token around a
// base64 payload.
const jsonOverhead = 64 * 1024

type Handlers struct {
	acquirer Acquirer
	engine   Recognizer
	maxBytes int64
}

// NewHandlers creates the OCR handlers. maxBytes bounds the decoded document size.
func NewHandlers(acquirer Acquirer, engine Recognizer, maxBytes int64) *Handlers {
	if maxBytes <= 0 {
		maxBytes = source.DefaultMaxBytes
	}
	return &Handlers{acquirer: acquirer, engine: engine, maxBytes: maxBytes}
}

// Register mounts the handlers on a router already scoped to /ocr-pdf.
func (h *Handlers) Register(mx chi.Router) {
	mx.Post("/", h.OCRPDF)
}

// OCRRequest is the JSON form of an OCR request.
type OCRRequest struct {
	FileData    string `json:"file_data"`
	FileID      string `json:"file_id"`
	AccessToken string `json:"access_token"`
}

// OCRResponse is returned on success.
type OCRResponse struct {
	Text      string      `json:"text"`
	Status    string      `json:"status"`
	Length    int         `json:"length"`
	Source    source.Kind `json:"source"`
	FileID    string      `json:"file_id,omitempty"`
	PageCount int         `json:"page_count,omitempty"`
	Engine    string      `json:"engine"`
}

func (h *Handlers) OCRPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.WithContext(ctx)

	req, err := h.decodeRequest(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	doc, err := h.acquirer.Acquire(ctx, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	log.Info().
		Str("source", string(doc.Kind)).
		Str("file_id", doc.FileID).
		Int("bytes", len(doc.Data)).
		Msg("Document acquired")

	result, err := h.engine.Recognize(ctx, doc.Data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	log.Info().
		Str("engine", result.Engine).
		Int("length", result.Length).
		Int("pages", result.PageCount).
		Dur("ocr_duration", result.ProcessingDuration).
		Msg("Document recognized")

	respondJSON(w, r, http.StatusOK, OCRResponse{
		Text:      result.Text,
		Status:    statusSuccess,
		Length:    result.Length,
		Source:    doc.Kind,
		FileID:    doc.FileID,
		PageCount: result.PageCount,
		Engine:    result.Engine,
	})
}

var errMalformedJSON = errors.New("malformed JSON body")

// decodeRequest picks the source mode. A body typed application/pdf is taken
// verbatim; anything else must be a JSON OCRRequest.
func (h *Handlers) decodeRequest(w http.ResponseWriter, r *http.Request) (source.Request, error) {
	if isPDFContent(r.Header.Get("Content-Type")) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
		if err != nil {
			return source.Request{}, bodyError(err)
		}
		return source.Request{Kind: source.KindBinary, Data: data}, nil
	}

	var body OCRRequest
	limit := h.maxBytes/3*4 + jsonOverhead
	br := bufio.NewReader(http.MaxBytesReader(w, r.Body, limit))
	if head, _ := br.Peek(4); string(head) == "%PDF" {
		return source.Request{}, fmt.Errorf("%w (got a PDF body without Content-Type: application/pdf)", source.ErrNoSource)
	}
	if err := json.NewDecoder(br).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return source.Request{}, source.ErrNoSource
		}
		return source.Request{}, bodyError(err)
	}

	switch {
	case strings.TrimSpace(body.FileData) != "":
		return source.Request{Kind: source.KindBase64, Encoded: body.FileData}, nil
	case strings.TrimSpace(body.FileID) != "":
		return source.Request{
			Kind:        source.KindFileID,
			FileID:      strings.TrimSpace(body.FileID),
			AccessToken: strings.TrimSpace(body.AccessToken),
		}, nil
	default:
		return source.Request{}, source.ErrNoSource
	}
}

func isPDFContent(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/pdf"
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: request body exceeds %d bytes", source.ErrDocumentTooLarge, maxErr.Limit)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("%w: %v: %w", errMalformedJSON, err, source.ErrNoSource)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", errMalformedJSON, err)
	}
	return fmt.Errorf("failed to read request body: %w", err)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	event := logger.WithContext(r.Context()).Error()
	if code < http.StatusInternalServerError {
		event = logger.WithContext(r.Context()).Warn()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ocr.ErrContextCanceled) {
		event = logger.WithContext(r.Context()).Info()
	}
	event.Err(err).Int("status", code).Msg("OCR request failed")
	respondError(w, r, code, err.Error())
}

// statusFor maps pipeline errors to HTTP status codes. Anything the client
// could fix by sending different input is a 4xx.
func statusFor(err error) int {
	switch {
	case errors.Is(err, source.ErrDocumentTooLarge), errors.Is(err, ocr.ErrPDFTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errMalformedJSON),
		errors.Is(err, source.ErrNoSource),
		errors.Is(err, source.ErrEmptyDocument),
		errors.Is(err, source.ErrInvalidEncoding),
		errors.Is(err, source.ErrNotPDF),
		errors.Is(err, ocr.ErrInvalidPDF),
		errors.Is(err, ocr.ErrTooManyPages):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

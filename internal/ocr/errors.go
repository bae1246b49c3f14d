package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrInvalidPDF is returned when the data does not start with the %PDF signature.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrPDFTooLarge is returned when the PDF exceeds the engine's size limit.
	ErrPDFTooLarge = errors.New("PDF file size exceeds the maximum limit")

	// ErrTooManyPages is returned when the PDF has too many pages for synchronous processing.
	ErrTooManyPages = errors.New("PDF has too many pages for synchronous processing")

	// ErrScratch is returned when the scratch files cannot be created or written.
	ErrScratch = errors.New("scratch file setup failed")

	// ErrRecognitionFailed is returned when ocrmypdf exits with a non-zero status.
	ErrRecognitionFailed = errors.New("OCR recognition failed")

	// ErrRecognitionTimeout is returned when ocrmypdf exceeds its deadline.
	ErrRecognitionTimeout = errors.New("OCR recognition timeout")

	// ErrExtractionFailed is returned when pdftotext exits with a non-zero status.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrExtractionTimeout is returned when pdftotext exceeds its deadline.
	ErrExtractionTimeout = errors.New("text extraction timeout")

	// ErrOCRFailed is returned when a cloud OCR API fails to process the document.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when no Google Cloud credentials can be found.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrEmptyDocument is returned by cloud engines when the PDF contains no readable text.
	ErrEmptyDocument = errors.New("document contains no readable text")

	// ErrContextCanceled is returned when the caller goes away during processing.
	ErrContextCanceled = errors.New("OCR processing was canceled")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "Recognize", "extractText").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure, such as tool stderr.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %v: %s", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewOCRError(op, err, details)
}

// IsTimeout reports whether err is one of the deadline errors of the pipeline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrRecognitionTimeout) || errors.Is(err, ErrExtractionTimeout)
}

// contextError reports why the caller's ctx ended. An expired caller deadline
// is reported as timedOut so it reads as a timeout, not a cancellation.
func contextError(op string, ctx context.Context, timedOut error) *OCRError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewOCRError(op, timedOut, "caller deadline exceeded")
	}
	return NewOCRError(op, ErrContextCanceled, ctx.Err().Error())
}

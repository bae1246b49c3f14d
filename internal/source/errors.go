package source

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSource is returned when a request carries none of the accepted document sources.
	ErrNoSource = errors.New("no document source: send Content-Type: application/pdf with a binary body, JSON {\"file_data\": <base64>}, or JSON {\"file_id\": <id>}")

	// ErrEmptyDocument is returned when the resolved document has no bytes.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrInvalidEncoding is returned when file_data is not valid base64.
	ErrInvalidEncoding = errors.New("file_data is not valid base64")

	// ErrNotPDF is returned when the resolved bytes do not start with the %PDF signature.
	ErrNotPDF = errors.New("content is not a PDF document (missing %PDF signature)")

	// ErrDocumentTooLarge is returned when the document exceeds the configured size limit.
	ErrDocumentTooLarge = errors.New("document exceeds the maximum size")

	// ErrFetchFailed is returned when the remote file store does not deliver the file.
	ErrFetchFailed = errors.New("remote file retrieval failed")

	// ErrFetchTimeout is returned when the remote file store does not answer in time.
	ErrFetchTimeout = errors.New("remote file retrieval timeout")
)

// FetchError carries the upstream outcome of a remote retrieval.
type FetchError struct {
	// FileID is the identifier that was requested.
	FileID string

	// StatusCode is the upstream HTTP status, 0 when no response arrived.
	StatusCode int

	// Message is the upstream diagnostic.
	Message string

	// Err is ErrFetchFailed or ErrFetchTimeout.
	Err error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "source: fetch %q: %v", e.FileID, e.Err)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (upstream status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Package source resolves the PDF bytes a request refers to: a raw body, an
// inline base64 payload, or a file held by a remote file store.
package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ocrrelay/internal/logger"
)

// Kind names the mode a document arrived in. Its value is reported back to clients.
type Kind string

const (
	KindBinary Kind = "binary"
	KindBase64 Kind = "base64"
	KindFileID Kind = "file_id"
)

// Request identifies exactly one document source.
type Request struct {
	Kind Kind

	// Data is the raw body for KindBinary.
	Data []byte

	// Encoded is the base64 payload for KindBase64.
	Encoded string

	// FileID and AccessToken address the remote file for KindFileID.
	// AccessToken is optional.
	FileID      string
	AccessToken string
}

// Document is a validated PDF ready for OCR.
type Document struct {
	Kind   Kind
	FileID string
	Data   []byte
}

// FileStore opens remote files by identifier.
type FileStore interface {
	// Open starts reading the file. accessToken, when set, is used as a bearer
	// credential instead of the store's own.
	Open(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error)

	// Name identifies the store in logs.
	Name() string

	Close() error
}

const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxBytes     = 50 * 1024 * 1024
)

// Config bounds acquisition.
type Config struct {
	FetchTimeout time.Duration
	MaxBytes     int64
}

// Acquirer turns a Request into a Document.
type Acquirer struct {
	store FileStore
	cfg   Config
}

// NewAcquirer creates an Acquirer. store may be nil when remote retrieval is not needed.
func NewAcquirer(store FileStore, cfg Config) *Acquirer {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Acquirer{store: store, cfg: cfg}
}

// Acquire resolves req into validated PDF bytes.
func (a *Acquirer) Acquire(ctx context.Context, req Request) (*Document, error) {
	var (
		data []byte
		err  error
	)
	switch req.Kind {
	case KindBinary:
		data = req.Data
	case KindBase64:
		data, err = DecodeBase64(req.Encoded)
	case KindFileID:
		data, err = a.fetch(ctx, req.FileID, req.AccessToken)
	default:
		err = ErrNoSource
	}
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if int64(len(data)) > a.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrDocumentTooLarge, len(data), a.cfg.MaxBytes)
	}
	if err := ValidatePDF(data); err != nil {
		return nil, err
	}

	return &Document{Kind: req.Kind, FileID: req.FileID, Data: data}, nil
}

func (a *Acquirer) fetch(ctx context.Context, fileID, accessToken string) ([]byte, error) {
	if a.store == nil {
		return nil, &FetchError{FileID: fileID, Err: ErrFetchFailed, Message: "no file store configured"}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	log := logger.WithContext(ctx).With().
		Str("component", "acquirer").
		Str("store", a.store.Name()).
		Str("file_id", fileID).
		Logger()
	log.Debug().Bool("bearer", accessToken != "").Msg("Fetching remote file")

	timedOut := func() bool {
		return ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded)
	}

	rc, err := a.store.Open(fetchCtx, fileID, accessToken)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("source: fetch %q: %w", fileID, ctx.Err())
		}
		if timedOut() {
			return nil, &FetchError{FileID: fileID, Err: ErrFetchTimeout, Message: fmt.Sprintf("no answer within %s", a.cfg.FetchTimeout)}
		}
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, &FetchError{FileID: fileID, Err: ErrFetchFailed, Message: err.Error()}
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, a.cfg.MaxBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("source: fetch %q: %w", fileID, ctx.Err())
		}
		if timedOut() {
			return nil, &FetchError{FileID: fileID, Err: ErrFetchTimeout, Message: fmt.Sprintf("download did not finish within %s", a.cfg.FetchTimeout)}
		}
		return nil, &FetchError{FileID: fileID, Err: ErrFetchFailed, Message: err.Error()}
	}
	if int64(len(data)) > a.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: remote file is larger than %d bytes", ErrDocumentTooLarge, a.cfg.MaxBytes)
	}

	log.Debug().Int("bytes", len(data)).Msg("Fetched remote file")
	return data, nil
}

// DecodeBase64 decodes an inline payload. It tolerates whitespace, a data URL
// prefix, missing padding and the URL-safe alphabet.
func DecodeBase64(encoded string) ([]byte, error) {
	s := strings.TrimSpace(encoded)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 || !strings.HasSuffix(s[:i], ";base64") {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidEncoding)
		}
		s = s[i+1:]
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, ErrEmptyDocument
	}

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, firstErr)
}

// ValidatePDF checks the leading bytes for the PDF signature.
func ValidatePDF(data []byte) error {
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		return ErrNotPDF
	}
	return nil
}

package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

var samplePDF = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF\n")

func TestDecodeBase64(t *testing.T) {
	std := base64.StdEncoding.EncodeToString(samplePDF)

	cases := map[string]string{
		"standard":      std,
		"wrapped":       std[:10] + "\n" + std[10:20] + "\r\n  " + std[20:],
		"data url":      "data:application/pdf;base64," + std,
		"unpadded":      base64.RawStdEncoding.EncodeToString(samplePDF),
		"url alphabet":  base64.URLEncoding.EncodeToString(samplePDF),
		"padded spaces": "  " + std + "  ",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := DecodeBase64(in)
			require.NoError(t, err)
			require.Equal(t, samplePDF, data)
		})
	}

	_, err := DecodeBase64("not base64 at all!!")
	require.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = DecodeBase64("data:application/pdf," + std)
	require.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = DecodeBase64("   ")
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestValidatePDF(t *testing.T) {
	require.NoError(t, ValidatePDF(samplePDF))
	require.ErrorIs(t, ValidatePDF([]byte("<!DOCTYPE html><html>Sign in</html>")), ErrNotPDF)
	require.ErrorIs(t, ValidatePDF([]byte("%PD")), ErrNotPDF)
	require.ErrorIs(t, ValidatePDF(nil), ErrNotPDF)
}

type storeFunc func(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error)

func (f storeFunc) Open(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error) {
	return f(ctx, fileID, accessToken)
}
func (f storeFunc) Name() string { return "func" }
func (f storeFunc) Close() error { return nil }

func TestAcquirer_Acquire(t *testing.T) {
	store := storeFunc(func(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error) {
		switch fileID {
		case "pdf":
			return io.NopCloser(strings.NewReader(string(samplePDF))), nil
		case "html":
			return io.NopCloser(strings.NewReader("<html>quota exceeded</html>")), nil
		default:
			return nil, errors.New("connection refused")
		}
	})
	a := NewAcquirer(store, Config{MaxBytes: 1024})
	ctx := context.Background()

	doc, err := a.Acquire(ctx, Request{Kind: KindBinary, Data: samplePDF})
	require.NoError(t, err)
	require.Equal(t, KindBinary, doc.Kind)
	require.Equal(t, samplePDF, doc.Data)

	doc, err = a.Acquire(ctx, Request{Kind: KindBase64, Encoded: base64.StdEncoding.EncodeToString(samplePDF)})
	require.NoError(t, err)
	require.Equal(t, KindBase64, doc.Kind)

	doc, err = a.Acquire(ctx, Request{Kind: KindFileID, FileID: "pdf"})
	require.NoError(t, err)
	require.Equal(t, "pdf", doc.FileID)
	require.Equal(t, samplePDF, doc.Data)

	_, err = a.Acquire(ctx, Request{Kind: KindFileID, FileID: "html"})
	require.ErrorIs(t, err, ErrNotPDF)

	_, err = a.Acquire(ctx, Request{Kind: KindFileID, FileID: "down"})
	require.ErrorIs(t, err, ErrFetchFailed)
	require.ErrorContains(t, err, "connection refused")

	_, err = a.Acquire(ctx, Request{Kind: KindBinary})
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = a.Acquire(ctx, Request{Kind: KindBinary, Data: append(append([]byte{}, samplePDF...), make([]byte, 2048)...)})
	require.ErrorIs(t, err, ErrDocumentTooLarge)

	_, err = a.Acquire(ctx, Request{})
	require.ErrorIs(t, err, ErrNoSource)

	_, err = NewAcquirer(nil, Config{}).Acquire(ctx, Request{Kind: KindFileID, FileID: "pdf"})
	require.ErrorIs(t, err, ErrFetchFailed)
}

func TestAcquirer_RemoteTooLarge(t *testing.T) {
	big := append(append([]byte{}, samplePDF...), make([]byte, 4096)...)
	store := storeFunc(func(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(string(big))), nil
	})
	_, err := NewAcquirer(store, Config{MaxBytes: 1024}).Acquire(context.Background(), Request{Kind: KindFileID, FileID: "big"})
	require.ErrorIs(t, err, ErrDocumentTooLarge)
}

func TestAcquirer_CallerGone(t *testing.T) {
	store := storeFunc(func(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("dial upstream: %w", ctx.Err())
	})
	a := NewAcquirer(store, Config{FetchTimeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := a.Acquire(ctx, Request{Kind: KindFileID, FileID: "abc"})
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrFetchFailed)
	require.NotErrorIs(t, err, ErrFetchTimeout)
}

func newDriveServer(t *testing.T, handler http.HandlerFunc) *DriveStore {
	t.Helper()
	t.Setenv("GOOGLE_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := NewDriveStore(context.Background(), DriveConfig{Endpoint: srv.URL + "/drive/v3/"})
	require.NoError(t, err)
	return store
}

func TestDriveStore_Download(t *testing.T) {
	seen := make(chan *http.Request, 2)
	store := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(samplePDF)
	})
	a := NewAcquirer(store, Config{})

	doc, err := a.Acquire(context.Background(), Request{Kind: KindFileID, FileID: "1AbC", AccessToken: "ya29.token"})
	require.NoError(t, err)
	require.Equal(t, samplePDF, doc.Data)
	r := <-seen
	require.Equal(t, "/drive/v3/files/1AbC", r.URL.Path)
	require.Equal(t, "media", r.URL.Query().Get("alt"))
	require.Equal(t, "Bearer ya29.token", r.Header.Get("Authorization"))

	_, err = a.Acquire(context.Background(), Request{Kind: KindFileID, FileID: "1AbC"})
	require.NoError(t, err)
	r = <-seen
	require.Empty(t, r.Header.Get("Authorization"))
}

func TestDriveStore_APIKey(t *testing.T) {
	t.Setenv("GOOGLE_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	keys := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys <- r.URL.Query().Get("key")
		_, _ = w.Write(samplePDF)
	}))
	t.Cleanup(srv.Close)

	store, err := NewDriveStore(context.Background(), DriveConfig{APIKey: "public-key", Endpoint: srv.URL + "/drive/v3/"})
	require.NoError(t, err)

	_, err = NewAcquirer(store, Config{}).Acquire(context.Background(), Request{Kind: KindFileID, FileID: "shared"})
	require.NoError(t, err)
	require.Equal(t, "public-key", <-keys)
}

func TestDriveStore_UpstreamError(t *testing.T) {
	store := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found: missing."}}`))
	})

	_, err := NewAcquirer(store, Config{}).Acquire(context.Background(), Request{Kind: KindFileID, FileID: "missing"})
	require.ErrorIs(t, err, ErrFetchFailed)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	require.Contains(t, err.Error(), "File not found")
}

func TestDriveStore_Timeout(t *testing.T) {
	store := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	start := time.Now()
	_, err := NewAcquirer(store, Config{FetchTimeout: 100 * time.Millisecond}).
		Acquire(context.Background(), Request{Kind: KindFileID, FileID: "slow"})
	require.ErrorIs(t, err, ErrFetchTimeout)
	require.ErrorContains(t, err, "timeout")
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestGCSError(t *testing.T) {
	err := gcsError("scans", "a.pdf", storage.ErrObjectNotExist)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	require.Equal(t, "gs://scans/a.pdf", fetchErr.FileID)

	err = gcsError("scans", "a.pdf", &googleapi.Error{Code: http.StatusForbidden, Message: "no access"})
	require.ErrorIs(t, err, ErrFetchFailed)
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
	require.Contains(t, err.Error(), "no access")
}

func TestNewGCSStore_RequiresBucket(t *testing.T) {
	_, err := NewGCSStore(context.Background(), "")
	require.Error(t, err)
}

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSStore reads objects from a single Cloud Storage bucket; the file id is the object name.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a store backed by a shared client using Application Default Credentials.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs store: bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Name implements FileStore.
func (g *GCSStore) Name() string { return "gcs" }

// Close implements FileStore.
func (g *GCSStore) Close() error { return g.client.Close() }

// Open implements FileStore. An access token gets its own short-lived client,
// closed together with the returned reader.
func (g *GCSStore) Open(ctx context.Context, name, accessToken string) (io.ReadCloser, error) {
	if name == "" {
		return nil, &FetchError{FileID: name, Err: ErrFetchFailed, Message: "empty object name"}
	}

	client := g.client
	if accessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
		c, err := storage.NewClient(ctx, option.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("failed to create Storage client: %w", err)
		}
		client = c
	}

	r, err := client.Bucket(g.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if client != g.client {
			_ = client.Close()
		}
		return nil, gcsError(g.bucket, name, err)
	}
	if client == g.client {
		return r, nil
	}
	return &clientReader{Reader: r, client: client}, nil
}

type clientReader struct {
	*storage.Reader
	client *storage.Client
}

func (c *clientReader) Close() error {
	err := c.Reader.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func gcsError(bucket, name string, err error) error {
	fileID := fmt.Sprintf("gs://%s/%s", bucket, name)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return &FetchError{FileID: fileID, StatusCode: http.StatusNotFound, Message: err.Error(), Err: ErrFetchFailed}
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &FetchError{FileID: fileID, StatusCode: gerr.Code, Message: gerr.Message, Err: ErrFetchFailed}
	}
	return &FetchError{FileID: fileID, Message: err.Error(), Err: ErrFetchFailed}
}

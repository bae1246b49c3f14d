package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
)

// DriveConfig configures the Google Drive file store.
type DriveConfig struct {
	// APIKey authenticates anonymous downloads of publicly shared files.
	APIKey string

	// Endpoint overrides the Drive API base URL.
	Endpoint string

	// Transport is the base HTTP transport. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// DriveStore downloads files through the Drive v3 files.get?alt=media endpoint.
//
// Credentials, first match wins: the request's access token, the service
// account from GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS, the API
// key, no credentials at all.
type DriveStore struct {
	cfg            DriveConfig
	serviceAccount oauth2.TokenSource
}

// NewDriveStore creates a Drive store, loading an optional service account from the environment.
func NewDriveStore(ctx context.Context, cfg DriveConfig) (*DriveStore, error) {
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}

	var creds []byte
	if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		var err error
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	}

	s := &DriveStore{cfg: cfg}
	if creds != nil {
		jwtConfig, err := google.JWTConfigFromJSON(creds, drive.DriveReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
		}
		s.serviceAccount = jwtConfig.TokenSource(ctx)
	}
	return s, nil
}

// Name implements FileStore.
func (s *DriveStore) Name() string { return "drive" }

// Close implements FileStore.
func (s *DriveStore) Close() error { return nil }

// Open implements FileStore.
func (s *DriveStore) Open(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, &FetchError{FileID: fileID, Err: ErrFetchFailed, Message: "empty file id"}
	}

	opts := []option.ClientOption{option.WithHTTPClient(s.httpClient(accessToken))}
	if s.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.cfg.Endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	resp, err := svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, driveError(fileID, err)
	}
	return resp.Body, nil
}

func (s *DriveStore) httpClient(accessToken string) *http.Client {
	switch {
	case accessToken != "":
		return &http.Client{Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   s.cfg.Transport,
		}}
	case s.serviceAccount != nil:
		return &http.Client{Transport: &oauth2.Transport{Source: s.serviceAccount, Base: s.cfg.Transport}}
	case s.cfg.APIKey != "":
		return &http.Client{Transport: &transport.APIKey{Key: s.cfg.APIKey, Transport: s.cfg.Transport}}
	default:
		return &http.Client{Transport: s.cfg.Transport}
	}
}

func driveError(fileID string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = strings.TrimSpace(gerr.Body)
		}
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &FetchError{FileID: fileID, StatusCode: gerr.Code, Message: msg, Err: ErrFetchFailed}
	}
	return &FetchError{FileID: fileID, Message: err.Error(), Err: ErrFetchFailed}
}

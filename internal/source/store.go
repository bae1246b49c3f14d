package source

import (
	"context"
	"fmt"

	"ocrrelay/internal/config"
)

// NewStore builds the file store selected by cfg.FileStore.
func NewStore(ctx context.Context, cfg *config.Config) (FileStore, error) {
	switch cfg.FileStore {
	case config.StoreDrive, "":
		return NewDriveStore(ctx, DriveConfig{
			APIKey:   cfg.DriveAPIKey,
			Endpoint: cfg.DriveEndpoint,
		})
	case config.StoreGCS:
		return NewGCSStore(ctx, cfg.GCSBucket)
	default:
		return nil, fmt.Errorf("unknown file store %q", cfg.FileStore)
	}
}

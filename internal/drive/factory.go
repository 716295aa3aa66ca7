package drive

import (
	"context"
	"fmt"

	"coursesync/internal/access"
	"coursesync/internal/config"
)

// NewDriveFromConfig creates a Drive implementation based on the drive
// config type.
func NewDriveFromConfig(ctx context.Context, cfg config.DriveConfig) (access.Drive, error) {
	switch cfg.Type {
	case "google":
		if cfg.CredentialsPath == "" {
			return nil, fmt.Errorf("credentials_path required for google drive")
		}
		return NewGoogleDrive(ctx, cfg.CredentialsPath, cfg.Scopes)
	case "memory":
		return NewMemoryDrive(), nil
	default:
		return nil, fmt.Errorf("unknown drive type: %s", cfg.Type)
	}
}

package mirror

import (
	"context"
	"fmt"

	"ids-go/internal/config"
	"ids-go/internal/ids"
)

// NewMirrorFromConfig creates a Mirror based on the mirror config type.
// It returns nil when mirroring is disabled.
func NewMirrorFromConfig(ctx context.Context, cfg config.MirrorConfig) (ids.Mirror, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryMirror(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem mirror requires fs_root to be set")
		}
		m, err := NewFileSystemMirror(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "s3":
		m, err := NewS3Mirror(ctx, S3Options{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown mirror type: %s", cfg.Type)
	}
}

package index

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/db"
)

// NewStore returns the index store selected by the configuration. The
// returned function releases the store's connections.
func NewStore(ctx context.Context, cfg config.IndexConfig) (core.IndexStore, func(), error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.File), func() {}, nil
	case config.BackendS3:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.S3Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Key), func() {}, nil
	case config.BackendPostgres:
		conn, cleanup, err := db.NewDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(conn.DB, cfg.Name), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unsupported index backend: %s", cfg.Backend)
	}
}

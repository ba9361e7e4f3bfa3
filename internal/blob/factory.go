package blob

import (
	"context"
	"fmt"
	"os"

	fsstore "scancore/internal/infra/blob/fs"
	memorystore "scancore/internal/infra/blob/memory"
	s3store "scancore/internal/infra/blob/s3"
)

// Open selects a payload archive Store implementation from the environment.
//
//	SCANCORE_PAYLOAD_DRIVER: fs|s3|memory (default fs)
//	SCANCORE_PAYLOAD_FS_ROOT: directory root when driver=fs (default ./payloaddata)
//	(S3 specific variables documented in infra/blob/s3)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("SCANCORE_PAYLOAD_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("SCANCORE_PAYLOAD_FS_ROOT"))
	case DriverS3:
		return s3store.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown payload driver %s", driver)
	}
}

// NewFilesystem returns a filesystem archive store rooted at path.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewMemory returns an in-memory archive store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// S3Config re-exports the infra S3 configuration type.
type S3Config = s3store.Config

// NewS3 constructs an S3-backed archive store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3store.New(ctx, cfg) }

// NewMockS3ForTests exposes the in-memory S3 mock for cross-package tests.
func NewMockS3ForTests() Store { return s3store.NewMockForTests() }

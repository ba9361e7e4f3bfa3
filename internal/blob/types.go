// Package blob re-exports the payload archive abstractions for stable
// imports within the internal tree.
package blob

import (
	"scancore/internal/blob/core"
)

type (
	// Driver identifies an archive backend driver.
	Driver = core.Driver
	// PutOptions configures an archive write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored archive metadata.
	Info = core.Info
	// Store is the interface for archive storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported

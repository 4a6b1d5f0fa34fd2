// Package storage archives job checkpoints to an object store. The mixing
// driver uploads a copy of the job file after each checkpoint when archival
// is configured.
package storage

import (
	"context"
	"io"

	"github.com/circuit-mixer/pkg/config"
	"github.com/circuit-mixer/pkg/errors"
)

// Storage is the checkpoint archive interface.
type Storage interface {
	// Upload stores the reader's content at the given key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// UploadFile stores a local file at the given key.
	UploadFile(ctx context.Context, key string, localPath string) error

	// Download retrieves the object at the given key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks whether an object exists at the given key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at the given key.
	Delete(ctx context.Context, key string) error

	// URL returns a display URL for the key.
	URL(key string) string
}

// Type identifies a storage backend.
type Type string

const (
	// TypeLocal archives checkpoints under a local directory.
	TypeLocal Type = "local"
	// TypeCOS archives checkpoints to Tencent Cloud COS.
	TypeCOS Type = "cos"
)

// New creates the backend selected by the configuration. An empty type
// defaults to local.
func New(cfg *config.StorageConfig) (Storage, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeConfigError, "storage config is nil")
	}
	switch Type(cfg.Type) {
	case TypeCOS:
		return NewCOSStorage(cfg)
	case TypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	default:
		return nil, errors.Newf(errors.CodeConfigError, "unsupported storage type: %s", cfg.Type)
	}
}

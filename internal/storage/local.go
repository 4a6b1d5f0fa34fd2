package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/circuit-mixer/pkg/errors"
)

// LocalStorage archives checkpoints under a directory on the local
// filesystem. Keys map to relative paths below the root.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a local archive rooted at basePath.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		return nil, errors.New(errors.CodeConfigError, "local storage path is required")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "creating storage root", err)
	}
	return &LocalStorage{root: basePath}, nil
}

// resolve maps a key to a path under the root, rejecting escapes.
func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", errors.New(errors.CodeInvalidInput, "empty storage key")
	}
	path := filepath.Join(s.root, clean)
	if !strings.HasPrefix(path, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", errors.Newf(errors.CodeInvalidInput, "storage key %q escapes the root", key)
	}
	return path, nil
}

// Upload stores the reader's content at the given key.
func (s *LocalStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.CodeStorageError, "creating key directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, "creating object file", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return errors.Wrap(errors.CodeStorageError, "writing object", err)
	}
	return file.Close()
}

// UploadFile stores a local file at the given key.
func (s *LocalStorage) UploadFile(ctx context.Context, key string, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, fmt.Sprintf("opening %s", localPath), err)
	}
	defer src.Close()
	return s.Upload(ctx, key, src)
}

// Download retrieves the object at the given key.
func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, fmt.Sprintf("opening object %s", key), err)
	}
	return file, nil
}

// Exists checks whether an object exists at the given key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.CodeStorageError, "stat object", err)
	}
	return true, nil
}

// Delete removes the object at the given key.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.CodeStorageError, "deleting object", err)
	}
	return nil
}

// URL returns the filesystem path of the key.
func (s *LocalStorage) URL(key string) string {
	path, err := s.resolve(key)
	if err != nil {
		return ""
	}
	return "file://" + path
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileExt is appended to every key stored by a FileStore.
const FileExt = ".gob"

// FileStore keeps one file per key beneath a root directory.
type FileStore struct {
	dir string
}

var _ Store = &FileStore{}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing @key.
func (fst *FileStore) Path(key string) string {
	return filepath.Join(fst.dir, filepath.FromSlash(key)+FileExt)
}

// Put writes @data, creating parent directories as needed.
func (fst *FileStore) Put(_ context.Context, key string, data []byte) error {
	path := fst.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (fst *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(fst.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (fst *FileStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(fst.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sevigo/build-warden/internal/core"
)

// FileStore persists the index to a single local file.
type FileStore struct {
	path string
}

// NewFileStore returns a store for the index file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location implements core.IndexStore.
func (s *FileStore) Location() string { return s.path }

// Load reads the index file. A missing file yields an empty index.
func (s *FileStore) Load(_ context.Context) (core.Index, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("opening index %s: %w", s.path, err)
	}
	defer f.Close()

	idx, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", s.path, err)
	}
	return idx, nil
}

// Save writes the index to a temporary file next to the target, syncs it and
// renames it into place, so readers never observe a partial index.
func (s *FileStore) Save(_ context.Context, idx core.Index) error {
	i, err := asIndex(idx)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp index file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := i.Encode(tmp); err != nil {
		return fmt.Errorf("writing temp index file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp index file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming index file to %s: %w", s.path, err)
	}

	success = true
	return nil
}

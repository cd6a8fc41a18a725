package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists blobs as a single JSON document on local disk. Writes
// go through a temp file rename so a crash never leaves a half-written blob.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store at the given path. The parent
// directory must exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("file store directory %s unavailable: %w", dir, err)
		}
	}
	return &FileStore{path: path}, nil
}

// Get retrieves a value by key.
func (fs *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	blobs, err := fs.read()
	if err != nil {
		return "", false, err
	}
	value, exists := blobs[key]
	return value, exists, nil
}

// Set stores a key-value pair.
func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	blobs, err := fs.read()
	if err != nil {
		return err
	}
	blobs[key] = value
	return fs.write(blobs)
}

// Remove deletes a key.
func (fs *FileStore) Remove(_ context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	blobs, err := fs.read()
	if err != nil {
		return err
	}
	if _, exists := blobs[key]; !exists {
		return nil
	}
	delete(blobs, key)
	return fs.write(blobs)
}

func (fs *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", fs.path, err)
	}
	blobs := map[string]string{}
	if len(data) == 0 {
		return blobs, nil
	}
	if err := json.Unmarshal(data, &blobs); err != nil {
		// Corrupt blob file: treat as empty rather than failing every load.
		return map[string]string{}, nil
	}
	return blobs, nil
}

func (fs *FileStore) write(blobs map[string]string) error {
	data, err := json.Marshal(blobs)
	if err != nil {
		return fmt.Errorf("failed to encode blobs: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", fs.path, err)
	}
	return nil
}

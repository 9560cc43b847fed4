// internal/state/file.go
package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/kernel6/internal/types"
)

// FileStore keeps documents as files under a root directory.
type FileStore struct {
	root string
	mu   sync.RWMutex
}

// NewFileStore creates a file-backed document store rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.root, filepath.Base(name))
}

// GetDocument reads the named document.
func (f *FileStore) GetDocument(_ context.Context, name string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// PutDocument replaces the named document using an atomic write (temp file + rename).
func (f *FileStore) PutDocument(_ context.Context, name string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}

	target := f.path(name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp document: %w", err)
	}
	return nil
}

package blob

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Store is a filesystem blob store rooted at an explicitly configured
// directory. The root is handed in at construction; nothing in the process
// mutates it afterwards.
type Store struct {
	root   string
	logger *slog.Logger
}

func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Write stores bytes under name and returns the full path.
func (s *Store) Write(name string, data []byte) (string, error) {
	path := s.path(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return path, nil
}

// Read returns the stored bytes for a path.
func (s *Store) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists reports whether a stored file is still present.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Delete removes a stored file. Best-effort: a missing file or a failed
// removal is logged and swallowed, never surfaced to the caller.
func (s *Store) Delete(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("blob.delete_failed", "path", path, "error", err)
	}
}

// Purge removes every file directly under the root, catching orphans left
// behind by failed ingestions.
func (s *Store) Purge() {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.logger.Warn("blob.purge_read_failed", "root", s.root, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		s.Delete(filepath.Join(s.root, e.Name()))
	}
}

// path maps a blob name into the root, stripping any directory components
// so callers cannot escape it.
func (s *Store) path(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	return filepath.Join(s.root, name)
}

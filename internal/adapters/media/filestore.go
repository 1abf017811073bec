package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore implements ports.FileStore on the local filesystem.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed and returns a store rooted there.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes data under a collision-free name derived from filename and
// returns the stored path.
func (s *LocalStore) Save(_ context.Context, filename string, data []byte) (string, error) {
	name := uuid.New().String()[:8] + "_" + sanitizeFilename(filename)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write media %s: %w", name, err)
	}
	return path, nil
}

func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, "..", "")
	base = strings.ReplaceAll(base, "/", "_")
	base = strings.ReplaceAll(base, "\\", "_")
	if base == "" || base == "." {
		return "media"
	}
	return base
}

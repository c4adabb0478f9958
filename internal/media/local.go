package media

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBackend stores attachments on disk under root/<tenant>/<name>.
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) (*LocalBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("media: local root not configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("media: create root %s: %w", root, err)
	}
	return &LocalBackend{root: root}, nil
}

func (b *LocalBackend) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	path, err := b.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("media: mkdir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("media: write %s: %w", key, err)
	}
	return path, nil
}

func (b *LocalBackend) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := b.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("media: read %s: %w", key, err)
	}
	return data, nil
}

func (b *LocalBackend) PurgeOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	removed := 0
	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("media: purge walk: %w", err)
	}
	return removed, nil
}

// resolve joins key under root and rejects traversal outside it.
func (b *LocalBackend) resolve(key string) (string, error) {
	path := filepath.Join(b.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(b.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("media: invalid key %q", key)
	}
	return path, nil
}

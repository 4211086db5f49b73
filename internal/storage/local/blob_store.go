// Package local writes page snapshots under a directory on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config selects the snapshot root.
type Config struct {
	BaseDir string `mapstructure:"base_dir"`
}

// BlobStore writes snapshots to the local filesystem and returns file:// URIs.
type BlobStore struct {
	baseDir string
}

// New creates the base directory when missing and verifies it is writable.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, errors.New("snapshot base directory is required")
	}
	base, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot dir: %w", err)
	}

	info, err := os.Stat(base)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(base, 0o750); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat snapshot dir: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("snapshot path %s is not a directory", base)
	}

	probe, err := os.CreateTemp(base, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("snapshot dir not writable: %w", err)
	}
	_ = probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return nil, fmt.Errorf("remove probe file: %w", err)
	}
	return &BlobStore{baseDir: base}, nil
}

// PutObject streams data to baseDir/path. The write goes through a temp file
// so readers never observe a partial snapshot.
func (s *BlobStore) PutObject(ctx context.Context, path string, _ string, data io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("snapshot path is required")
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("put snapshot %s: %w", path, err)
	}

	full := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if !strings.HasPrefix(full, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("snapshot path %q escapes base dir", path)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create snapshot parent: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close snapshot %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("rename snapshot %s: %w", path, err)
	}
	return "file://" + filepath.ToSlash(full), nil
}

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists finished audio artifacts and returns a URL the
// client can fetch them from.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// DiskBlobStore writes artifacts under a local directory served by the
// HTTP layer.
type DiskBlobStore struct {
	dir     string
	baseURL string
}

// NewDiskBlobStore prepares the artifact directory. baseURL is the
// public prefix clients reach the service on.
func NewDiskBlobStore(dir, baseURL string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &DiskBlobStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *DiskBlobStore) Put(_ context.Context, key string, data []byte) (string, error) {
	key = filepath.Base(key) // keys never carry path components
	path := filepath.Join(b.dir, key)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize blob: %w", err)
	}

	return b.baseURL + "/v1/audio/" + key, nil
}

// Package ingestion orchestrates the claimscore service pipeline: dataset
// loading, feature derivation, scoring, and result storage.
package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StorageClient abstracts blob storage for raw datasets and labeled tables.
type StorageClient interface {
	PutDataset(ctx context.Context, datasetID string, data []byte) error
	GetDataset(ctx context.Context, datasetID string) ([]byte, error)
	PutLabeled(ctx context.Context, batchID string, data []byte) error
	GetLabeled(ctx context.Context, batchID string) ([]byte, error)
}

// Blob kinds, used as the first path segment of every stored object.
const (
	kindDatasets = "datasets"
	kindLabeled  = "labeled"
)

// objectKey returns the storage key for a blob: <kind>/<id>.csv.
func objectKey(kind, id string) string {
	return kind + "/" + id + ".csv"
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(kind, id string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(objectKey(kind, id)))
}

func (s *LocalStorage) put(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PutDataset stores a raw claims CSV.
func (s *LocalStorage) PutDataset(ctx context.Context, datasetID string, data []byte) error {
	return s.put(s.path(kindDatasets, datasetID), data)
}

// GetDataset retrieves a raw claims CSV.
func (s *LocalStorage) GetDataset(ctx context.Context, datasetID string) ([]byte, error) {
	return os.ReadFile(s.path(kindDatasets, datasetID))
}

// PutLabeled stores the labeled table of a batch.
func (s *LocalStorage) PutLabeled(ctx context.Context, batchID string, data []byte) error {
	return s.put(s.path(kindLabeled, batchID), data)
}

// GetLabeled retrieves the labeled table of a batch.
func (s *LocalStorage) GetLabeled(ctx context.Context, batchID string) ([]byte, error) {
	return os.ReadFile(s.path(kindLabeled, batchID))
}

package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoragePutGetDataset(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte("NIK,provider_id\n0001,RS001\n")
	if err := s.PutDataset(ctx, "ds1", data); err != nil {
		t.Fatalf("PutDataset: %v", err)
	}

	got, err := s.GetDataset(ctx, "ds1")
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetDataset = %q, want %q", got, data)
	}

	// Verify file path layout
	expectedPath := filepath.Join(dir, "datasets", "ds1.csv")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStoragePutGetLabeled(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte("fraud_score,fraud_label\n100.00,HIGH\n")
	if err := s.PutLabeled(ctx, "batch1", data); err != nil {
		t.Fatalf("PutLabeled: %v", err)
	}

	got, err := s.GetLabeled(ctx, "batch1")
	if err != nil {
		t.Fatalf("GetLabeled: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetLabeled = %q, want %q", got, data)
	}

	expectedPath := filepath.Join(dir, "labeled", "batch1.csv")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStorageGetNotFound(t *testing.T) {
	s := NewLocalStorage(t.TempDir())

	_, err := s.GetDataset(context.Background(), "nonexistent")
	if err == nil {
		t.Error("expected error for nonexistent dataset")
	}
}

func TestObjectKey(t *testing.T) {
	if got := objectKey(kindLabeled, "b1"); got != "labeled/b1.csv" {
		t.Errorf("objectKey = %q, want labeled/b1.csv", got)
	}
}

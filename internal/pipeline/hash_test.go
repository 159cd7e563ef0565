package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashFileMatchesHashBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	content := []byte("hello lightsync")

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fromFile, err := HashFile(path, 0)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if fromFile == "" {
		t.Fatal("expected non-empty digest")
	}

	if fromBytes := HashBytes(content); fromFile != fromBytes {
		t.Errorf("HashFile = %q, HashBytes = %q", fromFile, fromBytes)
	}
}

func TestHashFileSkipsLargeFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")

	if err := os.WriteFile(path, make([]byte, 1024), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	digest, err := HashFile(path, 512)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if digest != "" {
		t.Errorf("expected hashing deferred, got %q", digest)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "nope"), 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}

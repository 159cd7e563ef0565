package pipeline

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// HashFile computes the xxhash64 digest of a file's content, encoded as a
// hex string. Files larger than maxBytes skip hashing (the caller falls
// back to the size+mtime heuristic); maxBytes <= 0 hashes everything.
func HashFile(path string, maxBytes int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if maxBytes > 0 {
		info, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.Size() > maxBytes {
			return "", nil
		}
	}

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return strconv.FormatUint(h.Sum64(), 16), nil
}

// HashBytes digests an in-memory buffer the same way HashFile does.
func HashBytes(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

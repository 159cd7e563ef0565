package sync

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"lightsync/internal/errs"
	"lightsync/internal/pipeline"
	"lightsync/internal/webdav"
)

// LocalEntry is the current on-disk view of one path, relative to the sync
// folder root. Hash is empty when hashing was deferred for a large file.
type LocalEntry struct {
	Path        string
	Hash        string
	Size        int64
	ModTime     time.Time
	IsDirectory bool
}

// ScanLocal walks the folder root and returns every non-ignored path.
// Ignored directories are skipped without descending into them.
func ScanLocal(root string, filter *pipeline.IgnoreFilter, hashMax int64) (map[string]LocalEntry, error) {
	snapshot := make(map[string]LocalEntry)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if filter.Match(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		entry, err := statEntry(root, rel, hashMax)
		if err != nil {
			return err
		}
		if entry != nil {
			snapshot[rel] = *entry
		}

		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindFilesystem, "scan local folder", err)
	}

	return snapshot, nil
}

// StatLocal resolves the current state of a single relative path, or nil
// when it no longer exists.
func StatLocal(root, rel string, hashMax int64) (*LocalEntry, error) {
	entry, err := statEntry(root, rel, hashMax)
	if err != nil {
		return nil, errs.Wrap(errs.KindFilesystem, fmt.Sprintf("stat %s", rel), err)
	}

	return entry, nil
}

func statEntry(root, rel string, hashMax int64) (*LocalEntry, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entry := &LocalEntry{
		Path:        rel,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDirectory: info.IsDir(),
	}

	if !info.IsDir() {
		hash, err := pipeline.HashFile(abs, hashMax)
		if err != nil {
			return nil, err
		}
		entry.Hash = hash
	}

	return entry, nil
}

// RemoteSnapshot lists the remote tree rooted at the scoped client's base,
// breadth first. A missing root collection is an empty snapshot, not an
// error; the first upload creates it.
func RemoteSnapshot(ctx context.Context, client webdav.Client) (map[string]webdav.Entry, error) {
	snapshot := make(map[string]webdav.Entry)
	queue := []string{""}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := client.List(ctx, dir)
		if err != nil {
			if dir == "" && errs.Is(err, errs.KindNotFound) {
				return snapshot, nil
			}
			return nil, err
		}

		for _, entry := range entries {
			snapshot[entry.Path] = entry
			if entry.IsDirectory {
				queue = append(queue, entry.Path)
			}
		}
	}

	return snapshot, nil
}

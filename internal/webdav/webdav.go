package webdav

import (
	"context"
	"time"
)

// Entry is one resource in a remote collection listing. Path is relative to
// the path the client was rooted at.
type Entry struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	IsDirectory bool      `json:"is_directory"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
	ETag        string    `json:"etag,omitempty"`
}

// Client is the WebDAV collaborator used by the reconciler and the transfer
// executor. Implementations must surface auth, network and protocol failures
// as distinguishable errs kinds.
type Client interface {
	// List returns the immediate children of a collection (Depth: 1).
	List(ctx context.Context, path string) ([]Entry, error)
	Get(ctx context.Context, path string) ([]byte, error)
	// Put stores data at path and returns the ETag the server assigned to
	// the new version, or "" when the server reports none.
	Put(ctx context.Context, path string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
	Mkcol(ctx context.Context, path string) error
	// TestConnection probes the server root and reports the detected server
	// type (nextcloud, owncloud, generic).
	TestConnection(ctx context.Context) (string, error)
}

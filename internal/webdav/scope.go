package webdav

import (
	"context"
	"path"
	"strings"
)

// scoped rebases a Client under a prefix so per-folder code works in paths
// relative to the folder's remote root.
type scoped struct {
	inner  Client
	prefix string
}

// Scope returns a Client rooted at prefix. An empty or "/" prefix returns
// the client unchanged.
func Scope(inner Client, prefix string) Client {
	prefix = strings.Trim(path.Clean("/"+prefix), "/")
	if prefix == "" {
		return inner
	}

	return &scoped{inner: inner, prefix: prefix}
}

func (s *scoped) join(p string) string {
	if p == "" {
		return s.prefix
	}
	return path.Join(s.prefix, p)
}

func (s *scoped) List(ctx context.Context, p string) ([]Entry, error) {
	entries, err := s.inner.List(ctx, s.join(p))
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entry.Path = strings.TrimPrefix(strings.TrimPrefix(entry.Path, s.prefix), "/")
		if entry.Path == "" {
			continue
		}
		out = append(out, entry)
	}

	return out, nil
}

func (s *scoped) Get(ctx context.Context, p string) ([]byte, error) {
	return s.inner.Get(ctx, s.join(p))
}

func (s *scoped) Put(ctx context.Context, p string, data []byte) (string, error) {
	return s.inner.Put(ctx, s.join(p), data)
}

func (s *scoped) Delete(ctx context.Context, p string) error {
	return s.inner.Delete(ctx, s.join(p))
}

func (s *scoped) Mkcol(ctx context.Context, p string) error {
	return s.inner.Mkcol(ctx, s.join(p))
}

func (s *scoped) TestConnection(ctx context.Context) (string, error) {
	return s.inner.TestConnection(ctx)
}

// MkcolAll creates dir and every missing ancestor on c. Used for a folder's
// remote root before its first sync.
func MkcolAll(ctx context.Context, c Client, dir string) error {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return nil
	}

	parts := strings.Split(dir, "/")
	for i := range parts {
		if err := c.Mkcol(ctx, path.Join(parts[:i+1]...)); err != nil {
			return err
		}
	}

	return nil
}

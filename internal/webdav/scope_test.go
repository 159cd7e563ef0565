package webdav

import (
	"context"
	"testing"
)

type recordingClient struct {
	calls   []string
	entries []Entry
}

func (r *recordingClient) List(ctx context.Context, path string) ([]Entry, error) {
	r.calls = append(r.calls, "LIST "+path)
	return r.entries, nil
}

func (r *recordingClient) Get(ctx context.Context, path string) ([]byte, error) {
	r.calls = append(r.calls, "GET "+path)
	return nil, nil
}

func (r *recordingClient) Put(ctx context.Context, path string, data []byte) (string, error) {
	r.calls = append(r.calls, "PUT "+path)
	return "", nil
}

func (r *recordingClient) Delete(ctx context.Context, path string) error {
	r.calls = append(r.calls, "DELETE "+path)
	return nil
}

func (r *recordingClient) Mkcol(ctx context.Context, path string) error {
	r.calls = append(r.calls, "MKCOL "+path)
	return nil
}

func (r *recordingClient) TestConnection(ctx context.Context) (string, error) {
	return "generic", nil
}

func TestScopeRebasesPaths(t *testing.T) {
	inner := &recordingClient{}
	client := Scope(inner, "backup/docs")

	ctx := context.Background()
	_, _ = client.Get(ctx, "a.txt")
	_, _ = client.Put(ctx, "sub/b.txt", nil)
	_ = client.Delete(ctx, "c.txt")
	_ = client.Mkcol(ctx, "sub")
	_, _ = client.List(ctx, "")

	want := []string{
		"GET backup/docs/a.txt",
		"PUT backup/docs/sub/b.txt",
		"DELETE backup/docs/c.txt",
		"MKCOL backup/docs/sub",
		"LIST backup/docs",
	}
	if len(inner.calls) != len(want) {
		t.Fatalf("calls: got %v, want %v", inner.calls, want)
	}
	for i := range want {
		if inner.calls[i] != want[i] {
			t.Errorf("call %d: got %q, want %q", i, inner.calls[i], want[i])
		}
	}
}

func TestScopeStripsPrefixFromListings(t *testing.T) {
	inner := &recordingClient{
		entries: []Entry{
			{Path: "backup/docs/a.txt"},
			{Path: "backup/docs/sub", IsDirectory: true},
		},
	}
	client := Scope(inner, "/backup/docs/")

	entries, err := client.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Path != "a.txt" || entries[1].Path != "sub" {
		t.Errorf("paths not rebased: %+v", entries)
	}
}

func TestScopeEmptyPrefixIsPassthrough(t *testing.T) {
	inner := &recordingClient{}
	if client := Scope(inner, "/"); client != Client(inner) {
		t.Error("expected the inner client back for an empty prefix")
	}
}

func TestMkcolAllCreatesAncestors(t *testing.T) {
	inner := &recordingClient{}
	if err := MkcolAll(context.Background(), inner, "a/b/c"); err != nil {
		t.Fatalf("MkcolAll: %v", err)
	}

	want := []string{"MKCOL a", "MKCOL a/b", "MKCOL a/b/c"}
	if len(inner.calls) != len(want) {
		t.Fatalf("calls: got %v, want %v", inner.calls, want)
	}
	for i := range want {
		if inner.calls[i] != want[i] {
			t.Errorf("call %d: got %q, want %q", i, inner.calls[i], want[i])
		}
	}
}

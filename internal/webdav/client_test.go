package webdav

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"lightsync/internal/errs"
	"lightsync/internal/model"
)

const docsMultistatus = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/docs/</D:href>
    <D:propstat>
      <D:status>HTTP/1.1 200 OK</D:status>
      <D:prop>
        <D:resourcetype><D:collection/></D:resourcetype>
      </D:prop>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/docs/a.txt</D:href>
    <D:propstat>
      <D:status>HTTP/1.1 200 OK</D:status>
      <D:prop>
        <D:resourcetype/>
        <D:getcontentlength>12</D:getcontentlength>
        <D:getlastmodified>Mon, 02 Mar 2026 15:04:05 GMT</D:getlastmodified>
        <D:getetag>"abc123"</D:getetag>
      </D:prop>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/docs/sub/</D:href>
    <D:propstat>
      <D:status>HTTP/1.1 200 OK</D:status>
      <D:prop>
        <D:resourcetype><D:collection/></D:resourcetype>
      </D:prop>
    </D:propstat>
  </D:response>
</D:multistatus>`

func testServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *HTTPClient) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewHTTPClient(model.WebDavServer{
		Name:       "test",
		URL:        ts.URL,
		Username:   "alice",
		TimeoutSec: 5,
	}, "secret")
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	return ts, client
}

func TestListParsesMultistatus(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PROPFIND" {
			t.Errorf("method: got %s, want PROPFIND", r.Method)
		}
		if r.Header.Get("Depth") != "1" {
			t.Errorf("depth: got %s, want 1", r.Header.Get("Depth"))
		}
		if r.Header.Get("Authorization") == "" {
			t.Error("missing authorization header")
		}

		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(docsMultistatus))
	})

	entries, err := client.List(context.Background(), "docs")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (collection echo skipped), got %d: %+v", len(entries), entries)
	}

	byPath := map[string]Entry{}
	for _, entry := range entries {
		byPath[entry.Path] = entry
	}

	file, ok := byPath["docs/a.txt"]
	if !ok {
		t.Fatalf("docs/a.txt missing from %+v", byPath)
	}
	if file.IsDirectory || file.Size != 12 || file.ETag != "abc123" {
		t.Errorf("file entry wrong: %+v", file)
	}
	if file.Modified.IsZero() {
		t.Error("modified time not parsed")
	}

	sub, ok := byPath["docs/sub"]
	if !ok || !sub.IsDirectory {
		t.Errorf("docs/sub should be a directory: %+v", sub)
	}
}

func TestErrorKindMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   errs.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, errs.KindAuth},
		{"forbidden", http.StatusForbidden, errs.KindAuth},
		{"not found", http.StatusNotFound, errs.KindNotFound},
		{"server error", http.StatusInternalServerError, errs.KindNetwork},
		{"teapot", http.StatusTeapot, errs.KindProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.Get(context.Background(), "a.txt")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errs.KindOf(err); got != tt.want {
				t.Errorf("kind: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDeleteTreatsMissingAsSuccess(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if err := client.Delete(context.Background(), "gone.txt"); err != nil {
		t.Errorf("Delete on missing path: %v", err)
	}
}

func TestMkcolTreatsExistingAsSuccess(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	if err := client.Mkcol(context.Background(), "already/there"); err != nil {
		t.Errorf("Mkcol on existing collection: %v", err)
	}
}

func TestPutUploadsBody(t *testing.T) {
	var gotPath string
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Etag", `"rev-42"`)
		w.WriteHeader(http.StatusCreated)
	})

	etag, err := client.Put(context.Background(), "dir/x y.txt", []byte("data"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if gotPath != "/dir/x%20y.txt" && gotPath != "/dir/x y.txt" {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if etag != "rev-42" {
		t.Errorf("etag: got %q, want rev-42", etag)
	}
}

func TestTestConnectionDetectsServerType(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Depth") != "0" {
			t.Errorf("depth: got %s, want 0", r.Header.Get("Depth"))
		}
		w.Header().Set("Server", "nginx Nextcloud")
		w.WriteHeader(http.StatusMultiStatus)
	})

	serverType, err := client.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if serverType != "nextcloud" {
		t.Errorf("server type: got %s, want nextcloud", serverType)
	}
}

func TestNewHTTPClientRejectsBadConfig(t *testing.T) {
	valid := model.WebDavServer{
		Name: "ok", URL: "https://dav.example.com", Username: "u", TimeoutSec: 30,
	}

	if _, err := NewHTTPClient(valid, ""); err == nil {
		t.Error("expected error for empty password")
	}

	invalid := valid
	invalid.TimeoutSec = 301
	if _, err := NewHTTPClient(invalid, "pw"); err == nil {
		t.Error("expected error for out-of-range timeout")
	}
}

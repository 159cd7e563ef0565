package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lightsync/internal/config"
	"lightsync/internal/db"
	"lightsync/internal/model"
	"lightsync/internal/repository"
	"lightsync/internal/secret"
	"lightsync/internal/sync"
)

func newTestServer(t *testing.T) (*Server, secret.Static) {
	t.Helper()

	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	cfg := config.Default
	folders := repository.NewFolderStore(gdb)
	servers := repository.NewServerStore(gdb)
	meta := repository.NewMetadataStore(gdb)
	logs := repository.NewLogStore(gdb)
	sessions := repository.NewSessionStore(gdb)
	secrets := secret.Static{}

	manager := sync.NewManager(&cfg, folders, servers, meta, logs, sessions, secrets)

	return NewServer(manager, folders, servers, logs, sessions, secrets, cfg.DaemonPort), secrets
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestAddServerStoresPassword(t *testing.T) {
	s, secrets := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/servers",
		`{"name":"cloud","url":"https://dav.example.com","username":"alice","timeout_sec":30,"password":"s3cret"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	var created model.WebDavServer
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" {
		t.Fatal("server ID missing")
	}

	pw, err := secrets.GetPassword(created.ID)
	if err != nil || pw != "s3cret" {
		t.Errorf("password not stored: %q, %v", pw, err)
	}
}

func TestAddServerRequiresPassword(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/servers",
		`{"name":"cloud","url":"https://dav.example.com","username":"alice"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestAddServerRejectsBadTimeout(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/servers",
		`{"name":"cloud","url":"https://dav.example.com","username":"alice","timeout_sec":301,"password":"pw"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestAddFolderValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/folders", `{"name":"incomplete"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestStatusListsFolders(t *testing.T) {
	s, secrets := newTestServer(t)

	// Unreachable loopback address: the pipeline comes up, the first sync
	// cycle just fails fast.
	rec := doRequest(s, http.MethodPost, "/servers",
		`{"name":"cloud","url":"http://127.0.0.1:9","username":"alice","timeout_sec":1,"password":"pw"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add server: %d %s", rec.Code, rec.Body.String())
	}
	var server model.WebDavServer
	_ = json.Unmarshal(rec.Body.Bytes(), &server)
	_ = secrets.SetPassword(server.ID, "pw")

	dir := t.TempDir()
	body, _ := json.Marshal(map[string]any{
		"name":        "docs",
		"local_path":  dir,
		"remote_path": "docs",
		"server_id":   server.ID,
	})
	rec = doRequest(s, http.MethodPost, "/folders", string(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add folder: %d %s", rec.Code, rec.Body.String())
	}

	defer s.manager.StopAll()

	rec = doRequest(s, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Folders []sync.FolderStatus `json:"folders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Folders) != 1 || result.Folders[0].Folder.Name != "docs" {
		t.Errorf("unexpected folders: %+v", result.Folders)
	}
}

func TestResolveUnknownFolder(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/folders/missing/resolve",
		`{"path":"a.txt","resolution":"accept-local"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404, body %s", rec.Code, rec.Body.String())
	}
}

func TestResolveRejectsUnknownResolution(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/folders/f1/resolve",
		`{"path":"a.txt","resolution":"merge"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestHistoryEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/history?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var entries []model.SyncLog
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no history, got %+v", entries)
	}
}

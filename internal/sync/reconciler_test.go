package sync

import (
	"testing"
	"time"

	"lightsync/internal/model"
	"lightsync/internal/webdav"
)

var (
	syncTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before   = syncTime.Add(-time.Hour)
	after    = syncTime.Add(time.Hour)
)

func localFile(hash string, size int64, mtime time.Time) LocalEntry {
	return LocalEntry{Hash: hash, Size: size, ModTime: mtime}
}

func remoteFile(size int64, mtime time.Time) webdav.Entry {
	return webdav.Entry{Size: size, Modified: mtime}
}

func baseRow(hash string, size int64, mtime time.Time) model.FileMetadata {
	synced := syncTime
	return model.FileMetadata{
		Hash:       hash,
		Size:       size,
		ModifiedAt: mtime,
		SyncedAt:   &synced,
		Status:     model.MetadataSynced,
	}
}

func planOne(t *testing.T, rec *Reconciler,
	local map[string]LocalEntry,
	remote map[string]webdav.Entry,
	base map[string]model.FileMetadata,
) []Action {
	t.Helper()
	return rec.Plan(local, remote, base)
}

func TestPlanDecisionMatrix(t *testing.T) {
	rec := NewReconciler(model.PolicyManual, model.DirectionBidirectional)

	tests := []struct {
		name   string
		local  map[string]LocalEntry
		remote map[string]webdav.Entry
		base   map[string]model.FileMetadata
		want   Op
	}{
		{
			name:  "new local file uploads",
			local: map[string]LocalEntry{"a.txt": localFile("h1", 10, before)},
			want:  OpUpload,
		},
		{
			name:   "new remote file downloads",
			remote: map[string]webdav.Entry{"b.txt": remoteFile(20, before)},
			want:   OpDownload,
		},
		{
			name:   "unchanged file is a no-op",
			local:  map[string]LocalEntry{"c.txt": localFile("h1", 10, before)},
			remote: map[string]webdav.Entry{"c.txt": remoteFile(10, before)},
			base:   map[string]model.FileMetadata{"c.txt": baseRow("h1", 10, before)},
			want:   OpNone,
		},
		{
			name:   "local edit uploads",
			local:  map[string]LocalEntry{"d.txt": localFile("h2", 12, after)},
			remote: map[string]webdav.Entry{"d.txt": remoteFile(10, before)},
			base:   map[string]model.FileMetadata{"d.txt": baseRow("h1", 10, before)},
			want:   OpUpload,
		},
		{
			name:   "remote edit downloads",
			local:  map[string]LocalEntry{"e.txt": localFile("h1", 10, before)},
			remote: map[string]webdav.Entry{"e.txt": remoteFile(14, after)},
			base:   map[string]model.FileMetadata{"e.txt": baseRow("h1", 10, before)},
			want:   OpDownload,
		},
		{
			name:   "local delete propagates to remote",
			remote: map[string]webdav.Entry{"f.txt": remoteFile(10, before)},
			base:   map[string]model.FileMetadata{"f.txt": baseRow("h1", 10, before)},
			want:   OpDeleteRemote,
		},
		{
			name:  "remote delete propagates to local",
			local: map[string]LocalEntry{"g.txt": localFile("h1", 10, before)},
			base:  map[string]model.FileMetadata{"g.txt": baseRow("h1", 10, before)},
			want:  OpDeleteLocal,
		},
		{
			name: "both deleted tombstones the base",
			base: map[string]model.FileMetadata{"h.txt": baseRow("h1", 10, before)},
			want: OpTombstoneBase,
		},
		{
			name:   "both changed is a conflict under manual policy",
			local:  map[string]LocalEntry{"i.txt": localFile("h2", 12, after)},
			remote: map[string]webdav.Entry{"i.txt": remoteFile(14, after)},
			base:   map[string]model.FileMetadata{"i.txt": baseRow("h1", 10, before)},
			want:   OpConflict,
		},
		{
			name:   "local delete vs remote edit conflicts",
			remote: map[string]webdav.Entry{"j.txt": remoteFile(14, after)},
			base:   map[string]model.FileMetadata{"j.txt": baseRow("h1", 10, before)},
			want:   OpConflict,
		},
		{
			name:   "converged content only updates the base",
			local:  map[string]LocalEntry{"k.txt": localFile("h2", 12, after)},
			remote: map[string]webdav.Entry{"k.txt": remoteFile(12, after)},
			base:   map[string]model.FileMetadata{"k.txt": baseRow("h1", 10, before)},
			want:   OpUpdateBase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planOne(t, rec, tt.local, tt.remote, tt.base)

			if tt.want == OpNone {
				if len(plan) != 0 {
					t.Fatalf("expected empty plan, got %+v", plan)
				}
				return
			}

			if len(plan) != 1 {
				t.Fatalf("expected 1 action, got %d: %+v", len(plan), plan)
			}
			if plan[0].Op != tt.want {
				t.Errorf("got %s, want %s", plan[0].Op, tt.want)
			}
		})
	}
}

func TestPlanNewerWinsPolicy(t *testing.T) {
	rec := NewReconciler(model.PolicyNewerWins, model.DirectionBidirectional)

	tests := []struct {
		name   string
		local  map[string]LocalEntry
		remote map[string]webdav.Entry
		base   map[string]model.FileMetadata
		want   Op
	}{
		{
			name:   "remote newer wins",
			local:  map[string]LocalEntry{"a.txt": localFile("h2", 12, after)},
			remote: map[string]webdav.Entry{"a.txt": remoteFile(14, after.Add(time.Minute))},
			base:   map[string]model.FileMetadata{"a.txt": baseRow("h1", 10, before)},
			want:   OpDownload,
		},
		{
			name:   "local newer wins",
			local:  map[string]LocalEntry{"a.txt": localFile("h2", 12, after.Add(time.Minute))},
			remote: map[string]webdav.Entry{"a.txt": remoteFile(14, after)},
			base:   map[string]model.FileMetadata{"a.txt": baseRow("h1", 10, before)},
			want:   OpUpload,
		},
		{
			name:   "exact tie goes to local",
			local:  map[string]LocalEntry{"a.txt": localFile("h2", 12, after)},
			remote: map[string]webdav.Entry{"a.txt": remoteFile(14, after)},
			base:   map[string]model.FileMetadata{"a.txt": baseRow("h1", 10, before)},
			want:   OpUpload,
		},
		{
			name:   "surviving edit beats local delete",
			remote: map[string]webdav.Entry{"a.txt": remoteFile(14, after)},
			base:   map[string]model.FileMetadata{"a.txt": baseRow("h1", 10, before)},
			want:   OpDownload,
		},
		{
			name:  "surviving edit beats remote delete",
			local: map[string]LocalEntry{"a.txt": localFile("h2", 12, after)},
			base:  map[string]model.FileMetadata{"a.txt": baseRow("h1", 10, before)},
			want:  OpUpload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planOne(t, rec, tt.local, tt.remote, tt.base)
			if len(plan) != 1 {
				t.Fatalf("expected 1 action, got %d: %+v", len(plan), plan)
			}
			if plan[0].Op != tt.want {
				t.Errorf("got %s, want %s", plan[0].Op, tt.want)
			}
		})
	}
}

func TestPlanDirectionFilter(t *testing.T) {
	local := map[string]LocalEntry{"up.txt": localFile("h1", 10, before)}
	remote := map[string]webdav.Entry{"down.txt": remoteFile(20, before)}

	t.Run("upload-only drops downloads", func(t *testing.T) {
		rec := NewReconciler(model.PolicyNewerWins, model.DirectionUploadOnly)
		plan := rec.Plan(local, remote, nil)
		if len(plan) != 1 || plan[0].Op != OpUpload || plan[0].Path != "up.txt" {
			t.Fatalf("got %+v, want single upload of up.txt", plan)
		}
	})

	t.Run("download-only drops uploads", func(t *testing.T) {
		rec := NewReconciler(model.PolicyNewerWins, model.DirectionDownloadOnly)
		plan := rec.Plan(local, remote, nil)
		if len(plan) != 1 || plan[0].Op != OpDownload || plan[0].Path != "down.txt" {
			t.Fatalf("got %+v, want single download of down.txt", plan)
		}
	})
}

func TestPlanBidirectionalScenario(t *testing.T) {
	// Fresh folder with a.txt local-only and b.txt remote-only: one cycle
	// plans one upload and one download.
	rec := NewReconciler(model.PolicyNewerWins, model.DirectionBidirectional)

	plan := rec.Plan(
		map[string]LocalEntry{"a.txt": localFile("h1", 5, before)},
		map[string]webdav.Entry{"b.txt": remoteFile(7, before)},
		nil,
	)

	if len(plan) != 2 {
		t.Fatalf("expected 2 actions, got %d: %+v", len(plan), plan)
	}

	ops := map[string]Op{}
	for _, action := range plan {
		ops[action.Path] = action.Op
	}
	if ops["a.txt"] != OpUpload {
		t.Errorf("a.txt: got %s, want upload", ops["a.txt"])
	}
	if ops["b.txt"] != OpDownload {
		t.Errorf("b.txt: got %s, want download", ops["b.txt"])
	}
}

func TestPlanOrdering(t *testing.T) {
	rec := NewReconciler(model.PolicyNewerWins, model.DirectionBidirectional)

	synced := syncTime
	local := map[string]LocalEntry{
		"dir":         {Path: "dir", IsDirectory: true, ModTime: before},
		"dir/new.txt": localFile("h1", 5, before),
	}
	remote := map[string]webdav.Entry{
		"old":         {Path: "old", IsDirectory: true},
		"old/gone.md": remoteFile(9, before),
	}
	base := map[string]model.FileMetadata{
		"old": {
			Path:        "old",
			IsDirectory: true,
			SyncedAt:    &synced,
			Status:      model.MetadataSynced,
		},
		"old/gone.md": baseRow("h2", 9, before),
	}

	plan := rec.Plan(local, remote, base)
	if len(plan) != 4 {
		t.Fatalf("expected 4 actions, got %d: %+v", len(plan), plan)
	}

	// Creates come first, parents before children.
	if plan[0].Path != "dir" || plan[0].Op != OpUpload {
		t.Errorf("action 0: got %s %s, want upload dir", plan[0].Op, plan[0].Path)
	}
	if plan[1].Path != "dir/new.txt" || plan[1].Op != OpUpload {
		t.Errorf("action 1: got %s %s, want upload dir/new.txt", plan[1].Op, plan[1].Path)
	}

	// Deletes follow, children before parents.
	if plan[2].Path != "old/gone.md" || plan[2].Op != OpDeleteRemote {
		t.Errorf("action 2: got %s %s, want delete-remote old/gone.md", plan[2].Op, plan[2].Path)
	}
	if plan[3].Path != "old" || plan[3].Op != OpDeleteRemote {
		t.Errorf("action 3: got %s %s, want delete-remote old", plan[3].Op, plan[3].Path)
	}
}

func TestPlanIgnoresTombstonedBase(t *testing.T) {
	rec := NewReconciler(model.PolicyNewerWins, model.DirectionBidirectional)

	row := baseRow("h1", 10, before)
	row.IsDelete = true

	plan := rec.Plan(nil, nil, map[string]model.FileMetadata{"gone.txt": row})
	if len(plan) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestPlanETagSignal(t *testing.T) {
	rec := NewReconciler(model.PolicyNewerWins, model.DirectionBidirectional)

	base := baseRow("h1", 10, before)
	base.ETag = "rev-1"
	local := localFile("h1", 10, before)

	t.Run("changed etag downloads despite equal size and mtime", func(t *testing.T) {
		remote := remoteFile(10, before)
		remote.ETag = "rev-2"

		plan := rec.Plan(
			map[string]LocalEntry{"a.txt": local},
			map[string]webdav.Entry{"a.txt": remote},
			map[string]model.FileMetadata{"a.txt": base},
		)
		if len(plan) != 1 || plan[0].Op != OpDownload {
			t.Fatalf("expected download for changed etag, got %+v", plan)
		}
	})

	t.Run("matching etag overrides the mtime heuristic", func(t *testing.T) {
		remote := remoteFile(10, after)
		remote.ETag = "rev-1"

		plan := rec.Plan(
			map[string]LocalEntry{"a.txt": local},
			map[string]webdav.Entry{"a.txt": remote},
			map[string]model.FileMetadata{"a.txt": base},
		)
		if len(plan) != 0 {
			t.Fatalf("expected no-op for matching etag, got %+v", plan)
		}
	})
}

func TestPlanSizeMtimeFallback(t *testing.T) {
	// Large files skip hashing; size and mtime decide instead.
	rec := NewReconciler(model.PolicyNewerWins, model.DirectionBidirectional)

	base := baseRow("", 100, before)
	local := LocalEntry{Size: 100, ModTime: before}
	remote := remoteFile(100, before)

	plan := rec.Plan(
		map[string]LocalEntry{"big.iso": local},
		map[string]webdav.Entry{"big.iso": remote},
		map[string]model.FileMetadata{"big.iso": base},
	)
	if len(plan) != 0 {
		t.Fatalf("expected no-op for unchanged large file, got %+v", plan)
	}

	local.ModTime = after
	plan = rec.Plan(
		map[string]LocalEntry{"big.iso": local},
		map[string]webdav.Entry{"big.iso": remote},
		map[string]model.FileMetadata{"big.iso": base},
	)
	if len(plan) != 1 || plan[0].Op != OpUpload {
		t.Fatalf("expected upload after mtime change, got %+v", plan)
	}
}

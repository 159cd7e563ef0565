package repository

import (
	"testing"

	"lightsync/internal/db"
	"lightsync/internal/model"
)

func newMetadataStore(t *testing.T) *MetadataStore {
	t.Helper()

	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewMetadataStore(gdb)
}

func TestUpsertIsIdempotentPerFolderAndPath(t *testing.T) {
	store := newMetadataStore(t)

	first := &model.FileMetadata{
		Path:         "a.txt",
		SyncFolderID: "f1",
		Hash:         "h1",
		Size:         10,
		Status:       model.MetadataPending,
	}
	if err := store.Upsert(first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &model.FileMetadata{
		Path:         "a.txt",
		SyncFolderID: "f1",
		Hash:         "h2",
		Size:         20,
		Status:       model.MetadataSynced,
	}
	if err := store.Upsert(second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := store.ListByFolder("f1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Hash != "h2" || rows[0].Size != 20 || rows[0].Status != model.MetadataSynced {
		t.Errorf("row not overwritten: %+v", rows[0])
	}
}

func TestSamePathDifferentFoldersAreIndependent(t *testing.T) {
	store := newMetadataStore(t)

	for _, folderID := range []string{"f1", "f2"} {
		if err := store.Upsert(&model.FileMetadata{
			Path:         "shared.txt",
			SyncFolderID: folderID,
			Status:       model.MetadataPending,
		}); err != nil {
			t.Fatalf("upsert %s: %v", folderID, err)
		}
	}

	for _, folderID := range []string{"f1", "f2"} {
		rows, err := store.ListByFolder(folderID)
		if err != nil {
			t.Fatalf("list %s: %v", folderID, err)
		}
		if len(rows) != 1 {
			t.Errorf("%s: expected 1 row, got %d", folderID, len(rows))
		}
	}
}

func TestMarkDeletedKeepsTombstone(t *testing.T) {
	store := newMetadataStore(t)

	if err := store.Upsert(&model.FileMetadata{
		Path:         "gone.txt",
		SyncFolderID: "f1",
		Status:       model.MetadataSynced,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	row, err := store.GetByPath("f1", "gone.txt")
	if err != nil || row == nil {
		t.Fatalf("get: %v", err)
	}
	if err := store.MarkDeleted(row.ID); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	row, err = store.GetByPath("f1", "gone.txt")
	if err != nil || row == nil {
		t.Fatalf("row should survive tombstoning: %v", err)
	}
	if !row.IsDelete {
		t.Error("is_delete not set")
	}
}

func TestGetByPathReturnsNilWhenUntracked(t *testing.T) {
	store := newMetadataStore(t)

	row, err := store.GetByPath("f1", "missing.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row != nil {
		t.Errorf("expected nil, got %+v", row)
	}
}

func TestBatchUpdateStatusSkipsTombstones(t *testing.T) {
	store := newMetadataStore(t)

	for _, path := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := store.Upsert(&model.FileMetadata{
			Path:         path,
			SyncFolderID: "f1",
			Status:       model.MetadataSynced,
		}); err != nil {
			t.Fatalf("upsert %s: %v", path, err)
		}
	}

	row, _ := store.GetByPath("f1", "c.txt")
	if err := store.MarkDeleted(row.ID); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	affected, err := store.BatchUpdateStatus("f1", model.MetadataPending)
	if err != nil {
		t.Fatalf("batch update: %v", err)
	}
	if affected != 2 {
		t.Errorf("affected: got %d, want 2", affected)
	}
}

func TestFolderStats(t *testing.T) {
	store := newMetadataStore(t)

	statuses := map[string]model.MetadataStatus{
		"a.txt": model.MetadataSynced,
		"b.txt": model.MetadataSynced,
		"c.txt": model.MetadataPending,
		"d.txt": model.MetadataConflict,
		"e.txt": model.MetadataError,
	}
	for path, status := range statuses {
		if err := store.Upsert(&model.FileMetadata{
			Path:         path,
			SyncFolderID: "f1",
			Status:       status,
		}); err != nil {
			t.Fatalf("upsert %s: %v", path, err)
		}
	}

	stats, err := store.FolderStats("f1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.TotalFiles != 5 || stats.SyncedFiles != 2 || stats.PendingFiles != 1 ||
		stats.ConflictFiles != 1 || stats.ErrorFiles != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

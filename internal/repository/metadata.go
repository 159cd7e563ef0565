package repository

import (
	"errors"
	"time"

	"lightsync/internal/errs"
	"lightsync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetadataStore is the single source of truth for per-path sync state, keyed
// by (sync_folder_id, path). Folder IDs partition conflict domains, so
// pipelines for different folders never contend on the same rows.
type MetadataStore struct {
	db *gorm.DB
}

func NewMetadataStore(db *gorm.DB) *MetadataStore {
	return &MetadataStore{db: db}
}

// Upsert inserts or fully overwrites the row for (m.SyncFolderID, m.Path),
// preserving identity fields on update.
func (s *MetadataStore) Upsert(m *model.FileMetadata) error {
	m.UpdatedAt = time.Now()
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sync_folder_id"}, {Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"hash", "e_tag", "size", "modified_at", "synced_at",
			"is_directory", "status", "is_delete", "updated_at",
		}),
	}).Create(m).Error

	return errs.Wrap(errs.KindStorage, "upsert metadata", err)
}

// GetByPath returns the row for (folderID, path), or nil when untracked.
func (s *MetadataStore) GetByPath(folderID, path string) (*model.FileMetadata, error) {
	var m model.FileMetadata
	err := s.db.
		Where("sync_folder_id = ? AND path = ?", folderID, path).
		First(&m).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, "get metadata", err)
	}

	return &m, nil
}

func (s *MetadataStore) ListByFolder(folderID string) ([]model.FileMetadata, error) {
	var rows []model.FileMetadata
	err := s.db.
		Where("sync_folder_id = ?", folderID).
		Order("path").
		Find(&rows).Error

	return rows, errs.Wrap(errs.KindStorage, "list metadata", err)
}

func (s *MetadataStore) ListByStatus(folderID string, status model.MetadataStatus) ([]model.FileMetadata, error) {
	var rows []model.FileMetadata
	err := s.db.
		Where("sync_folder_id = ? AND status = ?", folderID, status).
		Order("path").
		Find(&rows).Error

	return rows, errs.Wrap(errs.KindStorage, "list metadata by status", err)
}

// MarkDeleted tombstones a row, keeping it for audit history and deletion
// propagation.
func (s *MetadataStore) MarkDeleted(id uint) error {
	err := s.db.Model(&model.FileMetadata{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_delete":  true,
			"status":     model.MetadataSynced,
			"updated_at": time.Now(),
		}).Error

	return errs.Wrap(errs.KindStorage, "mark metadata deleted", err)
}

func (s *MetadataStore) Delete(id uint) error {
	err := s.db.Delete(&model.FileMetadata{}, id).Error
	return errs.Wrap(errs.KindStorage, "delete metadata", err)
}

// BatchUpdateStatus rewrites the status of every live row in a folder and
// returns the affected count.
func (s *MetadataStore) BatchUpdateStatus(folderID string, status model.MetadataStatus) (int64, error) {
	res := s.db.Model(&model.FileMetadata{}).
		Where("sync_folder_id = ? AND is_delete = ?", folderID, false).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})

	return res.RowsAffected, errs.Wrap(errs.KindStorage, "batch update status", res.Error)
}

// Stats aggregates per-status counts for the status endpoint.
type Stats struct {
	TotalFiles    int64 `json:"total_files"`
	PendingFiles  int64 `json:"pending_files"`
	SyncedFiles   int64 `json:"synced_files"`
	ConflictFiles int64 `json:"conflict_files"`
	ErrorFiles    int64 `json:"error_files"`
}

func (s *MetadataStore) FolderStats(folderID string) (Stats, error) {
	var stats Stats

	base := func() *gorm.DB {
		return s.db.Model(&model.FileMetadata{}).
			Where("sync_folder_id = ? AND is_delete = ?", folderID, false)
	}

	if err := base().Count(&stats.TotalFiles).Error; err != nil {
		return stats, errs.Wrap(errs.KindStorage, "count metadata", err)
	}

	counts := map[model.MetadataStatus]*int64{
		model.MetadataPending:  &stats.PendingFiles,
		model.MetadataSynced:   &stats.SyncedFiles,
		model.MetadataConflict: &stats.ConflictFiles,
		model.MetadataError:    &stats.ErrorFiles,
	}
	for status, dst := range counts {
		if err := base().Where("status = ?", status).Count(dst).Error; err != nil {
			return stats, errs.Wrap(errs.KindStorage, "count metadata by status", err)
		}
	}

	return stats, nil
}

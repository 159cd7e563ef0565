package repository

import (
	"lightsync/internal/errs"
	"lightsync/internal/model"

	"gorm.io/gorm"
)

// LogStore appends and queries the sync_logs audit trail. Rows are never
// updated after creation.
type LogStore struct {
	db *gorm.DB
}

func NewLogStore(db *gorm.DB) *LogStore {
	return &LogStore{db: db}
}

func (s *LogStore) Append(entry *model.SyncLog) error {
	err := s.db.Create(entry).Error
	return errs.Wrap(errs.KindStorage, "append sync log", err)
}

// LogFilter narrows Query results. Zero values mean "no filter".
type LogFilter struct {
	FolderID string
	Status   model.LogStatus
	Limit    int
	Offset   int
}

func (s *LogStore) Query(filter LogFilter) ([]model.SyncLog, error) {
	q := s.db.Model(&model.SyncLog{}).Order("created_at desc, id desc")

	if filter.FolderID != "" {
		q = q.Where("sync_folder_id = ?", filter.FolderID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	q = q.Limit(limit).Offset(filter.Offset)

	var rows []model.SyncLog
	err := q.Find(&rows).Error
	return rows, errs.Wrap(errs.KindStorage, "query sync logs", err)
}

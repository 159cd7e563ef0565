package repository

import (
	"time"

	"lightsync/internal/errs"
	"lightsync/internal/model"

	"gorm.io/gorm"
)

type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Begin creates a running session row for a folder pipeline run.
func (s *SessionStore) Begin(folderID string) (*model.SyncSession, error) {
	session := &model.SyncSession{
		SyncFolderID: folderID,
		Status:       model.SessionRunning,
		StartedAt:    time.Now(),
	}
	if err := s.db.Create(session).Error; err != nil {
		return nil, errs.Wrap(errs.KindStorage, "begin session", err)
	}

	return session, nil
}

// Save persists the session's current counters and status.
func (s *SessionStore) Save(session *model.SyncSession) error {
	err := s.db.Save(session).Error
	return errs.Wrap(errs.KindStorage, "save session", err)
}

func (s *SessionStore) Recent(folderID string, limit int) ([]model.SyncSession, error) {
	if limit <= 0 {
		limit = 20
	}

	q := s.db.Model(&model.SyncSession{}).Order("started_at desc")
	if folderID != "" {
		q = q.Where("sync_folder_id = ?", folderID)
	}

	var rows []model.SyncSession
	err := q.Limit(limit).Find(&rows).Error
	return rows, errs.Wrap(errs.KindStorage, "query sessions", err)
}

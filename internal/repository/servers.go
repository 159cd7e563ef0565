package repository

import (
	"errors"
	"time"

	"lightsync/internal/errs"
	"lightsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ServerStore struct {
	db *gorm.DB
}

func NewServerStore(db *gorm.DB) *ServerStore {
	return &ServerStore{db: db}
}

func (s *ServerStore) Add(server model.WebDavServer) (model.WebDavServer, error) {
	server.ID = uuid.NewString()
	if server.TimeoutSec == 0 {
		server.TimeoutSec = 30
	}
	if server.ServerType == "" {
		server.ServerType = "generic"
	}
	if server.LastTestStatus == "" {
		server.LastTestStatus = "unknown"
	}
	server.Enabled = true

	if err := server.Validate(); err != nil {
		return server, errs.Wrap(errs.KindConfig, "invalid server config", err)
	}

	err := s.db.Create(&server).Error
	return server, errs.Wrap(errs.KindStorage, "create server", err)
}

func (s *ServerStore) GetAll(enabledOnly bool) ([]model.WebDavServer, error) {
	q := s.db.Order("created_at desc")
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}

	var servers []model.WebDavServer
	err := q.Find(&servers).Error
	return servers, errs.Wrap(errs.KindStorage, "list servers", err)
}

func (s *ServerStore) GetByID(id string) (model.WebDavServer, error) {
	var server model.WebDavServer
	err := s.db.First(&server, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return server, errs.Newf(errs.KindNotFound, "webdav server not found: %s", id)
	}

	return server, errs.Wrap(errs.KindStorage, "get server", err)
}

// RecordTest stores the outcome of a connection test, including the detected
// server type on success.
func (s *ServerStore) RecordTest(id, status, errMsg, serverType string) error {
	updates := map[string]any{
		"last_test_at":     time.Now(),
		"last_test_status": status,
		"last_test_error":  errMsg,
		"updated_at":       time.Now(),
	}
	if serverType != "" {
		updates["server_type"] = serverType
	}

	err := s.db.Model(&model.WebDavServer{}).
		Where("id = ?", id).
		Updates(updates).Error

	return errs.Wrap(errs.KindStorage, "record server test", err)
}

// Delete refuses to remove a server still referenced by a sync folder.
func (s *ServerStore) Delete(id string) error {
	var count int64
	if err := s.db.Model(&model.SyncFolder{}).
		Where("server_id = ?", id).
		Count(&count).Error; err != nil {
		return errs.Wrap(errs.KindStorage, "check server references", err)
	}
	if count > 0 {
		return errs.New(errs.KindConfig, "cannot delete server: it is used by sync folders")
	}

	err := s.db.Delete(&model.WebDavServer{}, "id = ?", id).Error
	return errs.Wrap(errs.KindStorage, "delete server", err)
}

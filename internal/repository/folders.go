package repository

import (
	"errors"

	"lightsync/internal/errs"
	"lightsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FolderStore struct {
	db *gorm.DB
}

func NewFolderStore(db *gorm.DB) *FolderStore {
	return &FolderStore{db: db}
}

// Add validates and persists a new sync folder. The ID is generated here.
func (s *FolderStore) Add(folder model.SyncFolder) (model.SyncFolder, error) {
	folder.ID = uuid.NewString()
	if folder.Direction == "" {
		folder.Direction = model.DirectionBidirectional
	}
	if folder.ConflictPolicy == "" {
		folder.ConflictPolicy = model.PolicyNewerWins
	}
	if folder.IntervalMin == 0 {
		folder.IntervalMin = 10
	}
	folder.Enabled = true

	if err := folder.Validate(); err != nil {
		return folder, errs.Wrap(errs.KindConfig, "invalid folder config", err)
	}

	err := s.db.Create(&folder).Error
	return folder, errs.Wrap(errs.KindStorage, "create folder", err)
}

func (s *FolderStore) GetAll() ([]model.SyncFolder, error) {
	var folders []model.SyncFolder
	err := s.db.Order("created_at").Find(&folders).Error
	return folders, errs.Wrap(errs.KindStorage, "list folders", err)
}

func (s *FolderStore) GetByID(id string) (model.SyncFolder, error) {
	var folder model.SyncFolder
	err := s.db.First(&folder, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return folder, errs.Newf(errs.KindNotFound, "sync folder not found: %s", id)
	}

	return folder, errs.Wrap(errs.KindStorage, "get folder", err)
}

func (s *FolderStore) Delete(id string) error {
	err := s.db.Delete(&model.SyncFolder{}, "id = ?", id).Error
	return errs.Wrap(errs.KindStorage, "delete folder", err)
}

package db

import (
	"fmt"

	"lightsync/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated database handle. The handle is owned by the caller
// and injected into repositories, so multiple pipelines and tests can run
// against isolated stores.
func Open(dbPath string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := gdb.AutoMigrate(
		&model.FileMetadata{},
		&model.SyncLog{},
		&model.SyncSession{},
		&model.SyncFolder{},
		&model.WebDavServer{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return gdb, nil
}

// OpenMemory opens an isolated in-memory database for tests.
func OpenMemory() (*gorm.DB, error) {
	return Open(":memory:")
}

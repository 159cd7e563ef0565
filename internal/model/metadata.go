package model

import "time"

type MetadataStatus string

const (
	MetadataPending  MetadataStatus = "pending"
	MetadataSynced   MetadataStatus = "synced"
	MetadataConflict MetadataStatus = "conflict"
	MetadataError    MetadataStatus = "error"
)

// FileMetadata is the durable record of a tracked path: the last-synced view
// used as the base of three-way reconciliation. Rows are tombstoned via
// IsDelete rather than removed, so deletion propagation stays decidable
// after a crash.
type FileMetadata struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Path         string         `gorm:"not null;uniqueIndex:idx_folder_path" json:"path"`
	Hash         string         `json:"hash"`
	ETag         string         `json:"etag"`
	Size         int64          `json:"size"`
	ModifiedAt   time.Time      `json:"modified_at"`
	SyncedAt     *time.Time     `json:"synced_at"`
	SyncFolderID string         `gorm:"not null;uniqueIndex:idx_folder_path" json:"sync_folder_id"`
	IsDirectory  bool           `json:"is_directory"`
	Status       MetadataStatus `gorm:"not null;default:'pending'" json:"status"`
	IsDelete     bool           `gorm:"not null;default:false" json:"is_delete"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (FileMetadata) TableName() string { return "file_metadata" }

// FileState maps the persisted status to its UI-facing state. The executor's
// in-flight set overrides this with StateSyncing.
func (m FileMetadata) FileState() FileState {
	switch m.Status {
	case MetadataSynced:
		return StateSynced
	case MetadataPending:
		return StatePending
	case MetadataConflict:
		return StateConflict
	case MetadataError:
		return StateError
	default:
		return StateUnknown
	}
}

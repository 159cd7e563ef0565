package model

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

type ConflictPolicy string

const (
	// PolicyNewerWins resolves by comparing modification times. On an exact
	// tie the local side wins.
	PolicyNewerWins ConflictPolicy = "newer-wins"
	// PolicyManual records the conflict and waits for an accept-local,
	// accept-remote or keep-both command.
	PolicyManual ConflictPolicy = "manual"
)

type SyncDirection string

const (
	DirectionBidirectional SyncDirection = "bidirectional"
	DirectionUploadOnly    SyncDirection = "upload-only"
	DirectionDownloadOnly  SyncDirection = "download-only"
)

// SyncFolder pairs one local directory with one path on one WebDAV server.
// Each running pipeline receives an immutable snapshot; edits require a
// restart of the affected pipeline.
type SyncFolder struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"not null" json:"name"`
	LocalPath      string         `gorm:"not null" json:"local_path"`
	RemotePath     string         `gorm:"not null" json:"remote_path"`
	ServerID       string         `gorm:"not null;index" json:"server_id"`
	Direction      SyncDirection  `gorm:"not null;default:'bidirectional'" json:"direction"`
	IntervalMin    int            `gorm:"not null;default:10" json:"interval_min"`
	IgnorePatterns []string       `gorm:"serializer:json" json:"ignore_patterns"`
	ConflictPolicy ConflictPolicy `gorm:"not null;default:'newer-wins'" json:"conflict_policy"`
	Enabled        bool           `gorm:"not null;default:true" json:"enabled"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (SyncFolder) TableName() string { return "sync_folders" }

// Validate checks the folder definition, including that every ignore pattern
// is a well-formed glob. Malformed patterns are rejected here so the match
// path never sees them.
func (f SyncFolder) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("folder name cannot be empty")
	}
	if f.LocalPath == "" {
		return fmt.Errorf("local path cannot be empty")
	}
	if f.RemotePath == "" {
		return fmt.Errorf("remote path cannot be empty")
	}
	if f.ServerID == "" {
		return fmt.Errorf("server id cannot be empty")
	}
	if f.IntervalMin < 1 {
		return fmt.Errorf("sync interval must be at least 1 minute, got %d", f.IntervalMin)
	}

	switch f.Direction {
	case DirectionBidirectional, DirectionUploadOnly, DirectionDownloadOnly:
	default:
		return fmt.Errorf("unknown sync direction: %s", f.Direction)
	}

	switch f.ConflictPolicy {
	case PolicyNewerWins, PolicyManual:
	default:
		return fmt.Errorf("unknown conflict policy: %s", f.ConflictPolicy)
	}

	for _, p := range f.IgnorePatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid ignore pattern: %q", p)
		}
	}

	return nil
}

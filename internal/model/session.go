package model

import "time"

type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// SyncSession is one run of the reconcile+transfer pipeline for a folder.
type SyncSession struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	SyncFolderID    string        `gorm:"not null;index" json:"sync_folder_id"`
	Status          SessionStatus `gorm:"not null" json:"status"`
	StartedAt       time.Time     `gorm:"not null" json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at"`
	FilesUploaded   int           `json:"files_uploaded"`
	FilesDownloaded int           `json:"files_downloaded"`
	FilesDeleted    int           `json:"files_deleted"`
	FilesConflict   int           `json:"files_conflict"`
	ErrorsCount     int           `json:"errors_count"`
	TotalBytes      int64         `json:"total_bytes"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

func (SyncSession) TableName() string { return "sync_sessions" }

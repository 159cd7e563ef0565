package model

import "time"

type SyncAction string

const (
	ActionUpload   SyncAction = "upload"
	ActionDownload SyncAction = "download"
	ActionDelete   SyncAction = "delete"
	ActionConflict SyncAction = "conflict"
)

type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
	LogPending LogStatus = "pending"
)

// SyncLog records one operation attempt. Rows are append-only; a retry
// creates a new row instead of mutating the first.
type SyncLog struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SyncFolderID string     `gorm:"not null;index" json:"sync_folder_id"`
	FilePath     string     `gorm:"not null" json:"file_path"`
	Action       SyncAction `gorm:"not null" json:"action"`
	Status       LogStatus  `gorm:"not null;index" json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	FileSize     int64      `json:"file_size"`
	DurationMs   int64      `json:"duration_ms"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (SyncLog) TableName() string { return "sync_logs" }

package model

import "time"

type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
	EventRename EventType = "RENAME"
)

// FileEvent is one filesystem occurrence, raw from the watcher or settled by
// the batcher. Paths are relative to the sync folder root. OldPath is set
// only for renames.
type FileEvent struct {
	Type      EventType
	Path      string
	OldPath   string
	Timestamp time.Time
}

func NewFileEvent(t EventType, path string) FileEvent {
	return FileEvent{Type: t, Path: path, Timestamp: time.Now()}
}

func NewRenameEvent(oldPath, newPath string) FileEvent {
	return FileEvent{
		Type:      EventRename,
		Path:      newPath,
		OldPath:   oldPath,
		Timestamp: time.Now(),
	}
}

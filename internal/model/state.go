package model

// FileState is the per-path status surfaced to the UI. It is derived from
// persisted metadata plus the executor's in-flight set and never stored.
type FileState string

const (
	StateSynced   FileState = "synced"
	StateSyncing  FileState = "syncing"
	StateConflict FileState = "conflict"
	StateError    FileState = "error"
	StatePending  FileState = "pending"
	StateUnknown  FileState = "unknown"
)

// Priority orders states for folder aggregation:
// Error > Conflict > Syncing > Pending > Synced > Unknown.
func (s FileState) Priority() int {
	switch s {
	case StateError:
		return 6
	case StateConflict:
		return 5
	case StateSyncing:
		return 4
	case StatePending:
		return 3
	case StateSynced:
		return 2
	default:
		return 1
	}
}

// Max returns whichever state has the higher priority.
func (s FileState) Max(other FileState) FileState {
	if s.Priority() >= other.Priority() {
		return s
	}
	return other
}

type WatcherStatus string

const (
	WatcherRunning WatcherStatus = "running"
	WatcherStopped WatcherStatus = "stopped"
	WatcherError   WatcherStatus = "error"
)

// WatcherState is the process-local lifecycle state of one folder pipeline.
type WatcherState struct {
	Status  WatcherStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}

func WatcherStateError(message string) WatcherState {
	return WatcherState{Status: WatcherError, Message: message}
}

func (s WatcherState) IsRunning() bool {
	return s.Status == WatcherRunning
}

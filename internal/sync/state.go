package sync

import (
	"sync"

	"lightsync/internal/model"
	"lightsync/internal/repository"
)

// StateManager derives per-path and per-folder sync state. Persisted
// metadata provides the durable part; the in-flight set layers the
// transient syncing state on top without ever writing it to the store.
type StateManager struct {
	folderID string
	meta     *repository.MetadataStore

	mu       sync.Mutex
	inflight map[string]struct{}
	subs     map[chan StateChange]struct{}
}

func NewStateManager(folderID string, meta *repository.MetadataStore) *StateManager {
	return &StateManager{
		folderID: folderID,
		meta:     meta,
		inflight: make(map[string]struct{}),
		subs:     make(map[chan StateChange]struct{}),
	}
}

// StateChange is pushed to subscribers whenever a path's effective state
// moves.
type StateChange struct {
	Path  string          `json:"path"`
	State model.FileState `json:"state"`
}

// Subscribe registers a listener for state changes. The returned cancel
// detaches it; slow listeners miss changes rather than block transfers.
func (m *StateManager) Subscribe() (<-chan StateChange, func()) {
	ch := make(chan StateChange, 64)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, ch)
		m.mu.Unlock()
	}

	return ch, cancel
}

func (m *StateManager) notify(path string, state model.FileState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.subs {
		select {
		case ch <- StateChange{Path: path, State: state}:
		default:
		}
	}
}

func (m *StateManager) hasSubscribers() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs) > 0
}

// BeginTransfer marks a path as actively transferring.
func (m *StateManager) BeginTransfer(path string) {
	m.mu.Lock()
	m.inflight[path] = struct{}{}
	m.mu.Unlock()

	m.notify(path, model.StateSyncing)
}

// EndTransfer clears the in-flight mark regardless of outcome; the
// persisted status carries the result from here on, and subscribers learn
// it.
func (m *StateManager) EndTransfer(path string) {
	m.mu.Lock()
	delete(m.inflight, path)
	m.mu.Unlock()

	if !m.hasSubscribers() {
		return
	}
	if state, err := m.FileStateOf(path); err == nil {
		m.notify(path, state)
	}
}

func (m *StateManager) isInflight(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[path]
	return ok
}

// FileStateOf resolves the state of one path. In-flight transfers report
// syncing; otherwise the persisted status decides, and an untracked path is
// unknown.
func (m *StateManager) FileStateOf(path string) (model.FileState, error) {
	if m.isInflight(path) {
		return model.StateSyncing, nil
	}

	row, err := m.meta.GetByPath(m.folderID, path)
	if err != nil {
		return model.StateUnknown, err
	}
	if row == nil || row.IsDelete {
		return model.StateUnknown, nil
	}

	return row.FileState(), nil
}

// FolderState reduces every live path to a single state by priority, so one
// errored file surfaces the whole folder as errored.
func (m *StateManager) FolderState() (model.FileState, error) {
	rows, err := m.meta.ListByFolder(m.folderID)
	if err != nil {
		return model.StateUnknown, err
	}

	state := model.StateUnknown
	any := false
	for _, row := range rows {
		if row.IsDelete {
			continue
		}
		any = true

		s := row.FileState()
		if m.isInflight(row.Path) {
			s = model.StateSyncing
		}
		state = state.Max(s)
	}

	if !any {
		return model.StateSynced, nil
	}

	return state, nil
}

// PathState is one row of a folder state snapshot.
type PathState struct {
	Path  string          `json:"path"`
	State model.FileState `json:"state"`
}

// Snapshot lists every live path with its effective state, ordered by path.
func (m *StateManager) Snapshot() ([]PathState, error) {
	rows, err := m.meta.ListByFolder(m.folderID)
	if err != nil {
		return nil, err
	}

	out := make([]PathState, 0, len(rows))
	for _, row := range rows {
		if row.IsDelete {
			continue
		}

		s := row.FileState()
		if m.isInflight(row.Path) {
			s = model.StateSyncing
		}
		out = append(out, PathState{Path: row.Path, State: s})
	}

	return out, nil
}

package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"lightsync/internal/config"
	"lightsync/internal/errs"
	"lightsync/internal/logger"
	"lightsync/internal/model"
	"lightsync/internal/pipeline"
	"lightsync/internal/repository"
	"lightsync/internal/secret"
	"lightsync/internal/watcher"
	"lightsync/internal/webdav"

	"go.uber.org/zap"
)

// Manager owns one pipeline per started sync folder: watcher, ignore
// filter, event batcher, and the reconcile+transfer loop. Folders start and
// stop independently; a failure in one never touches the others.
type Manager struct {
	cfg      *config.Config
	folders  *repository.FolderStore
	servers  *repository.ServerStore
	meta     *repository.MetadataStore
	logs     *repository.LogStore
	sessions *repository.SessionStore
	secrets  secret.Store

	mu        gosync.Mutex
	pipelines map[string]*folderPipeline
}

func NewManager(
	cfg *config.Config,
	folders *repository.FolderStore,
	servers *repository.ServerStore,
	meta *repository.MetadataStore,
	logs *repository.LogStore,
	sessions *repository.SessionStore,
	secrets secret.Store,
) *Manager {
	return &Manager{
		cfg:       cfg,
		folders:   folders,
		servers:   servers,
		meta:      meta,
		logs:      logs,
		sessions:  sessions,
		secrets:   secrets,
		pipelines: make(map[string]*folderPipeline),
	}
}

type folderPipeline struct {
	folder   model.SyncFolder
	cancel   context.CancelFunc
	watcher  *watcher.Watcher
	client   webdav.Client
	root     webdav.Client
	filter   *pipeline.IgnoreFilter
	state    *StateManager
	exec     *Executor
	resolver *Resolver
	syncCh   chan struct{}
	done     chan struct{}

	mu     gosync.Mutex
	wstate model.WatcherState
}

func (p *folderPipeline) setWatcherState(s model.WatcherState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wstate = s
}

func (p *folderPipeline) watcherState() model.WatcherState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wstate
}

// StartAll starts every enabled folder. Folders that fail to start are
// logged and skipped so the rest still come up.
func (m *Manager) StartAll(ctx context.Context) error {
	folders, err := m.folders.GetAll()
	if err != nil {
		return err
	}

	for _, folder := range folders {
		if !folder.Enabled {
			continue
		}
		if err := m.Start(ctx, folder.ID); err != nil {
			logger.Log.Error("failed to start folder pipeline",
				zap.String("folder", folder.Name),
				zap.Error(err))
		}
	}

	return nil
}

// Start brings up the pipeline for one folder. Starting an already running
// folder is a no-op.
func (m *Manager) Start(ctx context.Context, folderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pipelines[folderID]; ok {
		return nil
	}

	fp, err := m.build(folderID)
	if err != nil {
		return err
	}

	w, err := watcher.New(fp.folder.LocalPath, m.cfg.BufferSize)
	if err != nil {
		return errs.Wrap(errs.KindFilesystem, "create watcher", err)
	}
	if err := w.Start(); err != nil {
		return errs.Wrap(errs.KindFilesystem, "start watcher", err)
	}
	fp.watcher = w

	runCtx, cancel := context.WithCancel(ctx)
	fp.cancel = cancel

	batcher := pipeline.NewBatcher(m.cfg.Debounce(), m.cfg.BufferSize)
	settled := batcher.Run(fp.filter.Run(w.Events()))

	fp.setWatcherState(model.WatcherState{Status: model.WatcherRunning})
	m.pipelines[folderID] = fp

	go m.loop(runCtx, fp, settled)

	logger.Log.Info("folder pipeline started",
		zap.String("folder", fp.folder.Name),
		zap.String("local", fp.folder.LocalPath),
		zap.String("remote", fp.folder.RemotePath))

	return nil
}

// build assembles the per-folder collaborators that need no running
// watcher: the scoped client, state manager, executor and resolver.
func (m *Manager) build(folderID string) (*folderPipeline, error) {
	folder, err := m.folders.GetByID(folderID)
	if err != nil {
		return nil, err
	}
	if !folder.Enabled {
		return nil, errs.Newf(errs.KindConfig, "folder %s is disabled", folder.Name)
	}

	server, err := m.servers.GetByID(folder.ServerID)
	if err != nil {
		return nil, err
	}

	password, err := m.secrets.GetPassword(server.ID)
	if err != nil {
		return nil, err
	}

	root, err := webdav.NewHTTPClient(server, password)
	if err != nil {
		return nil, err
	}
	client := webdav.Scope(root, folder.RemotePath)

	filter, err := pipeline.NewIgnoreFilter(folder.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	state := NewStateManager(folder.ID, m.meta)
	exec := NewExecutor(folder, client, m.meta, m.logs, m.sessions, state, ExecutorOptions{
		Workers:    m.cfg.Workers,
		RetryLimit: m.cfg.RetryLimit,
		RetryBase:  m.cfg.RetryBase(),
		HashMax:    m.cfg.HashMaxBytes,
	})
	resolver := NewResolver(folder, client, exec, m.meta, m.cfg.HashMaxBytes)

	return &folderPipeline{
		folder:   folder,
		client:   client,
		root:     root,
		filter:   filter,
		state:    state,
		exec:     exec,
		resolver: resolver,
		syncCh:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		wstate:   model.WatcherState{Status: model.WatcherStopped},
	}, nil
}

// loop is the per-folder sync driver: an initial full cycle, then a cycle
// whenever events settle, the interval elapses, or a manual trigger lands.
func (m *Manager) loop(ctx context.Context, fp *folderPipeline, settled <-chan model.FileEvent) {
	defer close(fp.done)

	if err := webdav.MkcolAll(ctx, fp.root, fp.folder.RemotePath); err != nil {
		logger.Log.Warn("failed to prepare remote root",
			zap.String("folder", fp.folder.Name),
			zap.Error(err))
	}

	m.runCycle(ctx, fp)

	interval := time.Duration(fp.folder.IntervalMin) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case _, ok := <-settled:
			if !ok {
				return
			}
			drainEvents(settled)
			m.runCycle(ctx, fp)

		case <-fp.syncCh:
			m.runCycle(ctx, fp)

		case <-ticker.C:
			m.runCycle(ctx, fp)

		case err, ok := <-fp.watcher.Errors():
			if !ok {
				return
			}
			fp.setWatcherState(model.WatcherStateError(err.Error()))
			logger.Log.Error("watcher failed, stopping pipeline",
				zap.String("folder", fp.folder.Name),
				zap.Error(err))
			return
		}
	}
}

// drainEvents consumes whatever else has already settled so one cycle
// covers a burst.
func drainEvents(settled <-chan model.FileEvent) {
	for {
		select {
		case _, ok := <-settled:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// runCycle performs one full reconcile and transfer pass.
func (m *Manager) runCycle(ctx context.Context, fp *folderPipeline) {
	if ctx.Err() != nil {
		return
	}

	local, err := ScanLocal(fp.folder.LocalPath, fp.filter, m.cfg.HashMaxBytes)
	if err != nil {
		logger.Log.Error("local scan failed",
			zap.String("folder", fp.folder.Name),
			zap.Error(err))
		return
	}

	remote, err := RemoteSnapshot(ctx, fp.client)
	if err != nil {
		logger.Log.Error("remote listing failed",
			zap.String("folder", fp.folder.Name),
			zap.String("kind", errs.KindOf(err).String()),
			zap.Error(err))
		return
	}

	rows, err := m.meta.ListByFolder(fp.folder.ID)
	if err != nil {
		logger.Log.Error("metadata load failed",
			zap.String("folder", fp.folder.Name),
			zap.Error(err))
		return
	}
	base := make(map[string]model.FileMetadata, len(rows))
	for _, row := range rows {
		base[row.Path] = row
	}

	rec := NewReconciler(fp.folder.ConflictPolicy, fp.folder.Direction)
	plan := rec.Plan(local, remote, base)
	if len(plan) == 0 {
		logger.Log.Debug("nothing to sync",
			zap.String("folder", fp.folder.Name))
		return
	}

	if _, err := fp.exec.Run(ctx, plan); err != nil {
		logger.Log.Error("sync session bookkeeping failed",
			zap.String("folder", fp.folder.Name),
			zap.Error(err))
	}
}

// Stop tears down one folder pipeline and waits for its loop to exit.
func (m *Manager) Stop(folderID string) error {
	m.mu.Lock()
	fp, ok := m.pipelines[folderID]
	if ok {
		delete(m.pipelines, folderID)
	}
	m.mu.Unlock()

	if !ok {
		return errs.Newf(errs.KindNotFound, "folder %s is not running", folderID)
	}

	// Stop the watcher first: closing its event stream lets the batcher
	// flush pending events, and the loop syncs them in a final cycle before
	// the settled channel closes.
	fp.watcher.Stop()
	<-fp.done
	fp.cancel()
	fp.setWatcherState(model.WatcherState{Status: model.WatcherStopped})

	logger.Log.Info("folder pipeline stopped",
		zap.String("folder", fp.folder.Name))

	return nil
}

// StopAll stops every running pipeline. Used on daemon shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.pipelines))
	for id := range m.pipelines {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Stop(id); err != nil {
			logger.Log.Warn("failed to stop pipeline",
				zap.String("folder_id", id),
				zap.Error(err))
		}
	}
}

// TriggerSync requests an immediate cycle for a running folder. A cycle
// already pending absorbs the request.
func (m *Manager) TriggerSync(folderID string) error {
	m.mu.Lock()
	fp, ok := m.pipelines[folderID]
	m.mu.Unlock()

	if !ok {
		return errs.Newf(errs.KindNotFound, "folder %s is not running", folderID)
	}

	select {
	case fp.syncCh <- struct{}{}:
	default:
	}

	return nil
}

// Subscribe attaches a state-change listener to a running folder pipeline.
func (m *Manager) Subscribe(folderID string) (<-chan StateChange, func(), error) {
	m.mu.Lock()
	fp, ok := m.pipelines[folderID]
	m.mu.Unlock()

	if !ok {
		return nil, nil, errs.Newf(errs.KindNotFound, "folder %s is not running", folderID)
	}

	ch, cancel := fp.state.Subscribe()
	return ch, cancel, nil
}

// Resolve applies a conflict verdict. The folder does not need to be
// running; a transient resolver is built on demand.
func (m *Manager) Resolve(ctx context.Context, folderID, path string, res Resolution) (*model.SyncSession, error) {
	m.mu.Lock()
	fp, ok := m.pipelines[folderID]
	m.mu.Unlock()

	if !ok {
		built, err := m.build(folderID)
		if err != nil {
			return nil, err
		}
		fp = built
	}

	return fp.resolver.Resolve(ctx, path, res)
}

// FolderStatus is the aggregate view of one folder for the status API.
type FolderStatus struct {
	Folder  model.SyncFolder   `json:"folder"`
	Watcher model.WatcherState `json:"watcher"`
	State   model.FileState    `json:"state"`
	Stats   repository.Stats   `json:"stats"`
}

func (m *Manager) Status(folderID string) (FolderStatus, error) {
	folder, err := m.folders.GetByID(folderID)
	if err != nil {
		return FolderStatus{}, err
	}

	status := FolderStatus{
		Folder:  folder,
		Watcher: model.WatcherState{Status: model.WatcherStopped},
	}

	m.mu.Lock()
	fp, running := m.pipelines[folderID]
	m.mu.Unlock()

	var state *StateManager
	if running {
		status.Watcher = fp.watcherState()
		state = fp.state
	} else {
		state = NewStateManager(folderID, m.meta)
	}

	status.State, err = state.FolderState()
	if err != nil {
		return status, err
	}
	status.Stats, err = m.meta.FolderStats(folderID)

	return status, err
}

func (m *Manager) StatusAll() ([]FolderStatus, error) {
	folders, err := m.folders.GetAll()
	if err != nil {
		return nil, err
	}

	out := make([]FolderStatus, 0, len(folders))
	for _, folder := range folders {
		status, err := m.Status(folder.ID)
		if err != nil {
			return nil, fmt.Errorf("status for %s: %w", folder.Name, err)
		}
		out = append(out, status)
	}

	return out, nil
}

// Files lists per-path states for a folder, using the live in-flight set
// when the pipeline is running.
func (m *Manager) Files(folderID string) ([]PathState, error) {
	m.mu.Lock()
	fp, running := m.pipelines[folderID]
	m.mu.Unlock()

	if running {
		return fp.state.Snapshot()
	}

	return NewStateManager(folderID, m.meta).Snapshot()
}

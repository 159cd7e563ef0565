package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	gosync "sync"
	"time"

	"lightsync/internal/errs"
	"lightsync/internal/logger"
	"lightsync/internal/model"
	"lightsync/internal/pipeline"
	"lightsync/internal/repository"
	"lightsync/internal/util"
	"lightsync/internal/webdav"

	"go.uber.org/zap"
)

// Executor runs a reconciliation plan against disk and the remote server.
// Transfers fan out over a bounded worker pool; deletes run afterwards in
// plan order so children vanish before their parents. A failing path is
// recorded and skipped, never fatal for the rest of the plan.
type Executor struct {
	folder   model.SyncFolder
	client   webdav.Client
	meta     *repository.MetadataStore
	logs     *repository.LogStore
	sessions *repository.SessionStore
	state    *StateManager

	workers    int
	retryLimit int
	retryBase  time.Duration
	hashMax    int64

	mu         gosync.Mutex
	remoteDirs map[string]struct{}
}

type ExecutorOptions struct {
	Workers    int
	RetryLimit int
	RetryBase  time.Duration
	HashMax    int64
}

func NewExecutor(
	folder model.SyncFolder,
	client webdav.Client,
	meta *repository.MetadataStore,
	logs *repository.LogStore,
	sessions *repository.SessionStore,
	state *StateManager,
	opts ExecutorOptions,
) *Executor {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.RetryLimit < 0 {
		opts.RetryLimit = 0
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}

	return &Executor{
		folder:     folder,
		client:     client,
		meta:       meta,
		logs:       logs,
		sessions:   sessions,
		state:      state,
		workers:    opts.Workers,
		retryLimit: opts.RetryLimit,
		retryBase:  opts.RetryBase,
		hashMax:    opts.HashMax,
		remoteDirs: make(map[string]struct{}),
	}
}

// Run executes the plan inside a new session and returns the finalized
// session row. Cancellation stops dispatching new work; actions already
// in flight finish their current attempt.
func (e *Executor) Run(ctx context.Context, actions []Action) (*model.SyncSession, error) {
	session, err := e.sessions.Begin(e.folder.ID)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("sync session started",
		zap.String("folder", e.folder.Name),
		zap.Uint("session", session.ID),
		zap.Int("actions", len(actions)))

	var transfers, deletes []Action
	for _, action := range actions {
		switch action.Op {
		case OpDeleteLocal, OpDeleteRemote:
			deletes = append(deletes, action)
		default:
			transfers = append(transfers, action)
		}
	}

	e.runTransfers(ctx, session, transfers)
	e.runDeletes(ctx, session, deletes)

	e.finalize(ctx, session)
	if err := e.sessions.Save(session); err != nil {
		return session, err
	}

	logger.Log.Info("sync session finished",
		zap.String("folder", e.folder.Name),
		zap.Uint("session", session.ID),
		zap.String("status", string(session.Status)),
		zap.Int("uploaded", session.FilesUploaded),
		zap.Int("downloaded", session.FilesDownloaded),
		zap.Int("deleted", session.FilesDeleted),
		zap.Int("conflicts", session.FilesConflict),
		zap.Int("errors", session.ErrorsCount))

	return session, nil
}

// runTransfers fans the upload/download/bookkeeping actions over the worker
// pool. Cancellation stops dispatching.
func (e *Executor) runTransfers(ctx context.Context, session *model.SyncSession, actions []Action) {
	jobs := make(chan Action)
	var wg gosync.WaitGroup

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for action := range jobs {
				e.execute(ctx, session, action)
			}
		}()
	}

	for _, action := range actions {
		if ctx.Err() != nil {
			break
		}
		jobs <- action
	}
	close(jobs)
	wg.Wait()
}

// runDeletes executes deletions sequentially, preserving the plan's
// children-before-parents order.
func (e *Executor) runDeletes(ctx context.Context, session *model.SyncSession, actions []Action) {
	for _, action := range actions {
		if ctx.Err() != nil {
			break
		}
		e.execute(ctx, session, action)
	}
}

func (e *Executor) execute(ctx context.Context, session *model.SyncSession, action Action) {
	e.state.BeginTransfer(action.Path)
	defer e.state.EndTransfer(action.Path)

	switch action.Op {
	case OpConflict:
		e.recordConflict(session, action)
		return
	case OpUpdateBase:
		if err := e.updateBase(action); err != nil {
			e.recordFailure(session, action, err)
		}
		return
	case OpTombstoneBase:
		if err := e.tombstoneBase(action.Path); err != nil {
			e.recordFailure(session, action, err)
		}
		return
	}

	err := e.withRetry(ctx, action, func() error {
		switch action.Op {
		case OpUpload:
			return e.upload(ctx, action)
		case OpDownload:
			return e.download(ctx, action)
		case OpDeleteRemote:
			return e.deleteRemote(ctx, action)
		case OpDeleteLocal:
			return e.deleteLocal(action)
		default:
			return errs.Newf(errs.KindUnknown, "unexpected op %s", action.Op)
		}
	})
	if err != nil {
		e.recordFailure(session, action, err)
		return
	}

	e.count(session, action)
}

// withRetry runs op, retrying transient failures with exponential backoff.
// Every attempt gets its own log row.
func (e *Executor) withRetry(ctx context.Context, action Action, op func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		start := time.Now()
		err = op()
		e.appendLog(action, err, time.Since(start))

		if err == nil {
			return nil
		}
		if attempt >= e.retryLimit || !errs.Retryable(err) {
			return err
		}

		backoff := e.retryBase << attempt
		logger.Log.Warn("transfer failed, retrying",
			zap.String("path", action.Path),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
	}
}

func (e *Executor) upload(ctx context.Context, action Action) error {
	if action.IsDirectory {
		if err := e.ensureRemoteDir(ctx, action.Path); err != nil {
			return err
		}
		return e.saveBaseLocal(action.Path, action.Local)
	}

	abs := e.localAbs(action.Path)
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		// Deleted between plan and execution; the next cycle handles it.
		logger.Log.Debug("upload source vanished, skipping",
			zap.String("path", action.Path))
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.KindFilesystem, fmt.Sprintf("read %s", action.Path), err)
	}

	if parent := path.Dir(action.Path); parent != "." {
		if err := e.ensureRemoteDir(ctx, parent); err != nil {
			return err
		}
	}
	etag, err := e.client.Put(ctx, action.Path, data)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return errs.Wrap(errs.KindFilesystem, fmt.Sprintf("stat %s", action.Path), err)
	}

	return e.saveBase(action.Path, model.FileMetadata{
		Hash:       e.digest(data),
		ETag:       etag,
		Size:       int64(len(data)),
		ModifiedAt: info.ModTime(),
	})
}

// digest hashes transferred content, honoring the same size cap as the
// scanner so base rows stay comparable.
func (e *Executor) digest(data []byte) string {
	if e.hashMax > 0 && int64(len(data)) > e.hashMax {
		return ""
	}
	return pipeline.HashBytes(data)
}

func (e *Executor) download(ctx context.Context, action Action) error {
	abs := e.localAbs(action.Path)

	if action.IsDirectory {
		if err := os.MkdirAll(abs, 0755); err != nil {
			return errs.Wrap(errs.KindFilesystem, fmt.Sprintf("mkdir %s", action.Path), err)
		}
		return e.saveBase(action.Path, model.FileMetadata{IsDirectory: true})
	}

	data, err := e.client.Get(ctx, action.Path)
	if err != nil {
		return err
	}
	if err := util.AtomicWrite(abs, bytes.NewReader(data)); err != nil {
		return errs.Wrap(errs.KindFilesystem, fmt.Sprintf("write %s", action.Path), err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return errs.Wrap(errs.KindFilesystem, fmt.Sprintf("stat %s", action.Path), err)
	}

	m := model.FileMetadata{
		Hash:       e.digest(data),
		Size:       int64(len(data)),
		ModifiedAt: info.ModTime(),
	}
	if action.Remote != nil {
		m.ETag = action.Remote.ETag
	}

	return e.saveBase(action.Path, m)
}

func (e *Executor) deleteRemote(ctx context.Context, action Action) error {
	if err := e.client.Delete(ctx, action.Path); err != nil {
		return err
	}

	return e.tombstoneBase(action.Path)
}

func (e *Executor) deleteLocal(action Action) error {
	abs := e.localAbs(action.Path)

	var err error
	if action.IsDirectory {
		err = os.RemoveAll(abs)
	} else {
		err = util.RemoveIfExists(abs)
	}
	if err != nil {
		return errs.Wrap(errs.KindFilesystem, fmt.Sprintf("remove %s", action.Path), err)
	}

	return e.tombstoneBase(action.Path)
}

// ensureRemoteDir creates a collection and any missing ancestors, caching
// what it has already created so concurrent uploads don't repeat the work.
func (e *Executor) ensureRemoteDir(ctx context.Context, dir string) error {
	if dir == "" || dir == "." {
		return nil
	}

	e.mu.Lock()
	_, ok := e.remoteDirs[dir]
	e.mu.Unlock()
	if ok {
		return nil
	}

	if parent := path.Dir(dir); parent != "." {
		if err := e.ensureRemoteDir(ctx, parent); err != nil {
			return err
		}
	}
	if err := e.client.Mkcol(ctx, dir); err != nil {
		return err
	}

	e.mu.Lock()
	e.remoteDirs[dir] = struct{}{}
	e.mu.Unlock()

	return nil
}

// saveBase records a freshly synced view of a path.
func (e *Executor) saveBase(p string, m model.FileMetadata) error {
	now := time.Now()
	m.Path = p
	m.SyncFolderID = e.folder.ID
	m.SyncedAt = &now
	m.Status = model.MetadataSynced
	m.IsDelete = false

	return e.meta.Upsert(&m)
}

func (e *Executor) saveBaseLocal(p string, l *LocalEntry) error {
	m := model.FileMetadata{IsDirectory: true}
	if l != nil {
		m.Hash = l.Hash
		m.Size = l.Size
		m.ModifiedAt = l.ModTime
		m.IsDirectory = l.IsDirectory
	}

	return e.saveBase(p, m)
}

// updateBase refreshes the base from the local view when both sides already
// agree on content.
func (e *Executor) updateBase(action Action) error {
	if action.Local != nil {
		m := model.FileMetadata{
			Hash:        action.Local.Hash,
			Size:        action.Local.Size,
			ModifiedAt:  action.Local.ModTime,
			IsDirectory: action.Local.IsDirectory,
		}
		if action.Remote != nil {
			m.ETag = action.Remote.ETag
		}
		return e.saveBase(action.Path, m)
	}

	return e.saveBaseLocal(action.Path, nil)
}

func (e *Executor) tombstoneBase(p string) error {
	row, err := e.meta.GetByPath(e.folder.ID, p)
	if err != nil {
		return err
	}
	if row == nil || row.IsDelete {
		return nil
	}

	return e.meta.MarkDeleted(row.ID)
}

// recordConflict persists the conflict for manual resolution and logs it as
// pending.
func (e *Executor) recordConflict(session *model.SyncSession, action Action) {
	m := model.FileMetadata{
		Path:         action.Path,
		SyncFolderID: e.folder.ID,
		Status:       model.MetadataConflict,
	}
	if action.Local != nil {
		m.Hash = action.Local.Hash
		m.Size = action.Local.Size
		m.ModifiedAt = action.Local.ModTime
	}
	if action.Base != nil {
		m.SyncedAt = action.Base.SyncedAt
	}
	if err := e.meta.Upsert(&m); err != nil {
		e.recordFailure(session, action, err)
		return
	}

	entry := &model.SyncLog{
		SyncFolderID: e.folder.ID,
		FilePath:     action.Path,
		Action:       model.ActionConflict,
		Status:       model.LogPending,
		ErrorMessage: action.Reason,
	}
	if err := e.logs.Append(entry); err != nil {
		logger.Log.Error("failed to log conflict",
			zap.String("path", action.Path),
			zap.Error(err))
	}

	e.mu.Lock()
	session.FilesConflict++
	e.mu.Unlock()

	logger.Log.Warn("conflict detected",
		zap.String("folder", e.folder.Name),
		zap.String("path", action.Path),
		zap.String("reason", action.Reason))
}

// recordFailure marks the path errored and counts it against the session.
// Other paths keep syncing.
func (e *Executor) recordFailure(session *model.SyncSession, action Action, err error) {
	logger.Log.Error("sync action failed",
		zap.String("folder", e.folder.Name),
		zap.String("path", action.Path),
		zap.String("op", string(action.Op)),
		zap.Error(err))

	m := model.FileMetadata{
		Path:         action.Path,
		SyncFolderID: e.folder.ID,
		Status:       model.MetadataError,
		IsDirectory:  action.IsDirectory,
	}
	if action.Local != nil {
		m.Hash = action.Local.Hash
		m.Size = action.Local.Size
		m.ModifiedAt = action.Local.ModTime
	}
	if action.Base != nil {
		m.SyncedAt = action.Base.SyncedAt
	}
	if uerr := e.meta.Upsert(&m); uerr != nil {
		logger.Log.Error("failed to record error state",
			zap.String("path", action.Path),
			zap.Error(uerr))
	}

	e.mu.Lock()
	session.ErrorsCount++
	e.mu.Unlock()
}

func (e *Executor) appendLog(action Action, err error, elapsed time.Duration) {
	entry := &model.SyncLog{
		SyncFolderID: e.folder.ID,
		FilePath:     action.Path,
		Action:       logAction(action.Op),
		Status:       model.LogSuccess,
		DurationMs:   elapsed.Milliseconds(),
	}
	if action.Local != nil {
		entry.FileSize = action.Local.Size
	} else if action.Remote != nil {
		entry.FileSize = action.Remote.Size
	}
	if err != nil {
		entry.Status = model.LogFailed
		entry.ErrorMessage = err.Error()
	}

	if aerr := e.logs.Append(entry); aerr != nil {
		logger.Log.Error("failed to append sync log",
			zap.String("path", action.Path),
			zap.Error(aerr))
	}
}

func (e *Executor) count(session *model.SyncSession, action Action) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch action.Op {
	case OpUpload:
		session.FilesUploaded++
		if action.Local != nil {
			session.TotalBytes += action.Local.Size
		}
	case OpDownload:
		session.FilesDownloaded++
		if action.Remote != nil {
			session.TotalBytes += action.Remote.Size
		}
	case OpDeleteLocal, OpDeleteRemote:
		session.FilesDeleted++
	}
}

// finalize stamps the terminal status. Cancellation wins; otherwise any
// failed path marks the whole session failed.
func (e *Executor) finalize(ctx context.Context, session *model.SyncSession) {
	now := time.Now()
	session.CompletedAt = &now

	switch {
	case ctx.Err() != nil:
		session.Status = model.SessionCancelled
		session.ErrorMessage = "sync cancelled"
	case session.ErrorsCount > 0:
		session.Status = model.SessionFailed
		session.ErrorMessage = fmt.Sprintf("%d path(s) failed", session.ErrorsCount)
	default:
		session.Status = model.SessionCompleted
	}
}

func (e *Executor) localAbs(rel string) string {
	return filepath.Join(e.folder.LocalPath, filepath.FromSlash(rel))
}

func logAction(op Op) model.SyncAction {
	switch op {
	case OpUpload:
		return model.ActionUpload
	case OpDownload:
		return model.ActionDownload
	case OpDeleteLocal, OpDeleteRemote:
		return model.ActionDelete
	default:
		return model.ActionConflict
	}
}

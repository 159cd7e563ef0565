package sync

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"lightsync/internal/errs"
	"lightsync/internal/logger"
	"lightsync/internal/model"
	"lightsync/internal/webdav"

	"go.uber.org/zap"
)

// Resolution is the user's verdict on a recorded conflict.
type Resolution string

const (
	ResolveAcceptLocal  Resolution = "accept-local"
	ResolveAcceptRemote Resolution = "accept-remote"
	ResolveKeepBoth     Resolution = "keep-both"
)

func ParseResolution(s string) (Resolution, error) {
	switch Resolution(s) {
	case ResolveAcceptLocal, ResolveAcceptRemote, ResolveKeepBoth:
		return Resolution(s), nil
	default:
		return "", errs.Newf(errs.KindConfig, "unknown resolution %q", s)
	}
}

// Resolver turns a conflict verdict into a small action plan and hands it to
// the executor, so resolutions get the same retries, logging and session
// accounting as regular syncs.
type Resolver struct {
	folder  model.SyncFolder
	client  webdav.Client
	exec    *Executor
	meta    metadataReader
	hashMax int64
}

type metadataReader interface {
	GetByPath(folderID, path string) (*model.FileMetadata, error)
}

func NewResolver(
	folder model.SyncFolder,
	client webdav.Client,
	exec *Executor,
	meta metadataReader,
	hashMax int64,
) *Resolver {
	return &Resolver{
		folder:  folder,
		client:  client,
		exec:    exec,
		meta:    meta,
		hashMax: hashMax,
	}
}

// Resolve applies the verdict to one conflicted path. Accept-local pushes
// the local version (or deletes the remote when the local side is gone);
// accept-remote mirrors that; keep-both renames the local file to a
// conflict copy, uploads it, and downloads the remote version into the
// original name.
func (r *Resolver) Resolve(ctx context.Context, relPath string, res Resolution) (*model.SyncSession, error) {
	row, err := r.meta.GetByPath(r.folder.ID, relPath)
	if err != nil {
		return nil, err
	}
	if row == nil || row.IsDelete {
		return nil, errs.Newf(errs.KindNotFound, "no tracked file at %q", relPath)
	}
	if row.Status != model.MetadataConflict {
		return nil, errs.Newf(errs.KindConflict, "%q is not in conflict", relPath)
	}

	local, err := StatLocal(r.folder.LocalPath, relPath, r.hashMax)
	if err != nil {
		return nil, err
	}
	remote, err := r.remoteEntry(ctx, relPath)
	if err != nil {
		return nil, err
	}

	actions, err := r.plan(relPath, res, local, remote, row)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("resolving conflict",
		zap.String("folder", r.folder.Name),
		zap.String("path", relPath),
		zap.String("resolution", string(res)))

	return r.exec.Run(ctx, actions)
}

func (r *Resolver) plan(
	relPath string,
	res Resolution,
	local *LocalEntry,
	remote *webdav.Entry,
	row *model.FileMetadata,
) ([]Action, error) {
	switch res {
	case ResolveAcceptLocal:
		if local == nil {
			if remote == nil {
				return []Action{{Op: OpTombstoneBase, Path: relPath, Base: row}}, nil
			}
			return []Action{{Op: OpDeleteRemote, Path: relPath, Remote: remote, Base: row}}, nil
		}
		return []Action{{Op: OpUpload, Path: relPath, Local: local, Base: row}}, nil

	case ResolveAcceptRemote:
		if remote == nil {
			if local == nil {
				return []Action{{Op: OpTombstoneBase, Path: relPath, Base: row}}, nil
			}
			return []Action{{Op: OpDeleteLocal, Path: relPath, Local: local, Base: row}}, nil
		}
		return []Action{{Op: OpDownload, Path: relPath, Remote: remote, Base: row}}, nil

	case ResolveKeepBoth:
		if local == nil || remote == nil {
			// One side is a deletion; there is only one version to keep.
			if local != nil {
				return []Action{{Op: OpUpload, Path: relPath, Local: local, Base: row}}, nil
			}
			if remote != nil {
				return []Action{{Op: OpDownload, Path: relPath, Remote: remote, Base: row}}, nil
			}
			return []Action{{Op: OpTombstoneBase, Path: relPath, Base: row}}, nil
		}

		copyRel := conflictCopyName(relPath, time.Now())
		if err := r.renameLocal(relPath, copyRel); err != nil {
			return nil, err
		}

		copyEntry, err := StatLocal(r.folder.LocalPath, copyRel, r.hashMax)
		if err != nil {
			return nil, err
		}
		if copyEntry == nil {
			return nil, errs.Newf(errs.KindFilesystem, "conflict copy %q vanished", copyRel)
		}

		return []Action{
			{Op: OpUpload, Path: copyRel, Local: copyEntry},
			{Op: OpDownload, Path: relPath, Remote: remote, Base: row},
		}, nil

	default:
		return nil, errs.Newf(errs.KindConfig, "unknown resolution %q", res)
	}
}

func (r *Resolver) renameLocal(from, to string) error {
	src := filepath.Join(r.folder.LocalPath, filepath.FromSlash(from))
	dst := filepath.Join(r.folder.LocalPath, filepath.FromSlash(to))

	if err := os.Rename(src, dst); err != nil {
		return errs.Wrap(errs.KindFilesystem, fmt.Sprintf("rename %s", from), err)
	}

	return nil
}

// remoteEntry looks the path up in its parent's listing, nil when gone.
func (r *Resolver) remoteEntry(ctx context.Context, relPath string) (*webdav.Entry, error) {
	parent := path.Dir(relPath)
	if parent == "." {
		parent = ""
	}

	entries, err := r.client.List(ctx, parent)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.Path == relPath {
			e := entry
			return &e, nil
		}
	}

	return nil, nil
}

// conflictCopyName derives "name (conflict copy 2006-01-02 150405).ext" next
// to the original.
func conflictCopyName(relPath string, at time.Time) string {
	dir := path.Dir(relPath)
	base := path.Base(relPath)
	ext := path.Ext(base)
	stem := base[:len(base)-len(ext)]

	name := fmt.Sprintf("%s (conflict copy %s)%s",
		stem, at.Format("2006-01-02 150405"), ext)
	if dir == "." {
		return name
	}

	return path.Join(dir, name)
}

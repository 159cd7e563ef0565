package sync

import (
	"sort"

	"lightsync/internal/model"
	"lightsync/internal/webdav"
)

// Op is one reconciliation outcome for a path.
type Op string

const (
	OpNone          Op = "none"
	OpUpload        Op = "upload"
	OpDownload      Op = "download"
	OpDeleteLocal   Op = "delete-local"
	OpDeleteRemote  Op = "delete-remote"
	OpConflict      Op = "conflict"
	OpUpdateBase    Op = "update-base"    // both sides already agree; record it
	OpTombstoneBase Op = "tombstone-base" // both sides deleted; tombstone the row
)

// Action is one unit of work for the transfer executor.
type Action struct {
	Op          Op
	Path        string
	IsDirectory bool
	Local       *LocalEntry
	Remote      *webdav.Entry
	Base        *model.FileMetadata
	Reason      string
}

// Reconciler classifies every path by comparing three views: current local
// disk, current remote listing, and the last-synced metadata base. It is a
// pure decision component; all I/O belongs to the executor.
type Reconciler struct {
	policy    model.ConflictPolicy
	direction model.SyncDirection
}

func NewReconciler(policy model.ConflictPolicy, direction model.SyncDirection) *Reconciler {
	if policy == "" {
		policy = model.PolicyNewerWins
	}
	if direction == "" {
		direction = model.DirectionBidirectional
	}

	return &Reconciler{policy: policy, direction: direction}
}

// Plan computes the ordered action list for the union of all known paths.
// Transfers come first, parents before children; deletes follow, children
// before parents.
func (r *Reconciler) Plan(
	local map[string]LocalEntry,
	remote map[string]webdav.Entry,
	base map[string]model.FileMetadata,
) []Action {
	paths := unionPaths(local, remote, base)

	var transfers, deletes []Action
	for _, p := range paths {
		action := r.classify(p, local, remote, base)
		action = r.applyDirection(action)

		switch action.Op {
		case OpNone:
		case OpDeleteLocal, OpDeleteRemote:
			deletes = append(deletes, action)
		default:
			transfers = append(transfers, action)
		}
	}

	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].Path < transfers[j].Path
	})
	sort.SliceStable(deletes, func(i, j int) bool {
		return deletes[i].Path > deletes[j].Path
	})

	return append(transfers, deletes...)
}

func (r *Reconciler) classify(
	p string,
	localSet map[string]LocalEntry,
	remoteSet map[string]webdav.Entry,
	baseSet map[string]model.FileMetadata,
) Action {
	action := Action{Op: OpNone, Path: p}

	if l, ok := localSet[p]; ok {
		entry := l
		action.Local = &entry
		action.IsDirectory = entry.IsDirectory
	}
	if rm, ok := remoteSet[p]; ok {
		entry := rm
		action.Remote = &entry
		action.IsDirectory = action.IsDirectory || entry.IsDirectory
	}
	if b, ok := baseSet[p]; ok && !b.IsDelete {
		row := b
		action.Base = &row
		action.IsDirectory = action.IsDirectory || row.IsDirectory
	}

	if action.IsDirectory {
		return r.classifyDirectory(action)
	}

	localChanged := localDiffers(action.Local, action.Base)
	remoteChanged := remoteDiffers(action.Remote, action.Base)

	switch {
	case !localChanged && !remoteChanged:
		action.Op = OpNone

	case localChanged && !remoteChanged:
		if action.Local == nil {
			if action.Remote == nil {
				// Remote never materialized; just forget the path.
				action.Op = OpTombstoneBase
			} else {
				action.Op = OpDeleteRemote
				action.Reason = "deleted locally"
			}
		} else {
			action.Op = OpUpload
			action.Reason = "changed locally"
		}

	case !localChanged && remoteChanged:
		if action.Remote == nil {
			if action.Local == nil {
				action.Op = OpTombstoneBase
			} else {
				action.Op = OpDeleteLocal
				action.Reason = "deleted remotely"
			}
		} else {
			action.Op = OpDownload
			action.Reason = "changed remotely"
		}

	default: // both changed
		switch {
		case action.Local == nil && action.Remote == nil:
			action.Op = OpTombstoneBase

		case action.Local != nil && action.Remote != nil &&
			sameLocalRemote(*action.Local, *action.Remote):
			// Both sides converged on the same content; only the base
			// needs to catch up.
			action.Op = OpUpdateBase

		default:
			return r.resolveConflict(action)
		}
	}

	return action
}

// classifyDirectory handles collection paths, which carry no content and
// only need existence propagated.
func (r *Reconciler) classifyDirectory(action Action) Action {
	hasLocal := action.Local != nil
	hasRemote := action.Remote != nil
	hasBase := action.Base != nil

	switch {
	case hasLocal && hasRemote:
		if hasBase {
			action.Op = OpNone
		} else {
			action.Op = OpUpdateBase
		}
	case hasLocal && !hasRemote:
		if hasBase {
			action.Op = OpDeleteLocal
			action.Reason = "directory deleted remotely"
		} else {
			action.Op = OpUpload
			action.Reason = "new local directory"
		}
	case !hasLocal && hasRemote:
		if hasBase {
			action.Op = OpDeleteRemote
			action.Reason = "directory deleted locally"
		} else {
			action.Op = OpDownload
			action.Reason = "new remote directory"
		}
	default:
		if hasBase {
			action.Op = OpTombstoneBase
		} else {
			action.Op = OpNone
		}
	}

	return action
}

// resolveConflict applies the folder's conflict policy to a both-changed
// path. Manual policy records the conflict; newer-wins picks a side by
// modification time, with local winning exact ties. A deletion has no
// timestamp, so under newer-wins the surviving edit always wins over it.
func (r *Reconciler) resolveConflict(action Action) Action {
	if r.policy == model.PolicyManual {
		action.Op = OpConflict
		action.Reason = conflictReason(action)
		return action
	}

	switch {
	case action.Local == nil:
		action.Op = OpDownload
		action.Reason = "remote edit wins over local delete"
	case action.Remote == nil:
		action.Op = OpUpload
		action.Reason = "local edit wins over remote delete"
	case action.Remote.Modified.After(action.Local.ModTime):
		action.Op = OpDownload
		action.Reason = "remote newer"
	default:
		action.Op = OpUpload
		action.Reason = "local newer"
	}

	return action
}

func conflictReason(action Action) string {
	switch {
	case action.Local == nil:
		return "local delete vs remote edit"
	case action.Remote == nil:
		return "local edit vs remote delete"
	default:
		return "both sides changed"
	}
}

// applyDirection suppresses actions a one-way folder must not take.
func (r *Reconciler) applyDirection(action Action) Action {
	switch r.direction {
	case model.DirectionUploadOnly:
		if action.Op == OpDownload || action.Op == OpDeleteLocal {
			action.Op = OpNone
		}
	case model.DirectionDownloadOnly:
		if action.Op == OpUpload || action.Op == OpDeleteRemote {
			action.Op = OpNone
		}
	}

	return action
}

// localDiffers reports whether the local side moved relative to the base.
// Content hashes decide when both are known; otherwise size and mtime
// (second resolution) stand in.
func localDiffers(l *LocalEntry, b *model.FileMetadata) bool {
	if b == nil {
		return l != nil
	}
	if l == nil {
		return true
	}
	if l.Hash != "" && b.Hash != "" {
		return l.Hash != b.Hash
	}

	return l.Size != b.Size || l.ModTime.Unix() != b.ModifiedAt.Unix()
}

// remoteDiffers reports whether the remote side moved relative to the base.
// ETags decide when both are known; they change on every remote write, so
// they catch same-size, same-second edits. Without them, size plus
// modification-after-last-sync is the signal.
func remoteDiffers(rm *webdav.Entry, b *model.FileMetadata) bool {
	if b == nil {
		return rm != nil
	}
	if rm == nil {
		return true
	}
	if rm.ETag != "" && b.ETag != "" {
		return rm.ETag != b.ETag
	}
	if b.SyncedAt == nil {
		return true
	}
	if rm.Size != b.Size {
		return true
	}

	return rm.Modified.After(*b.SyncedAt)
}

// sameLocalRemote is the best available "converged on the same value"
// check without remote content hashes: equal size and equal mtime to the
// second.
func sameLocalRemote(l LocalEntry, rm webdav.Entry) bool {
	return l.Size == rm.Size && l.ModTime.Unix() == rm.Modified.Unix()
}

func unionPaths(
	local map[string]LocalEntry,
	remote map[string]webdav.Entry,
	base map[string]model.FileMetadata,
) []string {
	seen := make(map[string]struct{}, len(local)+len(remote)+len(base))
	for p := range local {
		seen[p] = struct{}{}
	}
	for p := range remote {
		seen[p] = struct{}{}
	}
	for p := range base {
		seen[p] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return paths
}

package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a sync failure so callers can decide whether to retry,
// surface it for credential re-entry, or record it and move on.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindStorage
	KindNetwork
	KindAuth
	KindProtocol
	KindFilesystem
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindStorage:
		return "storage"
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindProtocol:
		return "protocol"
	case KindFilesystem:
		return "filesystem"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

func New(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf returns the classification of err, or KindUnknown when err carries
// none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether a failed transfer attempt is worth repeating.
// Only transient network failures qualify; auth and protocol errors never do.
func Retryable(err error) bool {
	return KindOf(err) == KindNetwork
}

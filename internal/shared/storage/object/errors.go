package object

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Kind classifies storage failures.
type Kind int

const (
	PermissionDenied Kind = iota + 1
	OutOfSpace
	PathUnavailable
	RemoteFailure
)

func (k Kind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case OutOfSpace:
		return "out_of_space"
	case PathUnavailable:
		return "path_unavailable"
	case RemoteFailure:
		return "remote_failure"
	default:
		return "unknown"
	}
}

// StorageError is returned by backends for any write or delete failure.
type StorageError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("storage %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// FromFS classifies a filesystem error. Errors that are already a StorageError
// or ErrTooLarge pass through unchanged.
func FromFS(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || errors.Is(err, ErrTooLarge) {
		return err
	}
	return &StorageError{Kind: fsKind(err), Op: op, Err: err}
}

// FromRemote wraps an object-storage SDK error.
func FromRemote(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || errors.Is(err, ErrTooLarge) {
		return err
	}
	return &StorageError{Kind: RemoteFailure, Op: op, Err: err}
}

// KindOf extracts the Kind from err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

func fsKind(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EROFS):
		return PermissionDenied
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return OutOfSpace
	default:
		// missing parents, ENOTDIR and anything else that stops the path being written
		return PathUnavailable
	}
}

package object

import (
	"context"
	"errors"
	"fmt"
)

// MaxObjectBytes is the largest menu file any backend accepts.
const MaxObjectBytes = 10 << 20

var (
	// ErrTooLarge is returned when data exceeds MaxObjectBytes.
	ErrTooLarge = errors.New("object exceeds 10 MiB")
	// ErrNotOwned is returned by Remove for references another backend produced.
	ErrNotOwned = errors.New("reference not owned by backend")
)

// Reference locates a stored file. Path is what the record keeps as filePath;
// URL is set only by remote backends.
type Reference struct {
	Path string
	URL  string
}

// IsZero reports whether the reference points nowhere.
func (r Reference) IsZero() bool {
	return r.Path == "" && r.URL == ""
}

// Equal reports whether both references locate the same object.
func (r Reference) Equal(other Reference) bool {
	return r.Path == other.Path && r.URL == other.URL
}

// Backend persists menu files and hands back a reference to them.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Store writes data for the given week. fileName is the uploader's name and
	// is sanitized before it contributes to any generated name.
	Store(ctx context.Context, data []byte, fileName string, week int) (Reference, error)
	// Remove deletes the object behind ref. A missing object is not an error.
	Remove(ctx context.Context, ref Reference) error
}

// CheckSize rejects payloads over MaxObjectBytes.
func CheckSize(data []byte) error {
	if len(data) > MaxObjectBytes {
		return fmt.Errorf("%w: got %d bytes", ErrTooLarge, len(data))
	}
	return nil
}

// CheckWeek rejects slots other than 1 and 2.
func CheckWeek(week int) error {
	if week != 1 && week != 2 {
		return fmt.Errorf("invalid week %d", week)
	}
	return nil
}

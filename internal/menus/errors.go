package menus

import "errors"

var (
	ErrNotFound = errors.New("menu slot not found")

	ErrUploadsDisabled = errors.New("uploads disabled")
	ErrMissingField    = errors.New("missing file or week")
	ErrInvalidWeek     = errors.New("invalid week")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrStorageFailure  = errors.New("storage failure")
	ErrRecordFailure   = errors.New("record failure")
)

// isRejection reports whether err was raised before any side effect.
func isRejection(err error) bool {
	return errors.Is(err, ErrUploadsDisabled) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidWeek) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrTooLarge)
}

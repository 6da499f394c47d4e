package menus

import (
	"fmt"
	"time"

	"coop-site/internal/shared/storage/object"
)

// Weeks lists the fixed menu slots in display order.
var Weeks = [...]int{1, 2}

// Slot is the current menu file for one week. Empty strings stand for null.
type Slot struct {
	Week      int
	FileName  string
	FilePath  string
	RemoteURL string
	UpdatedAt time.Time
}

// Reference returns the storage reference the slot points at.
func (s Slot) Reference() object.Reference {
	return object.Reference{Path: s.FilePath, URL: s.RemoteURL}
}

// IsPlaceholder reports whether the slot stands in for a week never uploaded.
func (s Slot) IsPlaceholder() bool {
	return s.Reference().IsZero()
}

// DefaultPath is the static file served when a week has no record.
func DefaultPath(week int) string {
	return fmt.Sprintf("/menu/week%d.pdf", week)
}

func placeholder(week int) Slot {
	return Slot{Week: week}
}

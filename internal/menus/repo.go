package menus

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Repo persists the current slot per week.
type Repo interface {
	// Get returns ErrNotFound when the week was never uploaded.
	Get(ctx context.Context, week int) (Slot, error)
	// List returns existing slots in ascending week order.
	List(ctx context.Context) ([]Slot, error)
	// Upsert replaces the whole slot for its week.
	Upsert(ctx context.Context, slot Slot) (Slot, error)
}

// AllSlots always returns one slot per week, using placeholders for absent
// weeks. On a read error every week is a placeholder and the error is returned
// for logging only.
func AllSlots(ctx context.Context, repo Repo) ([]Slot, error) {
	out := make([]Slot, 0, len(Weeks))
	var existing []Slot
	var err error
	if repo == nil {
		err = errors.New("menu repo not configured")
	} else {
		existing, err = repo.List(ctx)
	}
	for _, week := range Weeks {
		slot := placeholder(week)
		if err == nil {
			for _, s := range existing {
				if s.Week == week {
					slot = s
					break
				}
			}
		}
		out = append(out, slot)
	}
	return out, err
}

func validateSlot(slot Slot) error {
	if slot.Week != 1 && slot.Week != 2 {
		return fmt.Errorf("%w: %d", ErrInvalidWeek, slot.Week)
	}
	if slot.FilePath == "" {
		return errors.New("slot file path required")
	}
	if slot.FileName == "" {
		return errors.New("slot file name required")
	}
	return nil
}

func stamp(slot Slot) Slot {
	if slot.UpdatedAt.IsZero() {
		slot.UpdatedAt = time.Now()
	}
	slot.UpdatedAt = slot.UpdatedAt.UTC()
	return slot
}

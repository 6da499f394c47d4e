package menus

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	slots map[int]Slot
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{slots: make(map[int]Slot)}
}

func (r *MemoryRepo) Get(ctx context.Context, week int) (Slot, error) {
	if err := ctx.Err(); err != nil {
		return Slot{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[week]
	if !ok {
		return Slot{}, ErrNotFound
	}
	return slot, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Slot, 0, len(r.slots))
	for _, week := range Weeks {
		if slot, ok := r.slots[week]; ok {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, slot Slot) (Slot, error) {
	if err := ctx.Err(); err != nil {
		return Slot{}, err
	}
	if err := validateSlot(slot); err != nil {
		return Slot{}, err
	}
	slot = stamp(slot)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slot.Week] = slot
	return slot, nil
}

var _ Repo = (*MemoryRepo)(nil)

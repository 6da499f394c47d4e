package local

import (
	"context"

	"coop-site/internal/shared/storage/object"
	"coop-site/internal/shared/telemetry"
)

// Ephemeral writes to scratch space that may vanish with the process. The
// record store is the source of truth there, so failed writes are logged and
// reported as stored.
type Ephemeral struct {
	store *Store
}

// NewEphemeral creates a scratch store rooted at dir with unique file names.
func NewEphemeral(dir, urlPrefix string) *Ephemeral {
	return &Ephemeral{store: NewUnique(dir, urlPrefix)}
}

// Name implements object.Backend.
func (e *Ephemeral) Name() string {
	return "ephemeral"
}

// Dir returns the scratch directory.
func (e *Ephemeral) Dir() string {
	return e.store.dir
}

// Store implements object.Backend. Input validation failures are still returned.
func (e *Ephemeral) Store(ctx context.Context, data []byte, fileName string, week int) (object.Reference, error) {
	if err := ctx.Err(); err != nil {
		return object.Reference{}, err
	}
	if err := object.CheckSize(data); err != nil {
		return object.Reference{}, err
	}
	if err := object.CheckWeek(week); err != nil {
		return object.Reference{}, err
	}

	name := e.store.objectName(fileName, week)
	if err := e.store.write(name, data); err != nil {
		kind, _ := object.KindOf(err)
		telemetry.Warn("storage.ephemeral.write_failed", map[string]any{
			"week":  week,
			"name":  name,
			"kind":  kind.String(),
			"error": err,
		})
	}
	return e.store.reference(name), nil
}

// Remove implements object.Backend.
func (e *Ephemeral) Remove(ctx context.Context, ref object.Reference) error {
	return e.store.Remove(ctx, ref)
}

var _ object.Backend = (*Ephemeral)(nil)

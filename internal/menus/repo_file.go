package menus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileRepo keeps every slot in a single JSON document. Each upsert rewrites
// the whole document through a temp file and rename.
type FileRepo struct {
	path string
	mu   sync.Mutex
}

type fileSlot struct {
	Week      int        `json:"week"`
	FileName  *string    `json:"fileName"`
	FilePath  *string    `json:"filePath"`
	RemoteURL *string    `json:"remoteUrl"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// NewFileRepo opens the document at path, creating it as an empty array when absent.
func NewFileRepo(path string) (*FileRepo, error) {
	if path == "" {
		return nil, errors.New("menu record file path required")
	}
	r := &FileRepo{path: path}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := r.write(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat menu records: %w", err)
	}
	return r, nil
}

// Path returns the location of the JSON document.
func (r *FileRepo) Path() string {
	return r.path
}

func (r *FileRepo) Get(ctx context.Context, week int) (Slot, error) {
	slots, err := r.List(ctx)
	if err != nil {
		return Slot{}, err
	}
	for _, slot := range slots {
		if slot.Week == week {
			return slot, nil
		}
	}
	return Slot{}, ErrNotFound
}

func (r *FileRepo) List(ctx context.Context) ([]Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *FileRepo) Upsert(ctx context.Context, slot Slot) (Slot, error) {
	if err := ctx.Err(); err != nil {
		return Slot{}, err
	}
	if err := validateSlot(slot); err != nil {
		return Slot{}, err
	}
	slot = stamp(slot)

	r.mu.Lock()
	defer r.mu.Unlock()
	slots, err := r.read()
	if err != nil {
		return Slot{}, err
	}
	replaced := false
	for i := range slots {
		if slots[i].Week == slot.Week {
			slots[i] = slot
			replaced = true
		}
	}
	if !replaced {
		slots = append(slots, slot)
	}
	if err := r.write(slots); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

// read returns recorded slots; entries without a file reference count as absent.
func (r *FileRepo) read() ([]Slot, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read menu records: %w", err)
	}
	var doc []fileSlot
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode menu records: %w", err)
	}
	out := make([]Slot, 0, len(doc))
	for _, entry := range doc {
		slot := Slot{Week: entry.Week}
		if entry.FileName != nil {
			slot.FileName = *entry.FileName
		}
		if entry.FilePath != nil {
			slot.FilePath = *entry.FilePath
		}
		if entry.RemoteURL != nil {
			slot.RemoteURL = *entry.RemoteURL
		}
		if entry.UpdatedAt != nil {
			slot.UpdatedAt = entry.UpdatedAt.UTC()
		}
		if slot.IsPlaceholder() {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out, nil
}

func (r *FileRepo) write(slots []Slot) error {
	doc := make([]fileSlot, 0, len(slots))
	for _, slot := range slots {
		doc = append(doc, toFileSlot(slot))
	}
	sort.Slice(doc, func(i, j int) bool { return doc[i].Week < doc[j].Week })
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode menu records: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create menu record dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".menu-storage-*")
	if err != nil {
		return fmt.Errorf("create menu record temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write menu records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close menu records: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace menu records: %w", err)
	}
	return nil
}

func toFileSlot(slot Slot) fileSlot {
	out := fileSlot{Week: slot.Week}
	if slot.FileName != "" {
		out.FileName = &slot.FileName
	}
	if slot.FilePath != "" {
		out.FilePath = &slot.FilePath
	}
	if slot.RemoteURL != "" {
		out.RemoteURL = &slot.RemoteURL
	}
	if !slot.UpdatedAt.IsZero() {
		t := slot.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

var _ Repo = (*FileRepo)(nil)

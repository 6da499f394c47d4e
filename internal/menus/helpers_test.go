package menus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"coop-site/internal/shared/storage/object"
)

// fakeBackend records calls and fails on demand.
type fakeBackend struct {
	mu        sync.Mutex
	storeErr  error
	removeErr error
	next      int
	stored    map[string][]byte
	removed   []object.Reference
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{stored: map[string][]byte{}}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Store(ctx context.Context, data []byte, fileName string, week int) (object.Reference, error) {
	if err := object.CheckSize(data); err != nil {
		return object.Reference{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return object.Reference{}, f.storeErr
	}
	f.next++
	key := fmt.Sprintf("menu/week%d-%d.pdf", week, f.next)
	f.stored[key] = append([]byte(nil), data...)
	return object.Reference{Path: key, URL: "https://cdn.example/" + key}, nil
}

func (f *fakeBackend) Remove(ctx context.Context, ref object.Reference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ref)
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.stored, ref.Path)
	return nil
}

func (f *fakeBackend) removedRefs() []object.Reference {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]object.Reference(nil), f.removed...)
}

// failingRepo fails every call, like an unreachable database.
type failingRepo struct {
	err error
}

func (r failingRepo) Get(ctx context.Context, week int) (Slot, error) { return Slot{}, r.err }
func (r failingRepo) List(ctx context.Context) ([]Slot, error)        { return nil, r.err }
func (r failingRepo) Upsert(ctx context.Context, slot Slot) (Slot, error) {
	return Slot{}, r.err
}

// upsertFailRepo reads from an inner repo but refuses writes.
type upsertFailRepo struct {
	*MemoryRepo
}

func (r upsertFailRepo) Upsert(ctx context.Context, slot Slot) (Slot, error) {
	return Slot{}, errors.New("connection refused")
}

// pdfBytes returns n bytes that start like a PDF.
func pdfBytes(n int) []byte {
	head := []byte("%PDF-1.4\n")
	if n <= len(head) {
		return head[:n]
	}
	return append(head, bytes.Repeat([]byte("0"), n-len(head))...)
}

// minimalPDF builds a one-page PDF with a correct xref table.
func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

package local

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coop-site/internal/shared/storage/object"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestFixedStoreOverwritesWeekFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewFixed(dir, "/menu")

	ref, err := s.Store(context.Background(), []byte("%PDF-first"), "anything.pdf", 1)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if ref.Path != "/menu/week1.pdf" || ref.URL != "" {
		t.Fatalf("unexpected reference %+v", ref)
	}

	ref2, err := s.Store(context.Background(), []byte("%PDF-second"), "other.pdf", 1)
	if err != nil {
		t.Fatalf("store again: %v", err)
	}
	if !ref2.Equal(ref) {
		t.Fatalf("expected same reference, got %+v", ref2)
	}

	got, err := os.ReadFile(filepath.Join(dir, "week1.pdf"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte("%PDF-second")) {
		t.Fatalf("expected latest content, got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only week1.pdf, found %d entries", len(entries))
	}
}

func TestUniqueStoreNamesFromSanitizedBase(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewUnique(dir, "uploads/")
	s.now = fixedClock(1700000000123)

	ref, err := s.Store(context.Background(), []byte("%PDF"), "../Týden 2 menu!.pdf", 2)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if ref.Path != "/uploads/Tden2menu-week2-1700000000123.pdf" {
		t.Fatalf("unexpected path %q", ref.Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "Tden2menu-week2-1700000000123.pdf")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestUniqueStoreFallsBackWhenNameUnusable(t *testing.T) {
	t.Parallel()
	s := NewUnique(t.TempDir(), "/uploads")
	s.now = fixedClock(42)

	ref, err := s.Store(context.Background(), []byte("%PDF"), "###", 1)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if ref.Path != "/uploads/menu-week1-42.pdf" {
		t.Fatalf("unexpected path %q", ref.Path)
	}
}

func TestUniqueStoreKeepsWeeksApart(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewUnique(dir, "/uploads")
	s.now = fixedClock(1700000000000)

	ref1, err := s.Store(context.Background(), []byte("%PDF-week1"), "menu.pdf", 1)
	if err != nil {
		t.Fatalf("store week 1: %v", err)
	}
	ref2, err := s.Store(context.Background(), []byte("%PDF-week2"), "menu.pdf", 2)
	if err != nil {
		t.Fatalf("store week 2: %v", err)
	}
	if ref1.Equal(ref2) {
		t.Fatalf("expected distinct references, both %q", ref1.Path)
	}

	got, err := os.ReadFile(filepath.Join(dir, "menu-week1-1700000000000.pdf"))
	if err != nil {
		t.Fatalf("read week 1: %v", err)
	}
	if !bytes.Equal(got, []byte("%PDF-week1")) {
		t.Fatalf("week 1 file overwritten: %q", got)
	}

	if err := s.Remove(context.Background(), ref1); err != nil {
		t.Fatalf("remove week 1: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "menu-week2-1700000000000.pdf")); err != nil {
		t.Fatalf("expected week 2 file kept: %v", err)
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewFixed(dir, "/menu")

	if _, err := s.Store(context.Background(), make([]byte, object.MaxObjectBytes+1), "big.pdf", 1); !errors.Is(err, object.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := s.Store(context.Background(), []byte("%PDF"), "a.pdf", 3); err == nil {
		t.Fatalf("expected week error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected nothing written, found %d entries", len(entries))
	}
}

func TestStoreAcceptsExactLimit(t *testing.T) {
	t.Parallel()
	s := NewFixed(t.TempDir(), "/menu")
	if _, err := s.Store(context.Background(), make([]byte, object.MaxObjectBytes), "max.pdf", 2); err != nil {
		t.Fatalf("expected 10 MiB accepted: %v", err)
	}
}

func TestStoreReportsPathUnavailable(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	s := NewFixed(filepath.Join(blocker, "menu"), "/menu")

	_, err := s.Store(context.Background(), []byte("%PDF"), "a.pdf", 1)
	kind, ok := object.KindOf(err)
	if !ok {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if kind != object.PathUnavailable {
		t.Fatalf("expected PathUnavailable, got %s", kind)
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewFixed(t.TempDir(), "/menu")
	if _, err := s.Store(ctx, []byte("%PDF"), "a.pdf", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewUnique(dir, "/uploads")
	s.now = fixedClock(1)

	ref, err := s.Store(context.Background(), []byte("%PDF"), "a.pdf", 1)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Remove(context.Background(), ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a-week1-1.pdf")); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err %v", err)
	}
	if err := s.Remove(context.Background(), ref); err != nil {
		t.Fatalf("expected missing file tolerated, got %v", err)
	}
}

func TestRemoveRejectsForeignReferences(t *testing.T) {
	t.Parallel()
	s := NewUnique(t.TempDir(), "/uploads")

	refs := []object.Reference{
		{},
		{Path: "/menu/week1.pdf"},
		{Path: "/uploads/../secret.pdf"},
		{Path: "/uploads/nested/a.pdf"},
		{URL: "https://cdn.example/menu/a.pdf"},
	}
	for _, ref := range refs {
		if err := s.Remove(context.Background(), ref); !errors.Is(err, object.ErrNotOwned) {
			t.Fatalf("Remove(%+v) = %v, want ErrNotOwned", ref, err)
		}
	}
}

func TestEphemeralSwallowsWriteFailures(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	e := NewEphemeral(filepath.Join(blocker, "scratch"), "/scratch")
	e.store.now = fixedClock(7)

	ref, err := e.Store(context.Background(), []byte("%PDF"), "menu.pdf", 2)
	if err != nil {
		t.Fatalf("expected write failure swallowed, got %v", err)
	}
	if ref.Path != "/scratch/menu-week2-7.pdf" {
		t.Fatalf("unexpected path %q", ref.Path)
	}
}

func TestEphemeralStillValidatesInput(t *testing.T) {
	t.Parallel()
	e := NewEphemeral(t.TempDir(), "/scratch")
	if _, err := e.Store(context.Background(), make([]byte, object.MaxObjectBytes+1), "a.pdf", 1); !errors.Is(err, object.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestEphemeralWritesWhenPossible(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := NewEphemeral(dir, "/scratch")
	e.store.now = fixedClock(9)

	ref, err := e.Store(context.Background(), []byte("%PDF"), "menu.pdf", 1)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "menu-week1-9.pdf")); err != nil {
		t.Fatalf("expected file written: %v", err)
	}
	if err := e.Remove(context.Background(), ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

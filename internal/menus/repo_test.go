package menus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMemoryRepoUpsertReplaces(t *testing.T) {
	t.Parallel()
	testRepoUpsertReplaces(t, NewMemoryRepo())
}

func TestFileRepoUpsertReplaces(t *testing.T) {
	t.Parallel()
	repo, err := NewFileRepo(filepath.Join(t.TempDir(), "data", "menu-storage.json"))
	if err != nil {
		t.Fatalf("NewFileRepo: %v", err)
	}
	testRepoUpsertReplaces(t, repo)
}

func testRepoUpsertReplaces(t *testing.T, repo Repo) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty repo, got %v", err)
	}
	if slots, err := repo.List(ctx); err != nil || len(slots) != 0 {
		t.Fatalf("expected empty list, got %v %v", slots, err)
	}

	first := Slot{Week: 2, FileName: "a.pdf", FilePath: "/uploads/a-1.pdf", UpdatedAt: time.Unix(100, 0)}
	if _, err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second := Slot{Week: 2, FileName: "b.pdf", FilePath: "/uploads/b-2.pdf", RemoteURL: "https://cdn/b.pdf", UpdatedAt: time.Unix(200, 0)}
	saved, err := repo.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if saved.UpdatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp")
	}
	if _, err := repo.Upsert(ctx, Slot{Week: 1, FileName: "c.pdf", FilePath: "/menu/week1.pdf"}); err != nil {
		t.Fatalf("upsert week 1: %v", err)
	}

	got, err := repo.Get(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FileName != "b.pdf" || got.FilePath != "/uploads/b-2.pdf" || got.RemoteURL != "https://cdn/b.pdf" {
		t.Fatalf("expected full replacement, got %+v", got)
	}
	if !got.UpdatedAt.Equal(time.Unix(200, 0)) {
		t.Fatalf("unexpected updatedAt %s", got.UpdatedAt)
	}

	slots, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(slots) != 2 || slots[0].Week != 1 || slots[1].Week != 2 {
		t.Fatalf("expected one slot per week in order, got %+v", slots)
	}
}

func TestRepoUpsertValidates(t *testing.T) {
	t.Parallel()
	repo := NewMemoryRepo()
	tests := []Slot{
		{Week: 3, FileName: "a.pdf", FilePath: "/a.pdf"},
		{Week: 1, FileName: "a.pdf"},
		{Week: 1, FilePath: "/a.pdf"},
	}
	for _, slot := range tests {
		if _, err := repo.Upsert(context.Background(), slot); err == nil {
			t.Fatalf("expected error for %+v", slot)
		}
	}
}

func TestFileRepoCreatesEmptyArray(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "menu-storage.json")
	if _, err := NewFileRepo(path); err != nil {
		t.Fatalf("NewFileRepo: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("expected empty array document, got %q", raw)
	}
}

func TestFileRepoPersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "menu-storage.json")
	repo, err := NewFileRepo(path)
	if err != nil {
		t.Fatalf("NewFileRepo: %v", err)
	}
	if _, err := repo.Upsert(context.Background(), Slot{Week: 1, FileName: "menu1.pdf", FilePath: "/menu/week1.pdf"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	reopened, err := NewFileRepo(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FileName != "menu1.pdf" {
		t.Fatalf("unexpected slot %+v", got)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `"remoteUrl": null`) {
		t.Fatalf("expected null remoteUrl in document:\n%s", raw)
	}
}

func TestFileRepoReadsPlaceholderEntriesAsAbsent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "menu-storage.json")
	doc := `[{"week":1,"fileName":null,"filePath":null},{"week":2,"fileName":"b.pdf","filePath":"/menu/week2.pdf","updatedAt":"2026-03-01T10:00:00Z"}]`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	repo, err := NewFileRepo(path)
	if err != nil {
		t.Fatalf("NewFileRepo: %v", err)
	}
	if _, err := repo.Get(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected placeholder week to be absent, got %v", err)
	}
	got, err := repo.Get(context.Background(), 2)
	if err != nil || got.FilePath != "/menu/week2.pdf" {
		t.Fatalf("unexpected week 2: %+v %v", got, err)
	}
}

func TestFileRepoCorruptDocument(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "menu-storage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	repo, err := NewFileRepo(path)
	if err != nil {
		t.Fatalf("NewFileRepo: %v", err)
	}
	if _, err := repo.List(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
	slots, err := AllSlots(context.Background(), repo)
	if err == nil {
		t.Fatalf("expected AllSlots to report the read error")
	}
	if len(slots) != 2 || !slots[0].IsPlaceholder() || !slots[1].IsPlaceholder() {
		t.Fatalf("expected two placeholders, got %+v", slots)
	}
}

func TestFileRepoConcurrentUpsertsKeepOneRecordPerWeek(t *testing.T) {
	t.Parallel()
	repo, err := NewFileRepo(filepath.Join(t.TempDir(), "menu-storage.json"))
	if err != nil {
		t.Fatalf("NewFileRepo: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			week := i%2 + 1
			if _, err := repo.Upsert(context.Background(), Slot{Week: week, FileName: "m.pdf", FilePath: "/uploads/m.pdf"}); err != nil {
				t.Errorf("upsert: %v", err)
			}
		}(i)
	}
	wg.Wait()

	slots, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
}

func TestAllSlotsFillsPlaceholders(t *testing.T) {
	t.Parallel()
	repo := NewMemoryRepo()
	if _, err := repo.Upsert(context.Background(), Slot{Week: 2, FileName: "b.pdf", FilePath: "/menu/week2.pdf"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	slots, err := AllSlots(context.Background(), repo)
	if err != nil {
		t.Fatalf("AllSlots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Week != 1 || !slots[0].IsPlaceholder() {
		t.Fatalf("expected week 1 placeholder, got %+v", slots[0])
	}
	if slots[1].FileName != "b.pdf" {
		t.Fatalf("expected week 2 record, got %+v", slots[1])
	}
}

func TestAllSlotsNeverFails(t *testing.T) {
	t.Parallel()
	for name, repo := range map[string]Repo{
		"unreachable": failingRepo{err: errors.New("connection refused")},
		"nil":         nil,
	} {
		slots, err := AllSlots(context.Background(), repo)
		if err == nil {
			t.Fatalf("%s: expected error to be reported", name)
		}
		if len(slots) != 2 || slots[0].Week != 1 || slots[1].Week != 2 {
			t.Fatalf("%s: expected two placeholder weeks, got %+v", name, slots)
		}
	}
}

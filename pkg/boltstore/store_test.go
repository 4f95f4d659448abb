package boltstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/crystal-mush/godaad/pkg/gamedb"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "saves.bolt"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetSave(t *testing.T) {
	s := openTemp(t)
	snap := gamedb.Snapshot{
		Game:    "cellar",
		Slot:    "Before Dragon",
		Session: "abc",
		Turns:   42,
		Saved:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		State:   []byte{1, 2, 3, 254},
	}
	if err := s.PutSave(snap); err != nil {
		t.Fatalf("PutSave error: %v", err)
	}

	got, err := s.GetSave("cellar", "  before dragon ")
	if err != nil {
		t.Fatalf("GetSave error: %v", err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("save mismatch (-want +got):\n%s", diff)
	}
	if s.Writes() != 1 {
		t.Errorf("expected 1 write, got %d", s.Writes())
	}
}

func TestGetSaveMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.GetSave("cellar", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown game, got %v", err)
	}
	if err := s.PutSave(gamedb.Snapshot{Game: "cellar", Slot: "one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSave("cellar", "two"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown slot, got %v", err)
	}
	if err := s.PutSave(gamedb.Snapshot{Game: "cellar", Slot: " "}); err == nil {
		t.Error("expected error for blank slot")
	}
}

func TestListAndDeleteSaves(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, slot := range []string{"a", "b", "c"} {
		err := s.PutSave(gamedb.Snapshot{Game: "cellar", Slot: slot, Saved: base.Add(time.Duration(i) * time.Hour), State: []byte{9}})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := s.PutSave(gamedb.Snapshot{Game: "other", Slot: "x"}); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListSaves("cellar")
	if err != nil {
		t.Fatalf("ListSaves error: %v", err)
	}
	var names []string
	for _, snap := range list {
		names = append(names, snap.Slot)
		if snap.State != nil {
			t.Errorf("expected listing without state for %s", snap.Slot)
		}
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, names); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteSave("cellar", "B"); err != nil {
		t.Fatalf("DeleteSave error: %v", err)
	}
	if err := s.DeleteSave("nosuchgame", "B"); err != nil {
		t.Errorf("expected no error deleting from unknown game, got %v", err)
	}
	list, _ = s.ListSaves("cellar")
	if len(list) != 2 {
		t.Errorf("expected 2 saves after delete, got %d", len(list))
	}
}

func TestReopenKeepsSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.bolt")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutSave(gamedb.Snapshot{Game: "cellar", Slot: "one", State: []byte{7}}); err != nil {
		t.Fatal(err)
	}
	backup := filepath.Join(t.TempDir(), "backup.bolt")
	if err := s.Backup(backup); err != nil {
		t.Fatalf("Backup error: %v", err)
	}
	s.Close()

	for _, p := range []string{path, backup} {
		s, err := Open(p)
		if err != nil {
			t.Fatalf("reopen %s: %v", p, err)
		}
		got, err := s.GetSave("cellar", "one")
		if err != nil || len(got.State) != 1 || got.State[0] != 7 {
			t.Errorf("%s: expected saved state, got %v, %v", p, got.State, err)
		}
		if s.Path() != p {
			t.Errorf("expected path %s, got %s", p, s.Path())
		}
		s.Close()
	}
}

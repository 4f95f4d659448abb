package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/crystal-mush/godaad/pkg/boltstore"
	"github.com/crystal-mush/godaad/pkg/ddb/ddbtest"
	"github.com/crystal-mush/godaad/pkg/gamedb"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCreateAndRestore(t *testing.T) {
	src := t.TempDir()
	gamePath := filepath.Join(src, "cellar.ddb")
	image := ddbtest.Sample().MustBuild()
	writeFile(t, gamePath, image)
	confPath := filepath.Join(src, "godaad.yaml")
	writeFile(t, confPath, []byte("name: cellar\n"))
	transcriptPath := filepath.Join(src, "transcripts.sqlite")
	writeFile(t, transcriptPath, []byte("not really sqlite"))

	store, err := boltstore.Open(filepath.Join(src, "saves.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()
	snap := gamedb.Snapshot{Game: "cellar", Slot: "start", Turns: 7, State: []byte{1, 2, 3}}
	if err := store.PutSave(snap); err != nil {
		t.Fatal(err)
	}

	checkpoints := 0
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	path, err := Create(Params{
		Dir:            filepath.Join(src, "archives"),
		Game:           "cellar",
		Objects:        5,
		GamePath:       gamePath,
		SaveBackup:     store.Backup,
		TranscriptPath: transcriptPath,
		Checkpoint:     func() error { checkpoints++; return nil },
		ConfPath:       confPath,
		At:             at,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if filepath.Base(path) != "cellar-20260301-120000.000.tar.gz" {
		t.Errorf("unexpected archive name %s", filepath.Base(path))
	}
	if checkpoints != 1 {
		t.Errorf("expected 1 checkpoint, got %d", checkpoints)
	}

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest error: %v", err)
	}
	if m.Game != "cellar" || m.Objects != 5 || len(m.Files) != 4 {
		t.Errorf("unexpected manifest %+v", m)
	}
	if m.Files["conf/godaad.yaml"].Type != "conf" || m.Files[EntryGame].Size != int64(len(image)) {
		t.Errorf("unexpected manifest entries %+v", m.Files)
	}

	dst := t.TempDir()
	confDest := filepath.Join(dst, "godaad.yaml")
	result, err := Restore(RestoreParams{
		ArchivePath:    path,
		GameDest:       filepath.Join(dst, "cellar.ddb"),
		SaveDest:       filepath.Join(dst, "saves.db"),
		TranscriptDest: filepath.Join(dst, "transcripts.sqlite"),
		ConfDest:       confDest,
	})
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if result.FilesRestored != 4 || len(result.Warnings) != 0 {
		t.Errorf("expected 4 files and no warnings, got %d %v", result.FilesRestored, result.Warnings)
	}

	got, err := os.ReadFile(filepath.Join(dst, "cellar.ddb"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(image, got); diff != "" {
		t.Errorf("restored image mismatch (-want +got):\n%s", diff)
	}

	restored, err := boltstore.Open(filepath.Join(dst, "saves.db"))
	if err != nil {
		t.Fatalf("Open restored error: %v", err)
	}
	defer restored.Close()
	back, err := restored.GetSave("cellar", "start")
	if err != nil {
		t.Fatalf("GetSave error: %v", err)
	}
	if back.Turns != 7 || !cmp.Equal(back.State, snap.State) {
		t.Errorf("unexpected restored save %+v", back)
	}

	// A differing config is kept unless overwriting is asked for.
	writeFile(t, confDest, []byte("name: edited\n"))
	result, err = Restore(RestoreParams{ArchivePath: path, ConfDest: confDest})
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if result.FilesRestored != 0 || len(result.Warnings) != 1 {
		t.Errorf("expected the config kept with a warning, got %d %v", result.FilesRestored, result.Warnings)
	}
	if _, err := Restore(RestoreParams{ArchivePath: path, ConfDest: confDest, OverwriteConf: true}); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(confDest); string(data) != "name: cellar\n" {
		t.Errorf("expected archived config, got %q", data)
	}
}

func TestRestoreChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.tar.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for _, e := range []struct{ name, body string }{
		{EntryGame, "tampered"},
		{EntryManifest, `{"version":1,"files":{"data/game.ddb":{"sha256":"00","size":8,"type":"ddb"}}}`},
	} {
		tw.WriteHeader(&tar.Header{Name: e.name, Size: int64(len(e.body)), Mode: 0644, Typeflag: tar.TypeReg})
		tw.Write([]byte(e.body))
	}
	tw.Close()
	gw.Close()
	f.Close()

	gameDest := filepath.Join(dir, "game.ddb")
	_, err = Restore(RestoreParams{ArchivePath: path, GameDest: gameDest})
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
	if _, err := os.Stat(gameDest); !os.IsNotExist(err) {
		t.Error("expected nothing restored")
	}
}

func TestListAndPrune(t *testing.T) {
	dir := t.TempDir()
	gamePath := filepath.Join(dir, "cellar.ddb")
	writeFile(t, gamePath, ddbtest.Sample().MustBuild())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if _, err := Create(Params{Dir: filepath.Join(dir, "a"), Game: "cellar", GamePath: gamePath, At: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	list, err := List(filepath.Join(dir, "a"))
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 archives, got %d", len(list))
	}
	if list[0].Filename != "cellar-20260301-120300.000.tar.gz" || list[0].Game != "cellar" {
		t.Errorf("expected newest first, got %+v", list[0])
	}

	n, err := Prune(filepath.Join(dir, "a"), 2)
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	list, _ = List(filepath.Join(dir, "a"))
	var names []string
	for _, a := range list {
		names = append(names, a.Filename)
	}
	want := []string{"cellar-20260301-120300.000.tar.gz", "cellar-20260301-120200.000.tar.gz"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("archives after prune mismatch (-want +got):\n%s", diff)
	}

	if n, _ := Prune(filepath.Join(dir, "a"), 0); n != 0 {
		t.Errorf("expected keep 0 to remove nothing, got %d", n)
	}
}

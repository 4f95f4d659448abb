// Package archive packs a game's files into a .tar.gz with a checksummed
// manifest and restores them again: the DDB image, the save slot database,
// the transcript database and the server config.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Archive entry names.
const (
	EntryGame       = "data/game.ddb"
	EntrySaves      = "data/saves.bolt"
	EntryTranscript = "data/transcripts.sqlite"
	EntryManifest   = "manifest.json"
	confPrefix      = "conf/"
)

// stampLayout is fixed width so manifest timestamps sort as strings.
const stampLayout = "2006-01-02T15:04:05.000000000Z"

// Manifest describes the contents of an archive.
type Manifest struct {
	Version   int                  `json:"version"`
	Server    string               `json:"server"`
	Timestamp string               `json:"timestamp"`
	Game      string               `json:"game"`
	Objects   int                  `json:"objects"`
	Files     map[string]FileEntry `json:"files"`
}

// FileEntry describes a single file within the archive.
type FileEntry struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Type   string `json:"type"` // "ddb", "bolt", "sql", "conf"
}

// Params holds the inputs of Create. Empty paths and nil funcs are skipped.
type Params struct {
	Dir            string                      // output directory
	Game           string                      // game name for the manifest
	Objects        int                         // object count for the manifest
	GamePath       string                      // DDB file
	SaveBackup     func(destPath string) error // consistent copy of the save slot database
	TranscriptPath string                      // SQLite transcript database
	Checkpoint     func() error                // flushes the transcript WAL before the copy
	ConfPath       string                      // server config file
	At             time.Time                   // archive time; zero means now
}

// Create writes an archive of the files named in p and returns its path.
func Create(p Params) (string, error) {
	if p.At.IsZero() {
		p.At = time.Now()
	}
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return "", fmt.Errorf("archive: create dir %s: %w", p.Dir, err)
	}
	archivePath := filepath.Join(p.Dir, fmt.Sprintf("%s-%s.tar.gz", p.Game, p.At.UTC().Format("20060102-150405.000")))

	tmpDir, err := os.MkdirTemp("", "daad-archive-*")
	if err != nil {
		return "", fmt.Errorf("archive: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	type source struct{ path, name, kind string }
	var sources []source
	if p.GamePath != "" {
		sources = append(sources, source{p.GamePath, EntryGame, "ddb"})
	}
	if p.SaveBackup != nil {
		staged := filepath.Join(tmpDir, "saves.bolt")
		if err := p.SaveBackup(staged); err != nil {
			return "", fmt.Errorf("archive: save slot backup: %w", err)
		}
		sources = append(sources, source{staged, EntrySaves, "bolt"})
	}
	if p.TranscriptPath != "" {
		if p.Checkpoint != nil {
			if err := p.Checkpoint(); err != nil {
				return "", fmt.Errorf("archive: transcript checkpoint: %w", err)
			}
		}
		staged := filepath.Join(tmpDir, "transcripts.sqlite")
		if err := copyFile(p.TranscriptPath, staged); err != nil {
			return "", fmt.Errorf("archive: copy transcripts: %w", err)
		}
		sources = append(sources, source{staged, EntryTranscript, "sql"})
	}
	if p.ConfPath != "" {
		sources = append(sources, source{p.ConfPath, confPrefix + filepath.Base(p.ConfPath), "conf"})
	}

	manifest := Manifest{
		Version:   1,
		Server:    "godaad",
		Timestamp: p.At.UTC().Format(stampLayout),
		Game:      p.Game,
		Objects:   p.Objects,
		Files:     make(map[string]FileEntry),
	}

	outFile, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("archive: create %s: %w", archivePath, err)
	}
	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	err = func() error {
		for _, src := range sources {
			entry, err := addFileToTar(tw, src.path, src.name)
			if err != nil {
				return err
			}
			entry.Type = src.kind
			manifest.Files[src.name] = entry
		}

		// The manifest goes last so it covers every entry before it.
		manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return fmt.Errorf("archive: marshal manifest: %w", err)
		}
		if err := tw.WriteHeader(&tar.Header{
			Name:    EntryManifest,
			Size:    int64(len(manifestJSON)),
			Mode:    0644,
			ModTime: p.At,
		}); err != nil {
			return fmt.Errorf("archive: write manifest header: %w", err)
		}
		if _, err := tw.Write(manifestJSON); err != nil {
			return fmt.Errorf("archive: write manifest: %w", err)
		}
		if err := tw.Close(); err != nil {
			return fmt.Errorf("archive: close tar: %w", err)
		}
		return gw.Close()
	}()
	if cerr := outFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(archivePath)
		return "", err
	}
	return archivePath, nil
}

// addFileToTar adds one file under archName and returns its checksum entry.
func addFileToTar(tw *tar.Writer, srcPath, archName string) (FileEntry, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: open %s: %w", srcPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: stat %s: %w", srcPath, err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    archName,
		Size:    info.Size(),
		Mode:    0644,
		ModTime: info.ModTime(),
	}); err != nil {
		return FileEntry{}, fmt.Errorf("archive: header %s: %w", archName, err)
	}

	h := sha256.New()
	written, err := io.Copy(tw, io.TeeReader(f, h))
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: write %s: %w", archName, err)
	}
	return FileEntry{SHA256: hex.EncodeToString(h.Sum(nil)), Size: written}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

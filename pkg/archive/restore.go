package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrChecksum is returned when an extracted file does not match the
// manifest.
var ErrChecksum = errors.New("archive: checksum mismatch")

// RestoreParams names where each archived file goes. Empty destinations
// are skipped.
type RestoreParams struct {
	ArchivePath    string
	GameDest       string
	SaveDest       string
	TranscriptDest string
	ConfDest       string
	OverwriteConf  bool // replace a config that differs from the archived one
}

// RestoreResult summarizes a completed restore.
type RestoreResult struct {
	Manifest      *Manifest
	FilesRestored int
	Warnings      []string
}

// Restore extracts the archive, checks every file against the manifest
// and copies the files to their destinations. Nothing is copied when a
// checksum fails.
func Restore(p RestoreParams) (*RestoreResult, error) {
	tmpDir, err := os.MkdirTemp("", "daad-restore-*")
	if err != nil {
		return nil, fmt.Errorf("archive: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := extract(p.ArchivePath, tmpDir); err != nil {
		return nil, fmt.Errorf("archive: extract %s: %w", p.ArchivePath, err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, EntryManifest))
	if err != nil {
		return nil, fmt.Errorf("archive: %s not found in %s", EntryManifest, p.ArchivePath)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("archive: parse manifest: %w", err)
	}

	for name, entry := range manifest.Files {
		sum, err := fileChecksum(filepath.Join(tmpDir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("archive: checksum %s: %w", name, err)
		}
		if sum != entry.SHA256 {
			return nil, fmt.Errorf("%w: %s", ErrChecksum, name)
		}
	}

	result := &RestoreResult{Manifest: &manifest}
	for _, r := range []struct{ entry, dest string }{
		{EntryGame, p.GameDest},
		{EntrySaves, p.SaveDest},
		{EntryTranscript, p.TranscriptDest},
	} {
		if r.dest == "" {
			continue
		}
		if _, ok := manifest.Files[r.entry]; !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s is not in the archive", r.entry))
			continue
		}
		if err := os.MkdirAll(filepath.Dir(r.dest), 0755); err != nil {
			return nil, fmt.Errorf("archive: create dir for %s: %w", r.dest, err)
		}
		if err := copyFile(filepath.Join(tmpDir, filepath.FromSlash(r.entry)), r.dest); err != nil {
			return nil, fmt.Errorf("archive: restore %s: %w", r.entry, err)
		}
		result.FilesRestored++
	}

	if p.ConfDest != "" {
		if err := restoreConf(tmpDir, p, &manifest, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// restoreConf copies the archived config unless the current one differs
// and OverwriteConf is off.
func restoreConf(tmpDir string, p RestoreParams, m *Manifest, result *RestoreResult) error {
	var name string
	for n, e := range m.Files {
		if e.Type == "conf" {
			name = n
			break
		}
	}
	if name == "" {
		result.Warnings = append(result.Warnings, "no config in the archive")
		return nil
	}
	archived, err := os.ReadFile(filepath.Join(tmpDir, filepath.FromSlash(name)))
	if err != nil {
		return fmt.Errorf("archive: read %s: %w", name, err)
	}

	current, err := os.ReadFile(p.ConfDest)
	switch {
	case err == nil && bytes.Equal(current, archived):
		return nil
	case err == nil && !p.OverwriteConf:
		result.Warnings = append(result.Warnings, fmt.Sprintf("kept current config %s, it differs from the archived one", p.ConfDest))
		return nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("archive: read %s: %w", p.ConfDest, err)
	}

	if err := os.MkdirAll(filepath.Dir(p.ConfDest), 0755); err != nil {
		return fmt.Errorf("archive: create conf dir: %w", err)
	}
	if err := os.WriteFile(p.ConfDest, archived, 0644); err != nil {
		return fmt.Errorf("archive: write %s: %w", p.ConfDest, err)
	}
	result.FilesRestored++
	return nil
}

// extract unpacks a .tar.gz into destDir.
func extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gr.Close()

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("invalid archive entry: %s", hdr.Name)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

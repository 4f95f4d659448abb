package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/crystal-mush/godaad/pkg/archive"
	"github.com/crystal-mush/godaad/pkg/ddb"
)

// backuper is implemented by save stores that can copy themselves while
// in use, such as boltstore.Store.
type backuper interface {
	Backup(path string) error
}

// Archive writes an archive of the game file, the save slots, the
// transcripts and the config to the archive directory, then prunes old
// archives. It returns the new archive's path.
func (s *Server) Archive() (string, error) {
	if s.conf.ArchiveDir == "" {
		return "", fmt.Errorf("server: no archive_dir configured")
	}
	p := archive.Params{
		Dir:      s.conf.ArchiveDir,
		Game:     s.conf.Name,
		Objects:  s.DB().Count(ddb.ListObjects),
		GamePath: s.conf.Game,
		ConfPath: s.conf.Path(),
	}
	if b, ok := s.store.(backuper); ok {
		p.SaveBackup = b.Backup
	}
	if s.transcript != nil {
		p.TranscriptPath = s.transcript.Path()
		p.Checkpoint = s.transcript.Checkpoint
	}

	path, err := archive.Create(p)
	if err != nil {
		return "", err
	}
	log.Printf("server: archive written to %s", path)
	if n, err := archive.Prune(s.conf.ArchiveDir, s.conf.ArchiveRetain); err != nil {
		log.Printf("server: WARNING: pruning archives: %v", err)
	} else if n > 0 {
		log.Printf("server: pruned %d old archives", n)
	}
	return path, nil
}

// runArchives archives every interval until ctx ends. Failures are logged.
func (s *Server) runArchives(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Archive(); err != nil {
				log.Printf("server: WARNING: archive failed: %v", err)
			}
		}
	}
}

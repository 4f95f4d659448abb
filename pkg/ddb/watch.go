package ddb

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay collapses the burst of write events a compiler produces
// while rewriting a file.
const reloadDelay = 250 * time.Millisecond

// Watch reloads the DDB at path whenever it is written or replaced and
// passes each successfully loaded database to fn. Images that fail to load
// are logged and skipped. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, fn func(*Database)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ddb: start watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are seen too.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("ddb: watch %s: %w", dir, err)
	}
	log.Printf("ddb: watching %s for changes", path)

	name := filepath.Clean(path)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			db, err := Load(path)
			if err != nil {
				log.Printf("WARNING: ddb: reload %s: %v", path, err)
				continue
			}
			log.Printf("ddb: reloaded %s (%d bytes)", path, db.Buffer().Len())
			fn(db)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("ddb: watcher error: %v", err)
		}
	}
}

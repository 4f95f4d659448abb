package boltstore

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/crystal-mush/godaad/pkg/gamedb"
)

// ErrNotFound is returned for a slot that was never saved.
var ErrNotFound = errors.New("boltstore: save not found")

// Store keeps named save slots in a bbolt database.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketSaves} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keySchema); v != nil && keyToInt(v) != schemaVersion {
			return fmt.Errorf("schema %d, expected %d", keyToInt(v), schemaVersion)
		}
		return meta.Put(keySchema, intToKey(schemaVersion))
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// PutSave writes snap into its game's slot, replacing any earlier save.
func (s *Store) PutSave(snap gamedb.Snapshot) error {
	key := slotKey(snap.Slot)
	if len(key) == 0 || snap.Game == "" {
		return fmt.Errorf("boltstore: save needs a game and a slot name")
	}
	if snap.Saved.IsZero() {
		snap.Saved = time.Now()
	}
	data, err := encodeSnapshot(&snap)
	if err != nil {
		return fmt.Errorf("boltstore: encode save %s/%s: %w", snap.Game, snap.Slot, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		game, err := tx.Bucket(bucketSaves).CreateBucketIfNotExists([]byte(snap.Game))
		if err != nil {
			return err
		}
		if err := game.Put(key, data); err != nil {
			return err
		}
		meta := tx.Bucket(bucketMeta)
		return meta.Put(keyWrites, intToKey(keyToInt(meta.Get(keyWrites))+1))
	})
}

// GetSave reads a slot of a game.
func (s *Store) GetSave(game, slot string) (gamedb.Snapshot, error) {
	var snap *gamedb.Snapshot
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSaves).Bucket([]byte(game))
		if b == nil {
			return ErrNotFound
		}
		v := b.Get(slotKey(slot))
		if v == nil {
			return ErrNotFound
		}
		var err error
		snap, err = decodeSnapshot(v)
		return err
	})
	if err != nil {
		return gamedb.Snapshot{}, fmt.Errorf("boltstore: load save %s/%s: %w", game, slot, err)
	}
	return *snap, nil
}

// DeleteSave removes a slot. Deleting a missing slot is not an error.
func (s *Store) DeleteSave(game, slot string) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSaves).Bucket([]byte(game))
		if b == nil {
			return nil
		}
		return b.Delete(slotKey(slot))
	})
}

// ListSaves returns the saves of a game, newest first, without their
// state bytes.
func (s *Store) ListSaves(game string) ([]gamedb.Snapshot, error) {
	var out []gamedb.Snapshot
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSaves).Bucket([]byte(game))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			snap, err := decodeSnapshot(v)
			if err != nil {
				log.Printf("boltstore: WARNING: skipping unreadable save %s/%s: %v", game, k, err)
				return nil
			}
			snap.State = nil
			out = append(out, *snap)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list saves %s: %w", game, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Saved.After(out[j].Saved) })
	return out, nil
}

// Writes returns how many saves were written over the store's lifetime.
func (s *Store) Writes() int {
	n := 0
	s.bolt.View(func(tx *bbolt.Tx) error {
		n = keyToInt(tx.Bucket(bucketMeta).Get(keyWrites))
		return nil
	})
	return n
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		if err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		log.Printf("boltstore: backup written to %s", path)
		return nil
	})
}

package gamedb

import (
	"fmt"
	"time"
)

// StateSize returns the size of a saved state for n objects: the flag
// registers followed by one record per object.
func StateSize(n int) int {
	return NumFlags + RecordSize*n
}

// SaveState packs flags and objects into the layout RAMSAVE uses.
func SaveState(f *Flags, t *Table) []byte {
	out := make([]byte, 0, StateSize(t.Len()))
	out = append(out, f.Bytes()...)
	return append(out, t.Bytes()...)
}

// LoadState unpacks a buffer written by SaveState. The object count must
// match the table; nothing changes on error.
func LoadState(b []byte, f *Flags, t *Table) error {
	if len(b) != StateSize(t.Len()) {
		return fmt.Errorf("gamedb: state of %d bytes, want %d", len(b), StateSize(t.Len()))
	}
	if err := t.Restore(b[NumFlags:]); err != nil {
		return err
	}
	f.Restore(b[:NumFlags])
	return nil
}

// Snapshot is a saved game kept in a named slot.
type Snapshot struct {
	Game    string
	Slot    string
	Session string
	Turns   uint16
	Saved   time.Time
	State   []byte
}

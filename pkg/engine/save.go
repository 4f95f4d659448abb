package engine

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/crystal-mush/godaad/pkg/events"
	"github.com/crystal-mush/godaad/pkg/gamedb"
)

// RamSave copies the flags and objects into the session's memory save
// area.
func (s *Session) RamSave() {
	copy(s.ramsave, gamedb.SaveState(&s.Flags, &s.Objects))
	s.ramsaved = true
}

// RamLoad restores the state kept by the last RamSave.
func (s *Session) RamLoad() error {
	if !s.ramsaved {
		return ErrNoRamSave
	}
	return gamedb.LoadState(s.ramsave, &s.Flags, &s.Objects)
}

// Save writes the current state into a named slot of the store.
func (s *Session) Save(slot string) error {
	if s.store == nil {
		return ErrNoStore
	}
	snap := gamedb.Snapshot{
		Game:    s.Game,
		Slot:    slot,
		Session: s.ID,
		Turns:   s.Flags.Turns(),
		State:   gamedb.SaveState(&s.Flags, &s.Objects),
	}
	if err := s.store.PutSave(snap); err != nil {
		return fmt.Errorf("engine: save %s: %w", slot, err)
	}
	s.emit(events.EvSave, slot, map[string]any{"turns": snap.Turns})
	return nil
}

// Load restores a named slot of the store.
func (s *Session) Load(slot string) error {
	if s.store == nil {
		return ErrNoStore
	}
	snap, err := s.store.GetSave(s.Game, slot)
	if err != nil {
		return fmt.Errorf("engine: load %s: %w", slot, err)
	}
	if err := gamedb.LoadState(snap.State, &s.Flags, &s.Objects); err != nil {
		return fmt.Errorf("engine: load %s: %w", slot, err)
	}
	s.sentence.Clear()
	s.emit(events.EvLoad, slot, map[string]any{"turns": snap.Turns})
	return nil
}

// Lines starting with metaPrefix are session commands, not game input.
const metaPrefix = "#"

// meta runs a session command line: #SAVE name, #LOAD name, #QUIT.
func (s *Session) meta(line string) error {
	fields := strings.Fields(strings.TrimPrefix(line, metaPrefix))
	if len(fields) == 0 {
		return nil
	}
	cmd, arg := fields[0], ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	var err error
	switch cmd {
	case "SAVE":
		if err = s.Save(arg); err == nil {
			s.WriteString("Saved.")
		}
	case "LOAD":
		if err = s.Load(arg); err == nil {
			s.WriteString("Restored.")
		}
	case "QUIT":
		return ErrQuit
	default:
		s.WriteString("Unknown command.")
		s.Newline()
		return nil
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrNoStore):
		s.WriteString("Saving is not available.")
	default:
		log.Printf("engine: session %s: %v", s.ID, err)
		s.WriteString("That did not work.")
	}
	s.Newline()
	return nil
}

// Package engine runs one interpreter session: it owns the flags, the
// object table and the sentence buffer of a player, prompts through a
// platform and prints the database's messages.
package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/transform"

	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/events"
	"github.com/crystal-mush/godaad/pkg/gamedb"
	"github.com/crystal-mush/godaad/pkg/parser"
	"github.com/crystal-mush/godaad/pkg/platform"
	"github.com/crystal-mush/godaad/pkg/text"
)

var (
	// ErrQuit ends Run without error when returned by an Executor.
	ErrQuit = errors.New("engine: quit")
	// ErrNoStore is returned by Save and Load without a configured store.
	ErrNoStore = errors.New("engine: no save store")
	// ErrNoRamSave is returned by RamLoad before any RamSave.
	ErrNoRamSave = errors.New("engine: nothing saved in memory")
)

// SaveStore keeps named save slots.
type SaveStore interface {
	PutSave(snap gamedb.Snapshot) error
	GetSave(game, slot string) (gamedb.Snapshot, error)
}

// Options configure a session. Every field is optional.
type Options struct {
	ID         string // defaults to a random UUID
	Game       string // game name used for saves and events
	Rand       *rand.Rand
	Bus        *events.Bus
	Store      SaveStore
	Articles   text.Articles // defaults to the database language
	Echo       bool          // echo typed characters back to the platform
	ScreenMode uint8
}

// Session is the state of one player. It is not safe for concurrent use;
// the database it reads is.
type Session struct {
	ID      string
	Game    string
	DB      *ddb.Database
	Flags   gamedb.Flags
	Objects gamedb.Table

	plat     platform.Platform
	dec      *text.Decoder
	matcher  *parser.Matcher
	sentence parser.Sentence
	articles text.Articles
	rng      *rand.Rand
	bus      *events.Bus
	store    SaveStore
	echo     bool
	screen   uint8

	line       []byte
	ramsave    []byte
	ramsaved   bool
	lastPrompt uint8
	timedOut   bool
	metaLine   bool
	transcript strings.Builder
}

// New creates a session for db on plat and resets it.
func New(db *ddb.Database, plat platform.Platform, opts Options) (*Session, error) {
	s := &Session{
		ID:       opts.ID,
		Game:     opts.Game,
		DB:       db,
		plat:     plat,
		matcher:  parser.NewMatcher(db),
		articles: opts.Articles,
		rng:      opts.Rand,
		bus:      opts.Bus,
		store:    opts.Store,
		echo:     opts.Echo,
		screen:   opts.ScreenMode,
		line:     make([]byte, 0, ddb.MaxInputLen),
		ramsave:  make([]byte, db.RamSaveSize()),
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Game == "" {
		s.Game = "game"
	}
	if s.articles == nil {
		s.articles = text.ArticlesFor(text.Tag(db.Header.Language))
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s.dec = text.NewDecoder(db, s, s.referencedName)
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset puts the session in its starting state: flags zeroed, screen
// mode and window set, sentence buffer empty and objects decoded afresh.
func (s *Session) Reset() error {
	s.Flags.Clear()
	s.Flags.Set(gamedb.FlagScreenMode, s.screen)
	s.Flags.Set(gamedb.FlagCurWin, 0)
	s.sentence.Clear()
	s.lastPrompt = 0
	s.timedOut = false
	if err := s.Objects.DecodeAll(s.DB, &s.Flags); err != nil {
		return fmt.Errorf("engine: reset: %w", err)
	}
	return nil
}

// Sentence returns the pending sentence buffer.
func (s *Session) Sentence() *parser.Sentence { return &s.sentence }

// Articles returns the article strategy of the session.
func (s *Session) Articles() text.Articles { return s.articles }

// Decoder returns the message decoder printing to this session.
func (s *Session) Decoder() *text.Decoder { return s.dec }

// ReferencedObject makes obj the object later messages refer to.
func (s *Session) ReferencedObject(obj uint8) error {
	return s.Objects.Reference(obj, &s.Flags)
}

// WriteString prints s in the DAAD character set.
func (s *Session) WriteString(v string) {
	s.plat.WriteString(v)
	s.transcript.WriteString(v)
}

// WriteChar prints one character.
func (s *Session) WriteChar(c byte) {
	s.plat.WriteChar(c)
	s.transcript.WriteByte(c)
}

func (s *Session) emit(t events.EventType, txt string, data map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(events.Event{Type: t, Session: s.ID, Game: s.Game, Text: txt, Data: data})
}

// flushTranscript emits everything printed since the last flush.
func (s *Session) flushTranscript() {
	if s.transcript.Len() == 0 {
		return
	}
	out := utf8Text(s.transcript.String())
	s.transcript.Reset()
	s.emit(events.EvText, out, nil)
}

func utf8Text(v string) string {
	out, _, err := transform.String(text.FromDAAD(), v)
	if err != nil {
		return v
	}
	return out
}

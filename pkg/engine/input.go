package engine

import (
	"context"
	"strings"

	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/events"
	"github.com/crystal-mush/godaad/pkg/gamedb"
	"github.com/crystal-mush/godaad/pkg/parser"
)

// Ticks per second of the timeout flag.
const ticksPerSecond = 50

const (
	keyBackspace = 0x08
	keyDelete    = 0x7F
)

// idle gives the platform one turn of a wait loop.
func (s *Session) idle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.plat.IdlePump()
}

// waitKey polls until a character is ready.
func (s *Session) waitKey(ctx context.Context) error {
	for !s.plat.PollInput() {
		if err := s.idle(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) drain() {
	for s.plat.PollInput() {
		s.plat.ReadChar()
	}
}

// WaitForTimeout discards pending keys and waits for the next one. When
// the timeout control flag has a bit of mask set, the wait ends after
// the number of seconds in the timeout flag; the timeout-occurred bit is
// cleared first and set when that happens. It reports whether the wait
// timed out.
func (s *Session) WaitForTimeout(ctx context.Context, mask uint8) (bool, error) {
	s.drain()
	secs, ctl := s.Flags.Timeout()
	if ctl&mask == 0 {
		return false, s.waitKey(ctx)
	}

	s.Flags.SetTimedOut(false)
	limit := uint16(secs) * ticksPerSecond
	s.plat.ResetTicks()
	for !s.plat.PollInput() {
		if err := s.idle(ctx); err != nil {
			return false, err
		}
		if s.plat.Ticks() > limit {
			s.Flags.SetTimedOut(true)
			s.emit(events.EvTimeout, "", map[string]any{"seconds": secs})
			return true, nil
		}
	}
	return false, nil
}

// Prompt reads a line: pending keys are discarded, '>' is printed, and
// characters are collected until Enter. Backspace edits, letters are
// upper-cased and input stops growing at ddb.MaxInputLen. An empty line
// is not accepted. When the first-character timeout fires, Prompt returns
// an empty line.
func (s *Session) Prompt(ctx context.Context) (string, error) {
	s.drain()
	s.WriteChar('>')
	s.flushTranscript()
	s.emit(events.EvPrompt, "", nil)
	s.line = s.line[:0]
	s.timedOut = false

	for {
		if len(s.line) == 0 && !s.plat.PollInput() {
			timedOut, err := s.WaitForTimeout(ctx, gamedb.TimeFirstChar)
			if err != nil {
				return "", err
			}
			if timedOut {
				s.timedOut = true
				return "", nil
			}
		}
		if err := s.waitKey(ctx); err != nil {
			return "", err
		}

		c := s.plat.ReadChar()
		switch c {
		case '\r', '\n':
			if len(s.line) == 0 {
				continue
			}
			if s.echo {
				s.WriteChar('\n')
			}
			line := string(s.line)
			s.emit(events.EvInput, utf8Text(line), nil)
			return line, nil
		case keyBackspace, keyDelete:
			if len(s.line) == 0 {
				continue
			}
			s.line = s.line[:len(s.line)-1]
			if s.echo {
				s.WriteString("\b \b")
			}
		default:
			if len(s.line) >= ddb.MaxInputLen {
				continue
			}
			if s.echo {
				s.WriteChar(c)
			}
			s.line = append(s.line, upper(c))
		}
	}
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// Prompt messages picked at random when the prompt flag is zero.
const (
	firstPrompt = 2
	numPrompts  = 4
)

// LogicalSentence resolves the next clause into the sentence flags. When
// no clause is pending it prints a prompt message, reads a line and
// tokenizes it first. It reports whether any slot was filled.
func (s *Session) LogicalSentence(ctx context.Context) (bool, error) {
	s.metaLine = false
	if s.sentence.Empty() {
		p := s.Flags.Prompt()
		if p == 0 {
			for {
				p = firstPrompt + uint8(s.rng.IntN(numPrompts))
				if p != s.lastPrompt {
					break
				}
			}
		}
		if err := s.PrintSystemMsg(p); err != nil {
			return false, err
		}
		s.Newline()
		s.lastPrompt = p

		line, err := s.Prompt(ctx)
		if err != nil {
			return false, err
		}
		if strings.HasPrefix(line, metaPrefix) {
			s.metaLine = true
			s.sentence.Clear()
			s.Flags.ClearSentence()
			return false, s.meta(line)
		}
		if dropped := s.matcher.Tokenize(line, &s.sentence); dropped > 0 {
			s.emit(events.EvUnknown, utf8Text(line), map[string]any{"dropped": dropped})
		}
	}

	ok := parser.Resolve(&s.sentence, &s.Flags, &s.Objects)
	if ok {
		s.emit(events.EvSentence, s.describe(), s.slots())
	}
	return ok, nil
}

func (s *Session) slots() map[string]any {
	f := &s.Flags
	return map[string]any{
		"verb":        f.Verb(),
		"noun1":       f.Noun1(),
		"adjective1":  f.Adjective1(),
		"adverb":      f.Adverb(),
		"preposition": f.Preposition(),
		"noun2":       f.Noun2(),
		"adjective2":  f.Adjective2(),
	}
}

// describe spells the resolved sentence with vocabulary words.
func (s *Session) describe() string {
	f := &s.Flags
	slots := []struct {
		id uint8
		t  ddb.WordType
	}{
		{f.Verb(), ddb.Verb},
		{f.Adverb(), ddb.Adverb},
		{f.Adjective1(), ddb.Adjective},
		{f.Noun1(), ddb.Noun},
		{f.Preposition(), ddb.Preposition},
		{f.Adjective2(), ddb.Adjective},
		{f.Noun2(), ddb.Noun},
	}
	var words []string
	for i, sl := range slots {
		if sl.id == gamedb.NullWord {
			continue
		}
		// A compact imperative puts the noun in the verb slot too.
		if i == 0 && sl.id == f.Noun1() && sl.id < parser.CompactImperativeLimit {
			continue
		}
		if w, ok := s.DB.WordFor(sl.id, sl.t); ok {
			words = append(words, w.Text())
		} else {
			words = append(words, "?")
		}
	}
	return strings.Join(words, " ")
}

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/crystal-mush/godaad/pkg/events"
	"github.com/crystal-mush/godaad/pkg/gamedb"
	"github.com/crystal-mush/godaad/pkg/platform"
)

// System messages printed by Run.
const (
	MsgNotUnderstood = 6
	MsgTimePasses    = 35
)

// Executor acts on a resolved sentence. The game logic of a database is
// one; TraceExecutor is a stand-in that only reports what was understood.
type Executor interface {
	Execute(ctx context.Context, s *Session) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, s *Session) error

func (f ExecutorFunc) Execute(ctx context.Context, s *Session) error { return f(ctx, s) }

// Run resets the session and then resolves sentences and hands them to
// exec until the context ends, the input closes or exec returns an
// error. A line that yields no sentence prints "not understood", or
// "time passes" when the prompt timed out. Each executed sentence
// advances the turn counter. ErrQuit and closed input end Run without
// error.
func (s *Session) Run(ctx context.Context, exec Executor) error {
	if err := s.Reset(); err != nil {
		return err
	}
	s.emit(events.EvSessionStart, "", map[string]any{"objects": s.Objects.Len()})
	defer func() {
		s.flushTranscript()
		s.emit(events.EvSessionEnd, "", map[string]any{"turns": s.Flags.Turns()})
	}()

	for {
		ok, err := s.LogicalSentence(ctx)
		if err != nil {
			return quietEnd(err)
		}
		if !ok {
			switch {
			case s.metaLine:
			case s.timedOut:
				err = s.PrintSystemMsg(MsgTimePasses)
			default:
				err = s.PrintSystemMsg(MsgNotUnderstood)
			}
			if err != nil {
				return err
			}
			if !s.metaLine {
				s.Newline()
			}
			continue
		}
		if err := exec.Execute(ctx, s); err != nil {
			return quietEnd(err)
		}
		s.Flags.IncTurns()
	}
}

func quietEnd(err error) error {
	if errors.Is(err, ErrQuit) || errors.Is(err, platform.ErrClosed) {
		return nil
	}
	return err
}

// TraceExecutor prints the words of each resolved sentence. When the
// first noun names an object, that object becomes the referenced object
// and its name and weight are shown.
type TraceExecutor struct{}

func (TraceExecutor) Execute(ctx context.Context, s *Session) error {
	s.WriteString(s.describe())

	obj := s.Objects.FindByNounAdjective(s.Flags.Noun1(), s.Flags.Adjective1())
	if obj != gamedb.NullWord {
		if err := s.ReferencedObject(obj); err != nil {
			return err
		}
		name, err := s.Decoder().ObjectName(obj, s.Articles(), false)
		if err != nil {
			return fmt.Errorf("engine: trace: %w", err)
		}
		s.WriteString(": " + name + ", weight ")
		s.PrintNumber(uint16(s.Objects.Weight(obj, false)))
	}
	s.Newline()
	return nil
}

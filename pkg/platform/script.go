package platform

import "bytes"

type step struct {
	idle int
	line string
}

// Script is a deterministic platform for tests. Input is queued with
// Type and Wait; every IdlePump advances the clock by one tick and
// delivers at most one line. Output is collected in Out.
type Script struct {
	Out bytes.Buffer

	steps   []step
	pending []byte
	ticks   uint16
	pumps   int
}

// NewScript queues the given lines.
func NewScript(lines ...string) *Script {
	s := &Script{}
	for _, l := range lines {
		s.Type(l)
	}
	return s
}

// Type queues a line; a carriage return is added.
func (s *Script) Type(line string) *Script {
	s.steps = append(s.steps, step{line: line + "\r"})
	return s
}

// Keys queues raw characters with no carriage return added.
func (s *Script) Keys(keys string) *Script {
	s.steps = append(s.steps, step{line: keys})
	return s
}

// Wait makes the next line arrive only after n idle ticks.
func (s *Script) Wait(n int) *Script {
	s.steps = append(s.steps, step{idle: n})
	return s
}

// Pumps returns how often IdlePump was called.
func (s *Script) Pumps() int { return s.pumps }

func (s *Script) PollInput() bool { return len(s.pending) > 0 }

func (s *Script) ReadChar() byte {
	if len(s.pending) == 0 {
		return 0
	}
	c := s.pending[0]
	s.pending = s.pending[1:]
	return c
}

func (s *Script) WriteChar(c byte)     { s.Out.WriteByte(c) }
func (s *Script) WriteString(v string) { s.Out.WriteString(v) }
func (s *Script) Ticks() uint16        { return s.ticks }
func (s *Script) ResetTicks()          { s.ticks = 0 }

func (s *Script) IdlePump() error {
	s.pumps++
	s.ticks++
	if len(s.pending) > 0 {
		return nil
	}
	for len(s.steps) > 0 {
		st := &s.steps[0]
		if st.idle > 0 {
			st.idle--
			return nil
		}
		s.steps = s.steps[1:]
		if st.line != "" {
			s.pending = append(s.pending, st.line...)
			return nil
		}
	}
	return ErrClosed
}

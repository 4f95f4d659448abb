package platform

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/text/transform"

	"github.com/crystal-mush/godaad/pkg/text"
)

// Terminal is a line-oriented platform over a reader and a writer: a
// console, a TCP connection or a WebSocket stream. Lines are read in the
// background and handed to the interpreter one at a time from IdlePump,
// so type-ahead survives the prompt's input drain.
type Terminal struct {
	out     io.Writer
	lines   chan []byte
	done    chan struct{}
	once    sync.Once
	pending []byte
	start   time.Time
	werr    error
}

// NewTerminal starts reading lines from r. UTF-8 input is converted to
// the DAAD character set and every line ends in a carriage return.
func NewTerminal(r io.Reader, w io.Writer) *Terminal {
	t := &Terminal{
		out:   w,
		lines: make(chan []byte),
		done:  make(chan struct{}),
		start: time.Now(),
	}
	go t.readLoop(r)
	return t
}

func (t *Terminal) readLoop(r io.Reader) {
	defer close(t.lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line, _, err := transform.Bytes(text.ToDAAD(), sc.Bytes())
		if err != nil {
			log.Printf("platform: WARNING: input conversion: %v", err)
			continue
		}
		line = append(trimCR(line), '\r')
		select {
		case t.lines <- line:
		case <-t.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		log.Printf("platform: read error: %v", err)
	}
}

func trimCR(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		return b[:n-1]
	}
	return b
}

// Close stops delivering input. The reader goroutine exits once its
// current read returns.
func (t *Terminal) Close() {
	t.once.Do(func() { close(t.done) })
}

func (t *Terminal) PollInput() bool { return len(t.pending) > 0 }

func (t *Terminal) ReadChar() byte {
	if len(t.pending) == 0 {
		return 0
	}
	c := t.pending[0]
	t.pending = t.pending[1:]
	return c
}

func (t *Terminal) WriteChar(c byte) {
	t.WriteString(string([]byte{c}))
}

// WriteString converts s from the DAAD character set. The first write
// error is kept and reported by IdlePump.
func (t *Terminal) WriteString(s string) {
	if t.werr != nil {
		return
	}
	u, _, err := transform.String(text.FromDAAD(), s)
	if err != nil {
		t.werr = fmt.Errorf("platform: output conversion: %w", err)
		return
	}
	if _, err := io.WriteString(t.out, u); err != nil {
		t.werr = fmt.Errorf("platform: write: %w", err)
	}
}

func (t *Terminal) Ticks() uint16 {
	return uint16(time.Since(t.start) / TickDuration)
}

func (t *Terminal) ResetTicks() { t.start = time.Now() }

// IdlePump waits up to one tick for the next input line when nothing is
// pending.
func (t *Terminal) IdlePump() error {
	if t.werr != nil {
		return t.werr
	}
	if len(t.pending) > 0 {
		return nil
	}
	timer := time.NewTimer(TickDuration)
	defer timer.Stop()
	select {
	case line, ok := <-t.lines:
		if !ok {
			return ErrClosed
		}
		t.pending = append(t.pending, line...)
	case <-t.done:
		return ErrClosed
	case <-timer.C:
	}
	return nil
}

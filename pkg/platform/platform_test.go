package platform_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/crystal-mush/godaad/pkg/platform"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	_ platform.Platform = (*platform.Terminal)(nil)
	_ platform.Platform = (*platform.Script)(nil)
)

func readLine(p platform.Platform) string {
	var b []byte
	for p.PollInput() {
		b = append(b, p.ReadChar())
	}
	return string(b)
}

func pumpUntilInput(t *testing.T, p platform.Platform) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !p.PollInput() {
		if err := p.IdlePump(); err != nil {
			t.Fatalf("IdlePump error: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("no input delivered")
		}
	}
}

func TestTerminalLines(t *testing.T) {
	pr, pw := io.Pipe()
	var out bytes.Buffer
	term := platform.NewTerminal(pr, &out)
	defer term.Close()

	go func() {
		io.WriteString(pw, "get lamp\nseñor\r\n")
		pw.Close()
	}()

	pumpUntilInput(t, term)
	if got := readLine(term); got != "get lamp\r" {
		t.Errorf("expected first line only, got %q", got)
	}
	pumpUntilInput(t, term)
	if got := readLine(term); got != "se\x1aor\r" {
		t.Errorf("expected DAAD ñ, got %q", got)
	}

	var err error
	for err == nil {
		err = term.IdlePump()
	}
	if !errors.Is(err, platform.ErrClosed) {
		t.Errorf("expected ErrClosed at end of input, got %v", err)
	}
	if term.ReadChar() != 0 {
		t.Error("expected 0 from an empty queue")
	}

	term.WriteString("\x11Hola!")
	term.WriteChar(' ')
	if out.String() != "¡Hola! " {
		t.Errorf("expected UTF-8 output, got %q", out.String())
	}
}

func TestTerminalClose(t *testing.T) {
	pr, pw := io.Pipe()
	term := platform.NewTerminal(pr, io.Discard)
	term.Close()
	if err := term.IdlePump(); !errors.Is(err, platform.ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
	// The reader goroutine is parked in Read until the stream ends.
	pw.Close()
	time.Sleep(10 * time.Millisecond)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestTerminalWriteError(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := platform.NewTerminal(pr, failingWriter{})
	defer term.Close()

	term.WriteString("hello")
	if err := term.IdlePump(); err == nil {
		t.Error("expected the write error from IdlePump")
	}
}

func TestTerminalTicks(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := platform.NewTerminal(pr, io.Discard)
	defer term.Close()

	term.ResetTicks()
	time.Sleep(3 * platform.TickDuration)
	if term.Ticks() < 2 {
		t.Errorf("expected at least 2 ticks, got %d", term.Ticks())
	}
	term.ResetTicks()
	if term.Ticks() != 0 {
		t.Errorf("expected 0 after reset, got %d", term.Ticks())
	}
}

func TestScript(t *testing.T) {
	s := platform.NewScript("LOOK").Wait(3).Keys("ab")

	if s.PollInput() {
		t.Fatal("input must not arrive before IdlePump")
	}
	if err := s.IdlePump(); err != nil {
		t.Fatal(err)
	}
	if got := readLine(s); got != "LOOK\r" {
		t.Errorf("expected LOOK, got %q", got)
	}
	for i := 0; i < 3; i++ {
		if err := s.IdlePump(); err != nil || s.PollInput() {
			t.Fatalf("pump %d: expected idle tick, got err=%v input=%v", i, err, s.PollInput())
		}
	}
	if err := s.IdlePump(); err != nil {
		t.Fatal(err)
	}
	if got := readLine(s); got != "ab" {
		t.Errorf("expected raw keys, got %q", got)
	}
	if err := s.IdlePump(); !errors.Is(err, platform.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if s.Ticks() != 6 || s.Pumps() != 6 {
		t.Errorf("expected 6 ticks and pumps, got %d and %d", s.Ticks(), s.Pumps())
	}

	s.WriteString("x")
	s.WriteChar('y')
	if s.Out.String() != "xy" {
		t.Errorf("expected xy, got %q", s.Out.String())
	}
}

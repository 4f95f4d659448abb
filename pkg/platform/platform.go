// Package platform is the narrow surface between the interpreter and the
// machine it runs on: keyboard, text output and a coarse timer.
package platform

import (
	"errors"
	"time"
)

// ErrClosed is returned by IdlePump once no more input can arrive.
var ErrClosed = errors.New("platform: input closed")

// TickDuration is the length of one timer tick (a 50 Hz frame).
const TickDuration = 20 * time.Millisecond

// Platform is implemented by every front end. Text crosses it in the
// DAAD character set.
type Platform interface {
	// PollInput reports whether ReadChar has a character ready.
	PollInput() bool
	// ReadChar consumes one character; it returns 0 when none is ready.
	ReadChar() byte
	WriteChar(c byte)
	WriteString(s string)
	Ticks() uint16
	ResetTicks()
	// IdlePump is called on every turn of a wait loop. It lets the
	// platform deliver input and advance time, and fails once the
	// session cannot continue.
	IdlePump() error
}

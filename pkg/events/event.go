package events

import "time"

// EventType classifies events for transport-specific encoding.
type EventType int

const (
	EvText         EventType = iota // Text printed by the interpreter
	EvInput                         // Line typed by the player
	EvPrompt                        // Interpreter is waiting for a line
	EvSentence                      // Logical sentence resolved
	EvUnknown                       // Line with no recognised words
	EvTimeout                       // Input wait timed out
	EvSave                          // Save slot written
	EvLoad                          // Save slot restored
	EvSessionStart                  // Session started
	EvSessionEnd                    // Session ended
	EvReload                        // Database file reloaded
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvText:
		return "text"
	case EvInput:
		return "input"
	case EvPrompt:
		return "prompt"
	case EvSentence:
		return "sentence"
	case EvUnknown:
		return "unknown_words"
	case EvTimeout:
		return "timeout"
	case EvSave:
		return "save"
	case EvLoad:
		return "load"
	case EvSessionStart:
		return "session_start"
	case EvSessionEnd:
		return "session_end"
	case EvReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Event is a structured session event that flows through the event bus.
// Transports and recorders decide how to encode each event: the
// transcript stores Text, metrics count by Type.
type Event struct {
	Type    EventType
	Session string         // Session id (empty for broadcast)
	Game    string         // Game name the session plays
	Text    string         // Text in UTF-8
	Data    map[string]any // Structured data (sentence slots, slot names)
	Time    time.Time
}

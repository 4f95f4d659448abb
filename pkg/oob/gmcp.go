package oob

import (
	"bytes"
	"encoding/json"
	"io"
	"sync/atomic"

	"github.com/crystal-mush/godaad/pkg/events"
)

// GMCPPackage maps event types to GMCP package names.
func GMCPPackage(evType events.EventType) string {
	switch evType {
	case events.EvPrompt:
		return "Daad.Prompt"
	case events.EvSentence:
		return "Daad.Sentence"
	case events.EvTimeout:
		return "Daad.Timeout"
	case events.EvSave:
		return "Daad.Save"
	case events.EvLoad:
		return "Daad.Load"
	case events.EvReload:
		return "Daad.Reload"
	case events.EvSessionStart:
		return "Core.Session"
	default:
		return ""
	}
}

// Offer writes IAC WILL GMCP.
func Offer(w io.Writer) error {
	_, err := w.Write([]byte{IAC, WILL, TeloptGMCP})
	return err
}

// EncodeGMCP encodes an event as a GMCP telnet subnegotiation sequence:
// IAC SB 201 <package> <space> <json> IAC SE. The event text, if any, is
// sent as the "text" field. Returns nil if the event has no GMCP mapping.
func EncodeGMCP(ev events.Event) []byte {
	pkg := GMCPPackage(ev.Type)
	if pkg == "" {
		return nil
	}

	data := make(map[string]any, len(ev.Data)+1)
	for k, v := range ev.Data {
		data[k] = v
	}
	if ev.Text != "" {
		data["text"] = ev.Text
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	payload := append([]byte(pkg+" "), jsonData...)
	buf := make([]byte, 0, len(payload)+5)
	buf = append(buf, IAC, SB, TeloptGMCP)
	buf = append(buf, bytes.ReplaceAll(payload, []byte{IAC}, []byte{IAC, IAC})...)
	buf = append(buf, IAC, SE)
	return buf
}

// ParseGMCPMessage splits an incoming GMCP message into its package name
// and JSON data. The data is the raw bytes between SB 201 and IAC SE.
func ParseGMCPMessage(data []byte) (pkg string, jsonData []byte) {
	if i := bytes.IndexByte(data, ' '); i >= 0 {
		return string(data[:i]), data[i+1:]
	}
	return string(data), nil
}

// Sender forwards session events to a GMCP client. It is an
// events.Subscriber; nothing is sent until the client accepted GMCP.
type Sender struct {
	w      io.Writer
	caps   *Capabilities
	closed atomic.Bool
}

// NewSender writes GMCP frames to w while caps says GMCP is on.
func NewSender(w io.Writer, caps *Capabilities) *Sender {
	return &Sender{w: w, caps: caps}
}

// Receive implements events.Subscriber.
func (s *Sender) Receive(ev events.Event) {
	if !s.caps.GMCP() {
		return
	}
	if buf := EncodeGMCP(ev); buf != nil {
		if _, err := s.w.Write(buf); err != nil {
			s.closed.Store(true)
		}
	}
}

// Closed implements events.Subscriber.
func (s *Sender) Closed() bool { return s.closed.Load() }

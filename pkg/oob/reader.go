package oob

import (
	"io"
	"log"
	"sync/atomic"
)

// Capabilities records what the client agreed to. It is written by the
// Reader and read by whoever sends out-of-band data.
type Capabilities struct {
	gmcp atomic.Bool
}

// GMCP reports whether the client answered DO GMCP.
func (c *Capabilities) GMCP() bool { return c.gmcp.Load() }

type readState int

const (
	stData readState = iota
	stIAC
	stOption // after WILL/WONT/DO/DONT
	stSub    // inside SB ... IAC SE
	stSubIAC
)

// Reader removes telnet commands from the stream it wraps. Negotiation
// answers update Capabilities; GMCP messages from the client go to
// OnGMCP when it is set.
type Reader struct {
	r      io.Reader
	caps   *Capabilities
	OnGMCP func(pkg string, data []byte)

	state readState
	verb  byte
	sub   []byte
	buf   []byte
}

// NewReader wraps r. caps may be nil when nothing was offered.
func NewReader(r io.Reader, caps *Capabilities) *Reader {
	if caps == nil {
		caps = &Capabilities{}
	}
	return &Reader{r: r, caps: caps, buf: make([]byte, 512)}
}

// Read returns at least one data byte unless the underlying reader fails.
func (t *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		want := min(len(p), len(t.buf))
		n, err := t.r.Read(t.buf[:want])
		out := t.filter(p, t.buf[:n])
		if out > 0 || err != nil {
			return out, err
		}
	}
}

// filter copies the data bytes of in to p and returns how many it copied.
// len(in) <= len(p), so the data always fits.
func (t *Reader) filter(p, in []byte) int {
	n := 0
	for _, b := range in {
		switch t.state {
		case stData:
			if b == IAC {
				t.state = stIAC
				continue
			}
			p[n] = b
			n++
		case stIAC:
			switch b {
			case IAC:
				p[n] = IAC
				n++
				t.state = stData
			case WILL, WONT, DO, DONT:
				t.verb = b
				t.state = stOption
			case SB:
				t.sub = t.sub[:0]
				t.state = stSub
			default:
				t.state = stData
			}
		case stOption:
			t.option(t.verb, b)
			t.state = stData
		case stSub:
			if b == IAC {
				t.state = stSubIAC
				continue
			}
			t.sub = append(t.sub, b)
		case stSubIAC:
			switch b {
			case SE:
				t.subnegotiation(t.sub)
				t.state = stData
			case IAC:
				t.sub = append(t.sub, IAC)
				t.state = stSub
			default:
				t.state = stSub
			}
		}
	}
	return n
}

func (t *Reader) option(verb, opt byte) {
	if opt != TeloptGMCP {
		return
	}
	switch verb {
	case DO:
		if !t.caps.gmcp.Swap(true) {
			log.Printf("oob: client supports GMCP")
		}
	case DONT:
		if t.caps.gmcp.Swap(false) {
			log.Printf("oob: client declined GMCP")
		}
	}
}

func (t *Reader) subnegotiation(data []byte) {
	if len(data) == 0 || data[0] != TeloptGMCP || t.OnGMCP == nil {
		return
	}
	pkg, payload := ParseGMCPMessage(data[1:])
	t.OnGMCP(pkg, payload)
}

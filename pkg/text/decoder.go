// Package text expands the compressed message texts of a DDB: literal
// characters are stored inverted, and bytes above 127 stand for entries
// of the token dictionary.
package text

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// MaxMessageLen bounds the number of source bytes read for one message.
const MaxMessageLen = 4096

var (
	ErrUnterminated = errors.New("text: unterminated message")
	ErrNoToken      = errors.New("text: no such token")
	ErrNoMessage    = errors.New("text: no such message")
)

// Writer receives decoded text. Platforms implement it.
type Writer interface {
	WriteString(s string)
}

// ObjectNamer renders the referenced object's name for the '_' and '@'
// escapes. capital is set for '@'.
type ObjectNamer func(capital bool) (string, error)

// Decoder expands messages of one database.
type Decoder struct {
	db    *ddb.Database
	out   Writer
	namer ObjectNamer
}

// NewDecoder returns a decoder that prints to out. Either out or namer
// may be nil: without out nothing is ever printed, without namer the
// escapes are kept as literal characters.
func NewDecoder(db *ddb.Database, out Writer, namer ObjectNamer) *Decoder {
	return &Decoder{db: db, out: out, namer: namer}
}

// Token returns token k: the k-th run of the token table, where each run
// ends with a byte that has bit 7 set.
func (d *Decoder) Token(k uint8) (string, error) {
	if k >= ddb.MaxTokens {
		return "", fmt.Errorf("%w: %d", ErrNoToken, k)
	}
	buf := d.db.Buffer()
	addr := d.db.TokensAddr()
	for skipped := uint8(0); skipped < k; addr++ {
		b, err := buf.ByteAt(addr)
		if err != nil {
			return "", fmt.Errorf("%w: %d: %v", ErrNoToken, k, err)
		}
		if b&0x80 != 0 {
			skipped++
		}
	}
	var sb strings.Builder
	for {
		b, err := buf.ByteAt(addr)
		if err != nil {
			return "", fmt.Errorf("%w: %d: %v", ErrNoToken, k, err)
		}
		sb.WriteByte(b & 0x7F)
		if b&0x80 != 0 {
			return sb.String(), nil
		}
		addr++
	}
}

// Decode expands entry n of a message table. With print set the text is
// written out a word at a time and the object escapes are substituted.
// The whole text is returned in both modes; the closing line feed is not
// part of it.
func (d *Decoder) Decode(l ddb.List, n uint8, print bool) (string, error) {
	if int(n) >= d.db.Count(l) {
		return "", fmt.Errorf("%w: %s %d", ErrNoMessage, l, n)
	}
	addr, err := d.db.MessageAddr(l, n)
	if err != nil {
		return "", err
	}
	return d.DecodeAt(addr, print)
}

// DecodeAt expands the message starting at an absolute address.
func (d *Decoder) DecodeAt(addr uint16, print bool) (string, error) {
	if d.out == nil {
		print = false
	}
	buf := d.db.Buffer()

	var all, run strings.Builder
	flush := func() {
		if print && run.Len() > 0 {
			d.out.WriteString(run.String())
		}
		run.Reset()
	}
	emit := func(c byte) {
		all.WriteByte(c)
		run.WriteByte(c)
		if c == ' ' || c == '\r' || c == '\n' {
			flush()
		}
	}

	for i := 0; i < MaxMessageLen; i++ {
		b, err := buf.ByteAt(addr + uint16(i))
		if err != nil {
			return all.String(), fmt.Errorf("text: message at 0x%04x: %w", addr, err)
		}
		c := 255 - b
		switch {
		case c >= ddb.TokenBase:
			tok, err := d.Token(c - ddb.TokenBase)
			if err != nil {
				return all.String(), err
			}
			for j := 0; j < len(tok); j++ {
				emit(tok[j])
			}
		case c == '\n':
			flush()
			return all.String(), nil
		case print && d.namer != nil && (c == '_' || c == '@'):
			flush()
			name, err := d.namer(c == '@')
			if err != nil {
				return all.String(), err
			}
			d.out.WriteString(name)
			all.WriteString(name)
		default:
			emit(c)
		}
	}
	return all.String(), fmt.Errorf("%w at 0x%04x", ErrUnterminated, addr)
}

// ObjectName decodes the name of obj silently and puts it in definite
// form with art.
func (d *Decoder) ObjectName(obj uint8, art Articles, capital bool) (string, error) {
	name, err := d.Decode(ddb.ListObjects, obj, false)
	if err != nil {
		return "", err
	}
	return art.Definite(name, capital), nil
}

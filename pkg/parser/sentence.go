// Package parser turns a typed command into logical sentences: words are
// matched against the vocabulary into (id, type) pairs, and one clause
// at a time is resolved into the sentence flags.
package parser

import (
	"fmt"
	"strings"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// MaxPairs is the capacity of the sentence buffer.
const MaxPairs = 64

// Pair is one matched word.
type Pair struct {
	ID   uint8
	Type ddb.WordType
}

func (p Pair) String() string {
	return fmt.Sprintf("%d/%s", p.ID, p.Type)
}

// Sentence is the logical sentence buffer. Conjunction pairs split it
// into clauses, which are consumed from the front.
type Sentence struct {
	pairs []Pair
}

// Clear empties the buffer.
func (s *Sentence) Clear() { s.pairs = s.pairs[:0] }

// Empty reports whether no clause is pending.
func (s *Sentence) Empty() bool { return len(s.pairs) == 0 }

// Len returns the number of pairs held.
func (s *Sentence) Len() int { return len(s.pairs) }

// Pairs returns the pending pairs. The slice is only valid until the
// buffer changes.
func (s *Sentence) Pairs() []Pair { return s.pairs }

// Append adds a pair, reporting false when the buffer is full.
func (s *Sentence) Append(p Pair) bool {
	if len(s.pairs) >= MaxPairs {
		return false
	}
	s.pairs = append(s.pairs, p)
	return true
}

// Clause returns the pairs of the leading clause, without its
// conjunction.
func (s *Sentence) Clause() []Pair {
	for i, p := range s.pairs {
		if p.Type == ddb.Conjunction {
			return s.pairs[:i]
		}
	}
	return s.pairs
}

// Next drops the leading clause and the conjunction that ends it, moving
// the remaining pairs to the front.
func (s *Sentence) Next() {
	n := len(s.Clause())
	if n < len(s.pairs) {
		n++
	}
	rest := copy(s.pairs, s.pairs[n:])
	s.pairs = s.pairs[:rest]
}

// Bytes returns the flat (id, type) encoding followed by a zero byte.
// Words with id 0 are kept in the buffer, so a zero id can also appear
// before the end; the encoding is only self-delimiting for buffers
// without them. Use Len or Pairs to walk a buffer that may hold one.
func (s *Sentence) Bytes() []byte {
	out := make([]byte, 0, 2*len(s.pairs)+1)
	for _, p := range s.pairs {
		out = append(out, p.ID, uint8(p.Type))
	}
	return append(out, 0)
}

func (s *Sentence) String() string {
	parts := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

package parser

import (
	"strings"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// Matcher looks words up in a database vocabulary.
type Matcher struct {
	words []ddb.Word
}

// NewMatcher returns a matcher over the vocabulary of db.
func NewMatcher(db *ddb.Database) *Matcher {
	return &Matcher{words: db.Vocabulary()}
}

// Match returns the first vocabulary entry for word. Only the first
// ddb.WordLen characters count and case is ignored.
func (m *Matcher) Match(word string) (Pair, bool) {
	if len(word) > ddb.WordLen {
		word = word[:ddb.WordLen]
	}
	key := ddb.InvertWord(upper(word))
	for _, w := range m.words {
		if w.Stored == key {
			return Pair{ID: w.ID, Type: w.Type}, true
		}
	}
	return Pair{}, false
}

// Tokenize clears s and appends the pair for every recognised word of
// line. Unknown words, and words past the buffer capacity, are dropped;
// the number dropped is returned.
func (m *Matcher) Tokenize(line string, s *Sentence) int {
	s.Clear()
	dropped := 0
	for _, word := range strings.Split(line, " ") {
		if word == "" {
			continue
		}
		p, ok := m.Match(word)
		if !ok || !s.Append(p) {
			dropped++
		}
	}
	return dropped
}

// upper folds ASCII letters only; DAAD bytes 0x10-0x1F pass unchanged.
func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

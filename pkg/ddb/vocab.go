package ddb

import (
	"strings"
)

// WordLen is the number of significant characters in a vocabulary word.
const WordLen = 5

// VocabEntrySize is the size of one vocabulary record.
const VocabEntrySize = WordLen + 2

// WordType is the grammatical class of a vocabulary entry.
type WordType uint8

const (
	Verb        WordType = 0
	Adverb      WordType = 1
	Noun        WordType = 2
	Adjective   WordType = 3
	Preposition WordType = 4
	Conjunction WordType = 5
	Pronoun     WordType = 6
)

func (t WordType) String() string {
	switch t {
	case Verb:
		return "verb"
	case Adverb:
		return "adverb"
	case Noun:
		return "noun"
	case Adjective:
		return "adjective"
	case Preposition:
		return "preposition"
	case Conjunction:
		return "conjunction"
	case Pronoun:
		return "pronoun"
	default:
		return "unknown"
	}
}

// Word is one vocabulary record. Stored holds the word as it appears in
// the image: every byte is 255 minus the character, space padded.
type Word struct {
	Stored [WordLen]byte
	ID     uint8
	Type   WordType
}

// InvertWord pads s with spaces (or cuts it) to WordLen characters and
// inverts every byte, giving the stored form of a vocabulary word.
func InvertWord(s string) [WordLen]byte {
	var w [WordLen]byte
	for i := range w {
		c := byte(' ')
		if i < len(s) {
			c = s[i]
		}
		w[i] = 255 - c
	}
	return w
}

// Text returns the decoded word without trailing padding.
func (w Word) Text() string {
	var b [WordLen]byte
	for i, c := range w.Stored {
		b[i] = 255 - c
	}
	return strings.TrimRight(string(b[:]), " ")
}

func (w Word) String() string {
	return w.Text() + "/" + w.Type.String()
}

// Vocabulary returns the vocabulary table in image order, stopping at the
// entry whose first byte is zero or at the end of the image. The result is
// decoded once and cached.
func (db *Database) Vocabulary() []Word {
	db.vocabOnce.Do(func() {
		db.vocab = []Word{}
		tail, err := db.buf.Tail(db.Header.VocPos)
		if err != nil {
			return
		}
		for len(tail) >= VocabEntrySize && tail[0] != 0 {
			var w Word
			copy(w.Stored[:], tail[:WordLen])
			w.ID = tail[WordLen]
			w.Type = WordType(tail[WordLen+1])
			db.vocab = append(db.vocab, w)
			tail = tail[VocabEntrySize:]
		}
	})
	return db.vocab
}

// WordFor returns the first vocabulary entry with the given id and type.
func (db *Database) WordFor(id uint8, t WordType) (Word, bool) {
	for _, w := range db.Vocabulary() {
		if w.ID == id && w.Type == t {
			return w, true
		}
	}
	return Word{}, false
}

package parser

import (
	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/gamedb"
)

// CompactImperativeLimit is the first noun id that is not also a verb.
// Nouns below it (the directions, mostly) act as their own verb when
// they come first.
const CompactImperativeLimit = 20

// Objects is the object lookup the resolver needs.
type Objects interface {
	FindByNounAdjective(noun, adjective uint8) uint8
	Get(id uint8) (*gamedb.Object, error)
}

// Resolve fills the sentence flags from the leading clause of s and then
// drops that clause. It reports whether any slot was filled.
func Resolve(s *Sentence, f *gamedb.Flags, objs Objects) bool {
	f.ClearSentence()
	filled := false
	adjFlag := uint8(gamedb.FlagAdject1)

	for _, p := range s.Clause() {
		switch {
		case p.Type == ddb.Verb && f.Verb() == gamedb.NullWord:
			f.SetVerb(p.ID)
		case p.Type == ddb.Noun && f.Noun1() == gamedb.NullWord:
			f.SetNoun1(p.ID)
			if p.ID < CompactImperativeLimit {
				f.SetVerb(p.ID)
			}
		case p.Type == ddb.Noun && f.Noun2() == gamedb.NullWord:
			f.SetNoun2(p.ID)
			adjFlag = gamedb.FlagAdject2
		case p.Type == ddb.Adverb && f.Adverb() == gamedb.NullWord:
			f.SetAdverb(p.ID)
		case p.Type == ddb.Preposition && f.Preposition() == gamedb.NullWord:
			f.SetPreposition(p.ID)
		case p.Type == ddb.Adjective && f.Get(adjFlag) == gamedb.NullWord:
			f.Set(adjFlag, p.ID)
		default:
			continue
		}
		filled = true
	}

	if f.Noun2() != gamedb.NullWord {
		if id := objs.FindByNounAdjective(f.Noun2(), f.Adjective2()); id != gamedb.NullWord {
			if o, err := objs.Get(id); err == nil {
				f.SetO2Container(o.Attrs.IsContainer())
			}
		}
	}

	s.Next()
	return filled
}

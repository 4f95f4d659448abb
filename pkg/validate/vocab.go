package validate

import (
	"github.com/crystal-mush/godaad/pkg/ddb"
)

// VocabularyChecker looks for words the matcher can never return.
type VocabularyChecker struct{}

func (c *VocabularyChecker) Name() string { return "vocabulary" }

func (c *VocabularyChecker) Check(db *ddb.Database) []Finding {
	col := &collector{prefix: "vocabulary"}
	const list = "vocabulary"

	words := db.Vocabulary()
	if len(words) == 0 {
		col.add(CatVocabulary, SevError, list, 0, "vocabulary is empty")
		return col.findings
	}

	first := make(map[[ddb.WordLen]byte]int)
	for i, w := range words {
		if w.Type > ddb.Pronoun {
			col.add(CatVocabulary, SevError, list, i, "word %q has unknown type %d", w.Text(), w.Type)
		}
		for _, r := range w.Text() {
			if r >= 'a' && r <= 'z' {
				col.add(CatVocabulary, SevWarning, list, i, "word %q has lower-case letters and never matches", w.Text())
				break
			}
		}
		if j, ok := first[w.Stored]; ok {
			prev := words[j]
			if prev.ID != w.ID || prev.Type != w.Type {
				col.add(CatVocabulary, SevWarning, list, i,
					"word %q (%s %d) is shadowed by entry %d (%s %d)", w.Text(), w.Type, w.ID, j, prev.Type, prev.ID)
			}
			continue
		}
		first[w.Stored] = i
	}
	return col.findings
}

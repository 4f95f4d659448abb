package text

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// Articles rewrites object names for in-text substitution. Object names
// are stored as they are listed ("a lamp.", "una linterna."); a message
// that mentions the referenced object wants the definite form.
type Articles interface {
	Language() language.Tag
	// Definite swaps an indefinite article for the definite one and drops
	// the trailing full stop. With capital set the result starts upper
	// case.
	Definite(name string, capital bool) string
}

var supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(supported)

// ArticlesFor returns the strategy closest to tag, English by default.
func ArticlesFor(tag language.Tag) Articles {
	_, i, _ := matcher.Match(tag)
	if supported[i] == language.Spanish {
		return spanish{}
	}
	return english{}
}

// Tag maps the language nibble of a DDB header.
func Tag(l ddb.Language) language.Tag {
	if l == ddb.Spanish {
		return language.Spanish
	}
	return language.English
}

type rewrite struct{ from, to string }

func swapArticle(name string, rules []rewrite) (string, bool) {
	lower := strings.ToLower(name)
	for _, r := range rules {
		if strings.HasPrefix(lower, r.from) {
			return r.to + name[len(r.from):], true
		}
	}
	return name, false
}

func trimStop(s string) string {
	return strings.TrimRight(s, ".\r\n")
}

func upperFirst(tag language.Tag, s string) string {
	_, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return cases.Upper(tag).String(s[:n]) + s[n:]
}

type english struct{}

var englishRules = []rewrite{
	{"an ", "the "},
	{"a ", "the "},
	{"some ", "the "},
}

func (english) Language() language.Tag { return language.English }

func (e english) Definite(name string, capital bool) string {
	s, _ := swapArticle(trimStop(name), englishRules)
	if capital {
		s = upperFirst(language.English, s)
	}
	return s
}

type spanish struct{}

// Longer prefixes first so "una " is not read as "un ".
var spanishRules = []rewrite{
	{"unos ", "los "},
	{"unas ", "las "},
	{"una ", "la "},
	{"un ", "el "},
}

func (spanish) Language() language.Tag { return language.Spanish }

func (s spanish) Definite(name string, capital bool) string {
	out, _ := swapArticle(trimStop(name), spanishRules)
	if capital {
		out = upperFirst(language.Spanish, out)
	}
	return out
}

package parser_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/ddb/ddbtest"
	"github.com/crystal-mush/godaad/pkg/gamedb"
	"github.com/crystal-mush/godaad/pkg/parser"
)

type fixture struct {
	m    *parser.Matcher
	objs *gamedb.Table
	f    *gamedb.Flags
	s    *parser.Sentence
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := ddbtest.Sample().MustLoad(0x2000)
	fx := &fixture{
		m:    parser.NewMatcher(db),
		objs: &gamedb.Table{},
		f:    &gamedb.Flags{},
		s:    &parser.Sentence{},
	}
	if err := fx.objs.DecodeAll(db, fx.f); err != nil {
		t.Fatalf("DecodeAll error: %v", err)
	}
	return fx
}

// slots is the resolved sentence as read back from the flags.
type slots struct {
	Verb, Noun1, Adj1, Adverb, Prep, Noun2, Adj2 uint8
}

func (fx *fixture) slots() slots {
	f := fx.f
	return slots{f.Verb(), f.Noun1(), f.Adjective1(), f.Adverb(), f.Preposition(), f.Noun2(), f.Adjective2()}
}

const null = gamedb.NullWord

func TestMatch(t *testing.T) {
	fx := newFixture(t)
	tests := []struct {
		word string
		want parser.Pair
		ok   bool
	}{
		{"GET", parser.Pair{ID: ddbtest.VerbGet, Type: ddb.Verb}, true},
		{"take", parser.Pair{ID: ddbtest.VerbGet, Type: ddb.Verb}, true},
		{"NORTHERN", parser.Pair{ID: ddbtest.NounNorth, Type: ddb.Noun}, true},
		{"n", parser.Pair{ID: ddbtest.NounNorth, Type: ddb.Noun}, true},
		{"LAMPSHADE", parser.Pair{}, false},
		{"XYZZY", parser.Pair{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got, ok := fx.m.Match(tt.word)
			if ok != tt.ok || got != tt.want {
				t.Errorf("expected %v %v, got %v %v", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	fx := newFixture(t)
	dropped := fx.m.Tokenize("GET  THE LAMP", fx.s)
	if dropped != 1 {
		t.Errorf("expected 1 dropped word, got %d", dropped)
	}
	want := []byte{ddbtest.VerbGet, byte(ddb.Verb), ddbtest.NounLamp, byte(ddb.Noun), 0}
	if diff := cmp.Diff(want, fx.s.Bytes()); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}

	// A new line replaces whatever was pending.
	fx.m.Tokenize("DROP", fx.s)
	if fx.s.Len() != 1 {
		t.Errorf("expected 1 pair after retokenize, got %d", fx.s.Len())
	}
}

func TestTokenizeCapacity(t *testing.T) {
	fx := newFixture(t)
	line := strings.TrimSpace(strings.Repeat("N ", parser.MaxPairs+6))
	if dropped := fx.m.Tokenize(line, fx.s); dropped != 6 {
		t.Errorf("expected 6 dropped, got %d", dropped)
	}
	if fx.s.Len() != parser.MaxPairs {
		t.Errorf("expected full buffer of %d, got %d", parser.MaxPairs, fx.s.Len())
	}
}

func TestResolveTwoClauses(t *testing.T) {
	fx := newFixture(t)
	fx.m.Tokenize("GET LAMP AND GO NORTH", fx.s)

	if !parser.Resolve(fx.s, fx.f, fx.objs) {
		t.Fatal("expected first clause to resolve")
	}
	want := slots{ddbtest.VerbGet, ddbtest.NounLamp, null, null, null, null, null}
	if diff := cmp.Diff(want, fx.slots()); diff != "" {
		t.Errorf("clause 1 mismatch (-want +got):\n%s", diff)
	}
	if fx.s.Empty() {
		t.Fatal("expected second clause pending")
	}

	if !parser.Resolve(fx.s, fx.f, fx.objs) {
		t.Fatal("expected second clause to resolve")
	}
	// NORTH is below the compact imperative limit and replaces GO.
	want = slots{ddbtest.NounNorth, ddbtest.NounNorth, null, null, null, null, null}
	if diff := cmp.Diff(want, fx.slots()); diff != "" {
		t.Errorf("clause 2 mismatch (-want +got):\n%s", diff)
	}
	if !fx.s.Empty() {
		t.Errorf("expected empty buffer, got %v", fx.s)
	}
}

func TestResolveSecondNoun(t *testing.T) {
	fx := newFixture(t)
	fx.m.Tokenize("QUICK PUT BRASS KEY IN BOX SMALL", fx.s)
	if !parser.Resolve(fx.s, fx.f, fx.objs) {
		t.Fatal("expected clause to resolve")
	}
	want := slots{ddbtest.VerbPut, ddbtest.NounKey, ddbtest.AdjBrass, ddbtest.AdverbQuickly, ddbtest.PrepIn, ddbtest.NounBox, ddbtest.AdjSmall}
	if diff := cmp.Diff(want, fx.slots()); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
	if !fx.f.O2Container() {
		t.Error("expected the small box to be flagged as a container")
	}
}

func TestResolveAdjectiveTarget(t *testing.T) {
	fx := newFixture(t)
	fx.f.Set(gamedb.FlagO2Con, 7)
	// SMALL arrives while the adjective still targets the first noun,
	// which already has one, so it is discarded.
	fx.m.Tokenize("PUT BRASS KEY IN SMALL BOX", fx.s)
	parser.Resolve(fx.s, fx.f, fx.objs)
	if fx.f.Adjective2() != null {
		t.Errorf("expected no second adjective, got %d", fx.f.Adjective2())
	}
	// No object is a box without adjective: the register keeps its value.
	if fx.f.Get(gamedb.FlagO2Con) != 7 {
		t.Errorf("expected flag 39 untouched, got %d", fx.f.Get(gamedb.FlagO2Con))
	}
}

func TestResolveDuplicates(t *testing.T) {
	fx := newFixture(t)
	fx.m.Tokenize("GET DROP LAMP KEY BOX", fx.s)
	parser.Resolve(fx.s, fx.f, fx.objs)
	want := slots{ddbtest.VerbGet, ddbtest.NounLamp, null, null, null, ddbtest.NounKey, null}
	if diff := cmp.Diff(want, fx.slots()); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
	if fx.f.O2Container() {
		t.Error("a key without adjective names no object")
	}
}

func TestResolveNothingRecognised(t *testing.T) {
	fx := newFixture(t)
	fx.f.SetVerb(99)
	fx.f.Set(gamedb.FlagCPNoun, 5)
	fx.m.Tokenize("XYZZY PLUGH", fx.s)
	if parser.Resolve(fx.s, fx.f, fx.objs) {
		t.Error("expected false for an unrecognised line")
	}
	if fx.f.Verb() != null || fx.f.Get(gamedb.FlagCPNoun) != null {
		t.Error("expected slots reset to NullWord")
	}
}

func TestResolveEmptyClauses(t *testing.T) {
	fx := newFixture(t)
	fx.m.Tokenize("AND GET LAMP THEN", fx.s)
	if parser.Resolve(fx.s, fx.f, fx.objs) {
		t.Error("expected an empty leading clause to report false")
	}
	if !parser.Resolve(fx.s, fx.f, fx.objs) || fx.f.Noun1() != ddbtest.NounLamp {
		t.Error("expected GET LAMP next")
	}
	if !fx.s.Empty() {
		t.Errorf("expected trailing conjunction consumed, got %v", fx.s)
	}
}

func TestSentenceNext(t *testing.T) {
	var s parser.Sentence
	conj := parser.Pair{ID: ddbtest.ConjAnd, Type: ddb.Conjunction}
	a := parser.Pair{ID: 1, Type: ddb.Verb}
	b := parser.Pair{ID: 0, Type: ddb.Noun}
	for _, p := range []parser.Pair{a, conj, b, conj, a} {
		s.Append(p)
	}
	s.Next()
	if diff := cmp.Diff([]parser.Pair{b, conj, a}, s.Pairs()); diff != "" {
		t.Errorf("after Next (-want +got):\n%s", diff)
	}
	// An id of zero does not end the clause.
	if diff := cmp.Diff([]parser.Pair{b}, s.Clause()); diff != "" {
		t.Errorf("clause mismatch (-want +got):\n%s", diff)
	}
	s.Next()
	s.Next()
	if !s.Empty() {
		t.Errorf("expected empty, got %v", s.Pairs())
	}
	s.Next()
	if !s.Empty() {
		t.Error("Next on an empty buffer must stay empty")
	}
}

func TestSentenceBytesWithZeroID(t *testing.T) {
	var s parser.Sentence
	s.Append(parser.Pair{ID: 0, Type: ddb.Noun})
	s.Append(parser.Pair{ID: 7, Type: ddb.Verb})

	// The zero id stays in place; only the last byte terminates.
	want := []byte{0, byte(ddb.Noun), 7, byte(ddb.Verb), 0}
	if diff := cmp.Diff(want, s.Bytes()); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}
	if got := len(s.Bytes()); got != 2*s.Len()+1 {
		t.Errorf("expected %d bytes, got %d", 2*s.Len()+1, got)
	}
}

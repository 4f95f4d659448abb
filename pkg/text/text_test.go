package text_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"

	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/ddb/ddbtest"
	"github.com/crystal-mush/godaad/pkg/text"
)

// runs records every WriteString call separately.
type runs struct {
	parts []string
}

func (r *runs) WriteString(s string) { r.parts = append(r.parts, s) }

func (r *runs) String() string { return strings.Join(r.parts, "") }

func TestTokenOrdinals(t *testing.T) {
	b := ddbtest.Sample()
	b.Tokens = nil
	for i := 0; i < 40; i++ {
		b.Tokens = append(b.Tokens, fmt.Sprintf("t%d ", i))
	}
	dec := text.NewDecoder(b.MustLoad(0x1234), nil, nil)
	for k, want := range b.Tokens {
		got, err := dec.Token(uint8(k))
		if err != nil {
			t.Fatalf("Token(%d) error: %v", k, err)
		}
		if got != want {
			t.Errorf("Token(%d): expected %q, got %q", k, want, got)
		}
	}
	if _, err := dec.Token(ddb.MaxTokens); !errors.Is(err, text.ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestDecodeSilent(t *testing.T) {
	out := &runs{}
	dec := text.NewDecoder(ddbtest.Sample().MustLoad(0), out, nil)
	got, err := dec.Decode(ddb.ListSystemMessages, 6, false)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got != "I don't understand." {
		t.Errorf("expected %q, got %q", "I don't understand.", got)
	}
	if len(out.parts) != 0 {
		t.Errorf("silent decode wrote %q", out.parts)
	}
}

func TestDecodePrintFlushesWords(t *testing.T) {
	out := &runs{}
	dec := text.NewDecoder(ddbtest.Sample().MustLoad(0x8000), out, nil)
	// "is " is a token, so part of this text comes from the dictionary.
	got, err := dec.Decode(ddb.ListSystemMessages, 0, true)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	want := []string{"Everything ", "is ", "dark. ", "I ", "can't ", "see."}
	if diff := cmp.Diff(want, out.parts); diff != "" {
		t.Errorf("written runs mismatch (-want +got):\n%s", diff)
	}
	if got != strings.Join(want, "") {
		t.Errorf("expected returned text to match output, got %q", got)
	}
}

func TestDecodeObjectEscapes(t *testing.T) {
	out := &runs{}
	var capitals []bool
	namer := func(capital bool) (string, error) {
		capitals = append(capitals, capital)
		if capital {
			return "The lamp", nil
		}
		return "the lamp", nil
	}
	dec := text.NewDecoder(ddbtest.Sample().MustLoad(0), out, namer)

	if _, err := dec.Decode(ddb.ListUserMessages, 0, true); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if out.String() != "You pick up the lamp." {
		t.Errorf("expected substituted text, got %q", out.String())
	}
	out.parts = nil
	if _, err := dec.Decode(ddb.ListUserMessages, 1, true); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if out.String() != "The lamp is too heavy." {
		t.Errorf("expected capitalized substitution, got %q", out.String())
	}
	if diff := cmp.Diff([]bool{false, true}, capitals); diff != "" {
		t.Errorf("namer calls mismatch (-want +got):\n%s", diff)
	}

	// Extracting without printing keeps the escape characters.
	got, err := dec.Decode(ddb.ListUserMessages, 0, false)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got != "You pick up _." {
		t.Errorf("expected literal escape, got %q", got)
	}
}

func TestDecodeNamerError(t *testing.T) {
	boom := errors.New("boom")
	dec := text.NewDecoder(ddbtest.Sample().MustLoad(0), &runs{}, func(bool) (string, error) { return "", boom })
	if _, err := dec.Decode(ddb.ListUserMessages, 0, true); !errors.Is(err, boom) {
		t.Errorf("expected namer error, got %v", err)
	}
}

func TestDecodeBadIndex(t *testing.T) {
	dec := text.NewDecoder(ddbtest.Sample().MustLoad(0), nil, nil)
	if _, err := dec.Decode(ddb.ListLocations, 3, false); !errors.Is(err, text.ErrNoMessage) {
		t.Errorf("expected ErrNoMessage, got %v", err)
	}
}

func TestDecodeRunsOffImage(t *testing.T) {
	data := ddbtest.Sample().MustBuild()
	db, err := ddb.New(data, 0)
	if err != nil {
		t.Fatal(err)
	}
	// The last byte of the image is an extended attribute, never a line feed.
	dec := text.NewDecoder(db, nil, nil)
	if _, err := dec.DecodeAt(uint16(len(data)-1), false); !errors.Is(err, ddb.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestObjectName(t *testing.T) {
	dec := text.NewDecoder(ddbtest.Sample().MustLoad(0), nil, nil)
	en := text.ArticlesFor(language.English)
	got, err := dec.ObjectName(ddbtest.ObjIronKey, en, true)
	if err != nil {
		t.Fatalf("ObjectName error: %v", err)
	}
	if got != "The iron key" {
		t.Errorf("expected %q, got %q", "The iron key", got)
	}
}

func TestArticles(t *testing.T) {
	en := text.ArticlesFor(language.English)
	es := text.ArticlesFor(language.MustParse("es-ES"))
	if es.Language() != language.Spanish {
		t.Fatalf("expected Spanish strategy, got %v", es.Language())
	}
	if text.ArticlesFor(language.Japanese).Language() != language.English {
		t.Error("expected English fallback")
	}

	tests := []struct {
		art     text.Articles
		name    string
		capital bool
		want    string
	}{
		{en, "a lamp.", false, "the lamp"},
		{en, "A lamp.", true, "The lamp"},
		{en, "an iron key.", false, "the iron key"},
		{en, "some coins.\n", true, "The coins"},
		{en, "Excalibur.", false, "Excalibur"},
		{es, "una linterna.", false, "la linterna"},
		{es, "Una linterna.", true, "La linterna"},
		{es, "un cofre.", true, "El cofre"},
		{es, "unas llaves.", false, "las llaves"},
		{es, "\x16ter.", true, "\x16ter"},
	}
	for _, tt := range tests {
		if got := tt.art.Definite(tt.name, tt.capital); got != tt.want {
			t.Errorf("%v Definite(%q, %v): expected %q, got %q", tt.art.Language(), tt.name, tt.capital, tt.want, got)
		}
	}
	if text.Tag(ddb.Spanish) != language.Spanish || text.Tag(ddb.English) != language.English {
		t.Error("unexpected header language mapping")
	}
}

func TestCharsetRoundTrip(t *testing.T) {
	in := "¡Hola! ¿Qué tal, señor Muñoz?"
	daad, _, err := transform.String(text.ToDAAD(), in)
	if err != nil {
		t.Fatalf("ToDAAD error: %v", err)
	}
	for i := 0; i < len(daad); i++ {
		if daad[i] >= 0x80 {
			t.Fatalf("byte %d is 0x%02x, not a DAAD character", i, daad[i])
		}
	}
	if daad[0] != 0x11 {
		t.Errorf("expected ¡ as 0x11, got 0x%02x", daad[0])
	}
	back, _, err := transform.String(text.FromDAAD(), daad)
	if err != nil {
		t.Fatalf("FromDAAD error: %v", err)
	}
	if back != in {
		t.Errorf("expected %q, got %q", in, back)
	}

	lossy, _, _ := transform.String(text.ToDAAD(), "naïve")
	if lossy != "na?ve" {
		t.Errorf("expected replacement, got %q", lossy)
	}
}

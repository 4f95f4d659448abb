package ddbtest

import (
	"fmt"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// Vocabulary ids used by Sample.
const (
	NounNorth = 2
	NounSouth = 3
	NounLamp  = 50
	NounBox   = 51
	NounKey   = 53
	NounCloak = 54

	VerbGet  = 20
	VerbDrop = 21
	VerbGo   = 22
	VerbPut  = 24

	AdjBrass = 2
	AdjIron  = 3
	AdjSmall = 4

	AdverbQuickly = 1
	PrepIn        = 1
	ConjAnd       = 2
)

// Object ids used by Sample.
const (
	ObjLamp     = 0
	ObjBox      = 1
	ObjBrassKey = 2
	ObjIronKey  = 3
	ObjCloak    = 4
)

// Sample returns a builder for a tiny English game: a carried box holding
// two keys, a lamp in the hall and a worn cloak.
func Sample() *Builder {
	sys := make([]string, 40)
	for i := range sys {
		sys[i] = fmt.Sprintf("System message %d.", i)
	}
	sys[0] = "Everything is dark. I can't see."
	sys[2] = "What now?"
	sys[3] = "What next?"
	sys[4] = "Now what?"
	sys[5] = "Tell me what to do."
	sys[6] = "I don't understand."
	sys[35] = "Time passes..."

	return &Builder{
		Machine:  ddb.MachinePC,
		Language: ddb.English,
		Tokens:   []string{"the ", "you ", "is ", "ing "},
		Vocabulary: []Word{
			{"NORTH", NounNorth, ddb.Noun},
			{"N", NounNorth, ddb.Noun},
			{"SOUTH", NounSouth, ddb.Noun},
			{"GET", VerbGet, ddb.Verb},
			{"TAKE", VerbGet, ddb.Verb},
			{"DROP", VerbDrop, ddb.Verb},
			{"GO", VerbGo, ddb.Verb},
			{"PUT", VerbPut, ddb.Verb},
			{"LAMP", NounLamp, ddb.Noun},
			{"BOX", NounBox, ddb.Noun},
			{"KEY", NounKey, ddb.Noun},
			{"CLOAK", NounCloak, ddb.Noun},
			{"BRASS", AdjBrass, ddb.Adjective},
			{"IRON", AdjIron, ddb.Adjective},
			{"SMALL", AdjSmall, ddb.Adjective},
			{"QUICK", AdverbQuickly, ddb.Adverb},
			{"IN", PrepIn, ddb.Preposition},
			{"AND", ConjAnd, ddb.Conjunction},
			{"THEN", ConjAnd, ddb.Conjunction},
		},
		Objects: []Object{
			{Name: "a lamp.", Location: 2, Attrs: 1, Noun: NounLamp, Adjective: 255},
			{Name: "a small box.", Location: 254, Attrs: 0x80 | 1, Noun: NounBox, Adjective: AdjSmall},
			{Name: "a brass key.", Location: ObjBox, Attrs: 3, Noun: NounKey, Adjective: AdjBrass},
			{Name: "an iron key.", Location: ObjBox, Attrs: 3, Noun: NounKey, Adjective: AdjIron},
			{Name: "a cloak.", Location: 253, Attrs: 0x40 | 2, Ext1: 0x11, Ext2: 0x22, Noun: NounCloak, Adjective: 255},
		},
		Locations: []string{
			"Darkness.",
			"A dusty cellar.",
			"A narrow hall. The walls are bare.",
		},
		UserMessages: []string{
			"You pick up _.",
			"@ is too heavy.",
			"The lamp is glowing in the dark.",
		},
		SystemMessages: sys,
	}
}

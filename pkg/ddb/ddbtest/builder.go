// Package ddbtest assembles small DDB images for tests.
package ddbtest

import (
	"fmt"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// Word is a vocabulary entry in plain text.
type Word struct {
	Text string
	ID   uint8
	Type ddb.WordType
}

// Object describes one object: its text and the four table bytes.
type Object struct {
	Name      string
	Location  uint8
	Attrs     uint8
	Ext1      uint8
	Ext2      uint8
	Noun      uint8
	Adjective uint8
}

// Builder lays out a DDB image the way the compiler does: header, token
// table, message texts and their pointer tables, vocabulary and object
// tables.
type Builder struct {
	Machine        ddb.Machine
	Language       ddb.Language
	Tokens         []string
	Vocabulary     []Word
	Objects        []Object
	Locations      []string
	UserMessages   []string
	SystemMessages []string
}

// Build returns the image with base-relative offsets.
func (b *Builder) Build() ([]byte, error) {
	if len(b.Objects) > 255 || len(b.Locations) > 255 || len(b.UserMessages) > 255 || len(b.SystemMessages) > 255 {
		return nil, fmt.Errorf("ddbtest: more than 255 entries in a table")
	}
	order := b.Machine.ByteOrder()
	data := make([]byte, ddb.HeaderSize)
	word := func(v int) {
		var w [2]byte
		order.PutUint16(w[:], uint16(v))
		data = append(data, w[:]...)
	}

	tokensPos := len(data)
	toks, err := ddb.EncodeTokens(b.Tokens)
	if err != nil {
		return nil, err
	}
	data = append(data, toks...)

	table := func(texts []string) (int, error) {
		offs := make([]int, len(texts))
		for i, s := range texts {
			enc, err := ddb.EncodeString(s, b.Tokens)
			if err != nil {
				return 0, fmt.Errorf("ddbtest: message %d: %w", i, err)
			}
			offs[i] = len(data)
			data = append(data, enc...)
		}
		pos := len(data)
		for _, o := range offs {
			word(o)
		}
		return pos, nil
	}

	names := make([]string, len(b.Objects))
	for i, o := range b.Objects {
		names[i] = o.Name
	}
	objLstPos, err := table(names)
	if err != nil {
		return nil, err
	}
	locLstPos, err := table(b.Locations)
	if err != nil {
		return nil, err
	}
	usrMsgPos, err := table(b.UserMessages)
	if err != nil {
		return nil, err
	}
	sysMsgPos, err := table(b.SystemMessages)
	if err != nil {
		return nil, err
	}

	// No processes; the pointer still has to land inside the image.
	prcLstPos := len(data)
	data = append(data, 0)

	// Every location gets an empty connection list.
	conStart := len(data)
	data = append(data, 0xFF)
	conLstPos := len(data)
	for range b.Locations {
		word(conStart)
	}

	vocPos := len(data)
	for _, w := range b.Vocabulary {
		stored := ddb.InvertWord(w.Text)
		data = append(data, stored[:]...)
		data = append(data, w.ID, uint8(w.Type))
	}
	data = append(data, make([]byte, ddb.VocabEntrySize)...)

	objLocLst := len(data)
	for _, o := range b.Objects {
		data = append(data, o.Location)
	}
	objNamePos := len(data)
	for _, o := range b.Objects {
		data = append(data, o.Noun, o.Adjective)
	}
	objAttrPos := len(data)
	for _, o := range b.Objects {
		data = append(data, o.Attrs)
	}
	objExtrPos := len(data)
	for _, o := range b.Objects {
		data = append(data, o.Ext1, o.Ext2)
	}

	if len(data) > 0xFFFF {
		return nil, fmt.Errorf("ddbtest: image of %d bytes exceeds 64K", len(data))
	}

	data[0] = ddb.Version
	data[1] = uint8(b.Machine)<<4 | uint8(b.Language)&0x0F
	data[2] = ddb.Magic
	data[3] = uint8(len(b.Objects))
	data[4] = uint8(len(b.Locations))
	data[5] = uint8(len(b.UserMessages))
	data[6] = uint8(len(b.SystemMessages))
	data[7] = 0
	offsets := []int{
		tokensPos, prcLstPos, objLstPos, locLstPos, usrMsgPos, sysMsgPos,
		conLstPos, vocPos, objLocLst, objNamePos, objAttrPos, objExtrPos,
	}
	for i, o := range offsets {
		order.PutUint16(data[8+i*2:], uint16(o))
	}
	order.PutUint16(data[8+ddb.NumOffsets*2:], uint16(len(data)))
	return data, nil
}

// MustBuild is Build for fixtures that are known to be valid.
func (b *Builder) MustBuild() []byte {
	data, err := b.Build()
	if err != nil {
		panic(err)
	}
	return data
}

// MustLoad builds the image and loads it at base.
func (b *Builder) MustLoad(base uint16) *ddb.Database {
	db, err := ddb.New(b.MustBuild(), base)
	if err != nil {
		panic(err)
	}
	return db
}

package gamedb

import (
	"errors"
	"fmt"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// ErrNotFound is returned for an object id outside the table.
var ErrNotFound = errors.New("gamedb: no such object")

// RecordSize is the number of bytes one object takes in Bytes.
const RecordSize = ddb.ObjectRecordSize

// Table is the decoded object table. Its size is fixed by the database
// header; objects are mutated in place but never added or removed.
type Table struct {
	Objects []Object
}

// DecodeAll reads the four parallel object tables of db and records in
// flags how many objects start out carried.
func (t *Table) DecodeAll(db *ddb.Database, flags *Flags) error {
	n := db.Count(ddb.ListObjects)
	buf := db.Buffer()
	h := db.Header

	locs, err := buf.Slice(h.ObjLocLst, n)
	if err != nil {
		return fmt.Errorf("gamedb: location table: %w", err)
	}
	attrs, err := buf.Slice(h.ObjAttrPos, n)
	if err != nil {
		return fmt.Errorf("gamedb: attribute table: %w", err)
	}
	ext, err := buf.Slice(h.ObjExtrPos, 2*n)
	if err != nil {
		return fmt.Errorf("gamedb: extended attribute table: %w", err)
	}
	names, err := buf.Slice(h.ObjNamePos, 2*n)
	if err != nil {
		return fmt.Errorf("gamedb: name table: %w", err)
	}

	t.Objects = make([]Object, n)
	var carried uint8
	for i := range t.Objects {
		o := &t.Objects[i]
		o.Location = Location(locs[i])
		o.Attrs = Attributes(attrs[i])
		o.ExtAttr1 = ext[2*i]
		o.ExtAttr2 = ext[2*i+1]
		o.Noun = names[2*i]
		o.Adjective = names[2*i+1]
		if o.Location == Carried {
			carried++
		}
	}
	flags.SetCarriedCount(carried)
	return nil
}

// Len returns the number of objects.
func (t *Table) Len() int { return len(t.Objects) }

// Get returns a pointer to object id.
func (t *Table) Get(id uint8) (*Object, error) {
	if int(id) >= len(t.Objects) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return &t.Objects[id], nil
}

// FindByNounAdjective returns the lowest object id named by noun and
// adjective, or NullWord. NullWord is an ordinary value on both sides, so
// an object without adjective is found with adjective NullWord.
func (t *Table) FindByNounAdjective(noun, adjective uint8) uint8 {
	for i, o := range t.Objects {
		if o.Noun == noun && o.Adjective == adjective {
			return uint8(i)
		}
	}
	return NullWord
}

// Weight returns the weight of obj, or of every object when obj is
// NullWord. With carriedOrWorn set only objects on the player count.
// A container with a non-zero weight also carries the weight of what is
// inside it, through any depth of nesting. Every object is weighed on its
// own, so with obj NullWord the contents of a container count both inside
// it and by themselves. The result saturates at 255.
func (t *Table) Weight(obj uint8, carriedOrWorn bool) uint8 {
	seen := make([]bool, len(t.Objects))
	total := 0
	for i, o := range t.Objects {
		if obj != NullWord && int(obj) != i {
			continue
		}
		if carriedOrWorn && !o.Location.CarriedOrWorn() {
			continue
		}
		clear(seen)
		total += t.weigh(i, seen)
		if total >= 255 {
			return 255
		}
	}
	return uint8(total)
}

// weigh visits every object at most once per call so a container that
// ends up inside itself does not loop.
func (t *Table) weigh(i int, seen []bool) int {
	if seen[i] {
		return 0
	}
	seen[i] = true
	o := t.Objects[i]
	w := int(o.Attrs.Weight())
	if !o.Attrs.IsContainer() || w == 0 {
		return w
	}
	for j, c := range t.Objects {
		if int(c.Location) == i {
			w += t.weigh(j, seen)
		}
	}
	return w
}

// Reference makes obj the referenced object: its number, location,
// weight, container and wearable bits and extended attributes are copied
// into the referenced-object registers.
func (t *Table) Reference(obj uint8, f *Flags) error {
	o, err := t.Get(obj)
	if err != nil {
		return err
	}
	f.Set(FlagCONum, obj)
	f.Set(FlagCOLoc, uint8(o.Location))
	f.Set(FlagCOWei, o.Attrs.Weight())
	f.setBit7(FlagCOCon, o.Attrs.IsContainer())
	f.setBit7(FlagCOWR, o.Attrs.IsWearable())
	f.Set(FlagCOAtt, o.ExtAttr1)
	f.Set(FlagCOAtt2, o.ExtAttr2)
	return nil
}

// Bytes packs the table in RecordSize bytes per object.
func (t *Table) Bytes() []byte {
	out := make([]byte, 0, RecordSize*len(t.Objects))
	for _, o := range t.Objects {
		out = append(out, uint8(o.Location), uint8(o.Attrs), o.ExtAttr1, o.ExtAttr2, o.Noun, o.Adjective)
	}
	return out
}

// Restore unpacks a table written by Bytes. The number of objects must
// match.
func (t *Table) Restore(b []byte) error {
	if len(b) != RecordSize*len(t.Objects) {
		return fmt.Errorf("gamedb: restore: %d bytes for %d objects", len(b), len(t.Objects))
	}
	for i := range t.Objects {
		r := b[i*RecordSize:]
		t.Objects[i] = Object{
			Location:  Location(r[0]),
			Attrs:     Attributes(r[1]),
			ExtAttr1:  r[2],
			ExtAttr2:  r[3],
			Noun:      r[4],
			Adjective: r[5],
		}
	}
	return nil
}

// Carried counts the objects currently carried, not worn.
func (t *Table) Carried() uint8 {
	var n uint8
	for _, o := range t.Objects {
		if o.Location == Carried {
			n++
		}
	}
	return n
}

// Package gamedb holds the mutable game state of a DAAD session: the
// object table decoded from the DDB and the 256 flag registers.
package gamedb

import "fmt"

// NullWord marks an empty sentence slot, a missing adjective and an object
// that was not found.
const NullWord uint8 = 255

// Location is where an object is: a room number, the number of the
// container object holding it, or one of the reserved values below.
type Location uint8

const (
	NotCreated Location = 252
	Worn       Location = 253
	Carried    Location = 254
	Here       Location = 255
)

func (l Location) String() string {
	switch l {
	case NotCreated:
		return "not-created"
	case Worn:
		return "worn"
	case Carried:
		return "carried"
	case Here:
		return "here"
	default:
		return fmt.Sprintf("%d", uint8(l))
	}
}

// CarriedOrWorn reports whether the object is on the player.
func (l Location) CarriedOrWorn() bool {
	return l == Carried || l == Worn
}

// Attribute byte layout.
const (
	AttrContainer = 0x80
	AttrWearable  = 0x40
	AttrWeight    = 0x3F
)

// Attributes is the packed attribute byte of an object.
type Attributes uint8

func (a Attributes) IsContainer() bool { return a&AttrContainer != 0 }
func (a Attributes) IsWearable() bool  { return a&AttrWearable != 0 }
func (a Attributes) Weight() uint8     { return uint8(a & AttrWeight) }

// SetContainer returns a with the container bit set or cleared.
func (a Attributes) SetContainer(on bool) Attributes {
	if on {
		return a | AttrContainer
	}
	return a &^ AttrContainer
}

// SetWearable returns a with the wearable bit set or cleared.
func (a Attributes) SetWearable(on bool) Attributes {
	if on {
		return a | AttrWearable
	}
	return a &^ AttrWearable
}

// SetWeight returns a with its weight replaced; w is cut to six bits.
func (a Attributes) SetWeight(w uint8) Attributes {
	return a&^AttrWeight | Attributes(w&AttrWeight)
}

// Object is one entry of the object table.
type Object struct {
	Location  Location
	Attrs     Attributes
	ExtAttr1  uint8
	ExtAttr2  uint8
	Noun      uint8
	Adjective uint8
}

func (o Object) String() string {
	return fmt.Sprintf("noun=%d adj=%d loc=%v weight=%d container=%v wearable=%v",
		o.Noun, o.Adjective, o.Location, o.Attrs.Weight(), o.Attrs.IsContainer(), o.Attrs.IsWearable())
}

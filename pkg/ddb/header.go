// Package ddb loads compiled DAAD adventure databases (DDB files).
// It validates the header, relocates the twelve table offsets once and
// exposes the image through bounds-checked accessors.
package ddb

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Format constants from the DDB header.
const (
	Version    = 2
	Magic      = 0x5F
	HeaderSize = 34
	NumOffsets = 12
)

var (
	// ErrBadFormat is returned when the version or magic byte does not match.
	ErrBadFormat = errors.New("ddb: unsupported database format")
	// ErrRelocated is returned when relocation is attempted a second time.
	ErrRelocated = errors.New("ddb: header already relocated")
	// ErrOutOfRange is returned for addresses outside the loaded image.
	ErrOutOfRange = errors.New("ddb: address out of range")
	// ErrTruncated is returned when the image is shorter than a header.
	ErrTruncated = errors.New("ddb: truncated header")
)

// Machine is the target machine nibble of the header.
type Machine uint8

const (
	MachinePC       Machine = 0
	MachineSpectrum Machine = 1
	MachineC64      Machine = 2
	MachineCPC      Machine = 3
	MachineMSX      Machine = 4
	MachineST       Machine = 5
	MachineAmiga    Machine = 6
	MachinePCW      Machine = 7
	MachineMSX2     Machine = 15
)

func (m Machine) String() string {
	switch m {
	case MachinePC:
		return "PC"
	case MachineSpectrum:
		return "ZX Spectrum"
	case MachineC64:
		return "C64"
	case MachineCPC:
		return "Amstrad CPC"
	case MachineMSX:
		return "MSX"
	case MachineST:
		return "Atari ST"
	case MachineAmiga:
		return "Amiga"
	case MachinePCW:
		return "Amstrad PCW"
	case MachineMSX2:
		return "MSX2"
	default:
		return "unknown"
	}
}

// ByteOrder returns the word order the compiler used for this machine.
// 68000 targets are big-endian, everything else is little-endian.
func (m Machine) ByteOrder() binary.ByteOrder {
	switch m {
	case MachineST, MachineAmiga:
		return binary.BigEndian
	default:
		return binary.LittleEndian
	}
}

// Language is the target language nibble of the header.
type Language uint8

const (
	English Language = 0
	Spanish Language = 1
)

func (l Language) String() string {
	switch l {
	case English:
		return "English"
	case Spanish:
		return "Spanish"
	default:
		return "unknown"
	}
}

// Header is the fixed record at the start of every DDB.
// The twelve position fields hold base-relative offsets until Relocate
// turns them into absolute addresses.
type Header struct {
	Version   uint8
	Machine   Machine
	Language  Language
	Magic     uint8
	NumObjDsc uint8
	NumLocDsc uint8
	NumUsrMsg uint8
	NumSysMsg uint8
	NumPrc    uint8

	TokensPos  uint16
	PrcLstPos  uint16
	ObjLstPos  uint16
	LocLstPos  uint16
	UsrMsgPos  uint16
	SysMsgPos  uint16
	ConLstPos  uint16
	VocPos     uint16
	ObjLocLst  uint16
	ObjNamePos uint16
	ObjAttrPos uint16
	ObjExtrPos uint16

	FileLength uint16

	relocated bool
}

// ParseHeader decodes the header record from the start of data.
// It does not validate version or magic; see Header.Valid.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	h.Version = data[0]
	h.Language = Language(data[1] & 0x0F)
	h.Machine = Machine(data[1] >> 4)
	h.Magic = data[2]
	h.NumObjDsc = data[3]
	h.NumLocDsc = data[4]
	h.NumUsrMsg = data[5]
	h.NumSysMsg = data[6]
	h.NumPrc = data[7]

	order := h.Machine.ByteOrder()
	for i, p := range h.Offsets() {
		*p = order.Uint16(data[8+i*2:])
	}
	h.FileLength = order.Uint16(data[8+NumOffsets*2:])
	return h, nil
}

// Valid reports whether the header carries the supported version and magic.
func (h *Header) Valid() bool {
	return h.Version == Version && h.Magic == Magic
}

// Relocated reports whether Relocate has been applied.
func (h *Header) Relocated() bool {
	return h.relocated
}

// Offsets returns pointers to the twelve position fields in header order.
func (h *Header) Offsets() [NumOffsets]*uint16 {
	return [NumOffsets]*uint16{
		&h.TokensPos,
		&h.PrcLstPos,
		&h.ObjLstPos,
		&h.LocLstPos,
		&h.UsrMsgPos,
		&h.SysMsgPos,
		&h.ConLstPos,
		&h.VocPos,
		&h.ObjLocLst,
		&h.ObjNamePos,
		&h.ObjAttrPos,
		&h.ObjExtrPos,
	}
}

// Relocate adds base to every position field, in header order, with 16-bit
// wrap-around. It may only be applied once.
func (h *Header) Relocate(base uint16) error {
	if h.relocated {
		return ErrRelocated
	}
	for _, p := range h.Offsets() {
		*p += base
	}
	h.relocated = true
	return nil
}

// Target packs machine and language back into the header's target byte.
func (h *Header) Target() uint8 {
	return uint8(h.Machine)<<4 | uint8(h.Language)&0x0F
}

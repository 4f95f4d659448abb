package ddb

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// MaxInputLen is the longest line the prompt accepts.
const MaxInputLen = 128

// List selects one of the message tables addressed by the header.
type List int

const (
	ListObjects List = iota
	ListLocations
	ListUserMessages
	ListSystemMessages
	ListProcesses
)

func (l List) String() string {
	switch l {
	case ListObjects:
		return "objects"
	case ListLocations:
		return "locations"
	case ListUserMessages:
		return "user messages"
	case ListSystemMessages:
		return "system messages"
	case ListProcesses:
		return "processes"
	default:
		return "unknown"
	}
}

// Database is a validated, relocated DDB image.
type Database struct {
	Header Header
	buf    *Buffer

	vocabOnce sync.Once
	vocab     []Word
}

// New validates data and relocates its header to base. On a version or
// magic mismatch it returns ErrBadFormat and no database.
func New(data []byte, base uint16) (*Database, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if !h.Valid() {
		return nil, fmt.Errorf("%w: version %d, magic 0x%02x", ErrBadFormat, h.Version, h.Magic)
	}
	if err := h.Relocate(base); err != nil {
		return nil, err
	}
	db := &Database{
		Header: h,
		buf:    NewBuffer(data, base, h.Machine.ByteOrder()),
	}
	return db, nil
}

// ObjectRecordSize is the number of bytes one object occupies in a save.
const ObjectRecordSize = 6

// RamSaveSize is the size of a RAMSAVE area for this database:
// 256 flag bytes followed by the object table.
func (db *Database) RamSaveSize() int {
	return 256 + ObjectRecordSize*int(db.Header.NumObjDsc)
}

// Parse reads a whole DDB image from r and loads it at base address 0.
func Parse(r io.Reader) (*Database, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ddb: read: %w", err)
	}
	return New(data, 0)
}

// Load reads a DDB file from disk.
func Load(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ddb: open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Buffer returns the underlying image.
func (db *Database) Buffer() *Buffer {
	return db.buf
}

// TableAddr returns the absolute address of a message table.
func (db *Database) TableAddr(l List) uint16 {
	switch l {
	case ListObjects:
		return db.Header.ObjLstPos
	case ListLocations:
		return db.Header.LocLstPos
	case ListUserMessages:
		return db.Header.UsrMsgPos
	case ListSystemMessages:
		return db.Header.SysMsgPos
	case ListProcesses:
		return db.Header.PrcLstPos
	}
	return 0
}

// Count returns the number of entries the header declares for a table.
func (db *Database) Count(l List) int {
	switch l {
	case ListObjects:
		return int(db.Header.NumObjDsc)
	case ListLocations:
		return int(db.Header.NumLocDsc)
	case ListUserMessages:
		return int(db.Header.NumUsrMsg)
	case ListSystemMessages:
		return int(db.Header.NumSysMsg)
	case ListProcesses:
		return int(db.Header.NumPrc)
	}
	return 0
}

// MessageAddr returns the absolute address of entry n of a table.
// Table entries are offsets from the start of the image.
func (db *Database) MessageAddr(l List, n uint8) (uint16, error) {
	off, err := db.buf.WordAt(db.TableAddr(l) + uint16(n)*2)
	if err != nil {
		return 0, fmt.Errorf("ddb: %s entry %d: %w", l, n, err)
	}
	return db.buf.Addr(off), nil
}

// TokensAddr returns the address of the first token. The byte at
// TokensPos itself is not part of the table.
func (db *Database) TokensAddr() uint16 {
	return db.Header.TokensPos + 1
}

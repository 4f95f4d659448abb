package ddb

import (
	"encoding/binary"
	"fmt"
)

// Buffer owns a loaded DDB image. Addresses are absolute (load address
// plus offset), as stored in a relocated header; every access is checked
// against the image length.
type Buffer struct {
	data  []byte
	base  uint16
	order binary.ByteOrder
}

// NewBuffer wraps data loaded at base, reading words in the given order.
func NewBuffer(data []byte, base uint16, order binary.ByteOrder) *Buffer {
	return &Buffer{data: data, base: base, order: order}
}

// Len returns the image size in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Base returns the load address.
func (b *Buffer) Base() uint16 { return b.base }

// Order returns the word byte order of the image.
func (b *Buffer) Order() binary.ByteOrder { return b.order }

// Index converts an absolute address into an index into the image.
func (b *Buffer) Index(addr uint16) (int, error) {
	i := int(addr - b.base)
	if i < 0 || i >= len(b.data) {
		return 0, fmt.Errorf("%w: 0x%04x", ErrOutOfRange, addr)
	}
	return i, nil
}

// Addr converts an image offset into an absolute address.
func (b *Buffer) Addr(offset uint16) uint16 {
	return offset + b.base
}

// ByteAt returns the byte at an absolute address.
func (b *Buffer) ByteAt(addr uint16) (byte, error) {
	i, err := b.Index(addr)
	if err != nil {
		return 0, err
	}
	return b.data[i], nil
}

// WordAt returns the 16-bit word at an absolute address.
func (b *Buffer) WordAt(addr uint16) (uint16, error) {
	i, err := b.Index(addr)
	if err != nil {
		return 0, err
	}
	if i+2 > len(b.data) {
		return 0, fmt.Errorf("%w: word at 0x%04x", ErrOutOfRange, addr)
	}
	return b.order.Uint16(b.data[i:]), nil
}

// Slice returns n bytes starting at an absolute address. The slice aliases
// the image.
func (b *Buffer) Slice(addr uint16, n int) ([]byte, error) {
	i, err := b.Index(addr)
	if err != nil {
		return nil, err
	}
	if n < 0 || i+n > len(b.data) {
		return nil, fmt.Errorf("%w: %d bytes at 0x%04x", ErrOutOfRange, n, addr)
	}
	return b.data[i : i+n], nil
}

// Tail returns everything from an absolute address to the end of the image.
func (b *Buffer) Tail(addr uint16) ([]byte, error) {
	i, err := b.Index(addr)
	if err != nil {
		return nil, err
	}
	return b.data[i:], nil
}

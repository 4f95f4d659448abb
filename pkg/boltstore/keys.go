package boltstore

import (
	"encoding/binary"
	"strings"
)

// Bucket name constants for bbolt storage. Saves live in one nested
// bucket per game.
var (
	bucketMeta  = []byte("meta")
	bucketSaves = []byte("saves")
)

// Meta key constants.
var (
	keySchema = []byte("schema")
	keyWrites = []byte("writes")
)

// schemaVersion is bumped when the encoding of saved snapshots changes.
const schemaVersion = 1

// slotKey normalises a slot name: case does not matter to players.
func slotKey(slot string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(slot)))
}

// intToKey converts an int to an 8-byte big-endian key.
func intToKey(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

// keyToInt converts an 8-byte big-endian key back to an int.
func keyToInt(b []byte) int {
	if len(b) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(b))
}

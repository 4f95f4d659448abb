package boltstore

import (
	"bytes"
	"encoding/gob"

	"github.com/crystal-mush/godaad/pkg/gamedb"
)

func init() {
	gob.Register(gamedb.Snapshot{})
}

// encodeSnapshot serializes a Snapshot to bytes using gob.
func encodeSnapshot(snap *gamedb.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeSnapshot deserializes bytes back into a Snapshot.
func decodeSnapshot(data []byte) (*gamedb.Snapshot, error) {
	var snap gamedb.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

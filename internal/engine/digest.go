package engine

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"Atelier/internal/storage"
)

// StateDigest is a blake3 checksum over every key and value in the store.
type StateDigest [32]byte

// String returns the digest as hex.
func (d StateDigest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText encodes the digest as hex.
func (d StateDigest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// computeDigest hashes the whole store in key order.
// Format per entry: key length (4 bytes) + key + value length (4 bytes) + value
func computeDigest(db *storage.Storage) (StateDigest, error) {
	hasher := blake3.New()

	var buf [4]byte
	err := db.Iterate(func(key, value []byte) error {
		binary.BigEndian.PutUint32(buf[:], uint32(len(key)))
		hasher.Write(buf[:])
		hasher.Write(key)

		binary.BigEndian.PutUint32(buf[:], uint32(len(value)))
		hasher.Write(buf[:])
		hasher.Write(value)

		return nil
	})
	if err != nil {
		return StateDigest{}, fmt.Errorf("hash state:\n%w", err)
	}

	var d StateDigest
	hasher.Sum(d[:0])

	return d, nil
}

package registry

import (
	"encoding/binary"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/zeebo/blake3"

	"Atelier/internal/ledger"
	"Atelier/internal/storage"
	"Atelier/internal/types"
)

// Key prefixes owned by the registry.
var (
	prefixItem        = []byte("i:") // i:<id> -> Item
	prefixFingerprint = []byte("f:") // f:<blake3(fingerprint)> -> id
	prefixOwner       = []byte("o:") // o:<owner><id> -> 1
	keyItemCount      = []byte("m:items")
)

// Hash is a 32-byte fingerprint digest.
type Hash [32]byte

// Digest returns the fixed-size key a fingerprint is stored under.
func Digest(fingerprint []byte) Hash {
	return blake3.Sum256(fingerprint)
}

// Item is a minted collectible.
type Item struct {
	ID          uint64         `json:"id"`
	Creator     ledger.Address `json:"creator"`
	Owner       ledger.Address `json:"owner"`
	Royalty     uint32         `json:"royalty"`
	Fingerprint []byte         `json:"fingerprint"`
}

// encodeItem serializes an item as a FlatBuffers Item table.
func encodeItem(it *Item) []byte {
	builder := flatbuffers.NewBuilder(128 + len(it.Fingerprint))

	creatorVec := builder.CreateByteVector(it.Creator[:])
	ownerVec := builder.CreateByteVector(it.Owner[:])
	fpVec := builder.CreateByteVector(it.Fingerprint)

	types.ItemStart(builder)
	types.ItemAddId(builder, it.ID)
	types.ItemAddCreator(builder, creatorVec)
	types.ItemAddOwner(builder, ownerVec)
	types.ItemAddRoyalty(builder, it.Royalty)
	types.ItemAddFingerprint(builder, fpVec)
	offset := types.ItemEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// decodeItem parses a FlatBuffers Item table.
func decodeItem(data []byte) (*Item, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("item data too short: %d bytes", len(data))
	}

	fb := types.GetRootAsItem(data, 0)

	creator, err := ledger.AddressFromBytes(fb.CreatorBytes())
	if err != nil {
		return nil, fmt.Errorf("creator:\n%w", err)
	}

	owner, err := ledger.AddressFromBytes(fb.OwnerBytes())
	if err != nil {
		return nil, fmt.Errorf("owner:\n%w", err)
	}

	raw := fb.FingerprintBytes()
	fp := make([]byte, len(raw))
	copy(fp, raw)

	return &Item{
		ID:          fb.Id(),
		Creator:     creator,
		Owner:       owner,
		Royalty:     fb.Royalty(),
		Fingerprint: fp,
	}, nil
}

// readItem loads an item, returning nil if it does not exist.
func readItem(rd storage.Reader, id uint64) (*Item, error) {
	data, err := rd.Get(makeItemKey(id))
	if err != nil {
		return nil, fmt.Errorf("read item %d:\n%w", id, err)
	}
	if data == nil {
		return nil, nil
	}

	it, err := decodeItem(data)
	if err != nil {
		return nil, fmt.Errorf("decode item %d:\n%w", id, err)
	}

	return it, nil
}

// writeItem stages an item record.
func writeItem(tx *ledger.Tx, it *Item) error {
	return tx.Set(makeItemKey(it.ID), encodeItem(it))
}

// readCount returns the number of minted items.
func readCount(rd storage.Reader) (uint64, error) {
	data, err := rd.Get(keyItemCount)
	if err != nil {
		return 0, fmt.Errorf("read item count:\n%w", err)
	}
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt item count: %d bytes", len(data))
	}

	return binary.BigEndian.Uint64(data), nil
}

// lookupFingerprint returns the item id bound to a digest, or 0 if unused.
func lookupFingerprint(rd storage.Reader, digest Hash) (uint64, error) {
	data, err := rd.Get(makeFingerprintKey(digest))
	if err != nil {
		return 0, fmt.Errorf("read fingerprint:\n%w", err)
	}
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt fingerprint entry: %d bytes", len(data))
	}

	return binary.BigEndian.Uint64(data), nil
}

// makeItemKey builds "i:" + big-endian id so items iterate in id order.
func makeItemKey(id uint64) []byte {
	key := make([]byte, len(prefixItem)+8)
	copy(key, prefixItem)
	binary.BigEndian.PutUint64(key[len(prefixItem):], id)

	return key
}

// makeFingerprintKey builds "f:" + digest.
func makeFingerprintKey(digest Hash) []byte {
	key := make([]byte, len(prefixFingerprint)+len(digest))
	copy(key, prefixFingerprint)
	copy(key[len(prefixFingerprint):], digest[:])

	return key
}

// makeOwnerPrefix builds "o:" + owner.
func makeOwnerPrefix(owner ledger.Address) []byte {
	key := make([]byte, len(prefixOwner)+ledger.AddressSize)
	copy(key, prefixOwner)
	copy(key[len(prefixOwner):], owner[:])

	return key
}

// makeOwnerKey builds "o:" + owner + big-endian id.
func makeOwnerKey(owner ledger.Address, id uint64) []byte {
	prefix := makeOwnerPrefix(owner)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)

	return key
}

// encodeUint64 returns the big-endian encoding of v.
func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)

	return buf
}

// decodeUint64 reads a big-endian uint64.
func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

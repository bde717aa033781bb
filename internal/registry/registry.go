// Package registry owns the collectible catalog: id assignment, fingerprint
// uniqueness, royalty bounds and ownership records.
//
// Every mutating method runs inside a ledger.Tx and validates all of its
// preconditions before staging a single write, so a rejected call leaves the
// transaction untouched.
package registry

import (
	"fmt"

	"Atelier/internal/ledger"
	"Atelier/internal/storage"
)

const (
	// MaxRoyalty is the highest royalty percentage an item may carry.
	MaxRoyalty = 40

	// DefaultName and DefaultSymbol identify the collection.
	DefaultName   = "NFTCollectible"
	DefaultSymbol = "NFTC"
)

// Registry is the collectible catalog. It holds no state of its own; all
// records, including the mint counter, live under registry-owned keys.
type Registry struct {
	name   string
	symbol string
}

// New creates a registry for the named collection.
func New(name, symbol string) *Registry {
	if name == "" {
		name = DefaultName
	}
	if symbol == "" {
		symbol = DefaultSymbol
	}

	return &Registry{name: name, symbol: symbol}
}

// Name returns the collection name.
func (r *Registry) Name() string {
	return r.name
}

// Symbol returns the collection symbol.
func (r *Registry) Symbol() string {
	return r.symbol
}

// CreateCollectible mints a new item owned by its creator and returns its id.
// It emits Transfer(none -> creator) followed by ItemMinted.
func (r *Registry) CreateCollectible(tx *ledger.Tx, fingerprint []byte, royalty uint32, creator ledger.Address) (uint64, error) {
	if creator.IsZero() {
		return 0, ledger.Reject(ledger.KindInvalidIdentity, "creator must not be the zero identity")
	}

	if royalty > MaxRoyalty {
		return 0, ledger.Reject(ledger.KindInvalidRoyalty, "Royalties must be between 0%% and %d%%.", MaxRoyalty)
	}

	digest := Digest(fingerprint)

	existing, err := lookupFingerprint(tx, digest)
	if err != nil {
		return 0, err
	}
	if existing != 0 {
		return 0, ledger.Reject(ledger.KindDuplicateFingerprint, "This metadata has already been used to mint an NFT.")
	}

	count, err := readCount(tx)
	if err != nil {
		return 0, err
	}

	id := count + 1
	if id == 0 {
		return 0, fmt.Errorf("item id space exhausted")
	}

	fp := make([]byte, len(fingerprint))
	copy(fp, fingerprint)

	it := &Item{
		ID:          id,
		Creator:     creator,
		Owner:       creator,
		Royalty:     royalty,
		Fingerprint: fp,
	}

	if err := writeItem(tx, it); err != nil {
		return 0, fmt.Errorf("write item:\n%w", err)
	}

	if err := tx.Set(makeFingerprintKey(digest), encodeUint64(id)); err != nil {
		return 0, fmt.Errorf("write fingerprint:\n%w", err)
	}

	if err := tx.Set(makeOwnerKey(creator, id), []byte{1}); err != nil {
		return 0, fmt.Errorf("write owner index:\n%w", err)
	}

	if err := tx.Set(keyItemCount, encodeUint64(id)); err != nil {
		return 0, fmt.Errorf("write item count:\n%w", err)
	}

	tx.Emit(ledger.TransferEvent(id, ledger.Address{}, creator))
	tx.Emit(ledger.MintedEvent(id, creator, fp, royalty))

	return id, nil
}

// TransferOwnership moves an item to newOwner. It is reserved for marketplace
// settlement and performs no authorization of its own.
func (r *Registry) TransferOwnership(tx *ledger.Tx, id uint64, newOwner ledger.Address) error {
	if newOwner.IsZero() {
		return ledger.Reject(ledger.KindInvalidIdentity, "new owner must not be the zero identity")
	}

	it, err := readItem(tx, id)
	if err != nil {
		return err
	}
	if it == nil {
		return ledger.Reject(ledger.KindNotFound, "item %d does not exist", id)
	}

	previous := it.Owner
	it.Owner = newOwner

	if err := tx.Delete(makeOwnerKey(previous, id)); err != nil {
		return fmt.Errorf("clear owner index:\n%w", err)
	}

	if err := tx.Set(makeOwnerKey(newOwner, id), []byte{1}); err != nil {
		return fmt.Errorf("write owner index:\n%w", err)
	}

	if err := writeItem(tx, it); err != nil {
		return fmt.Errorf("write item:\n%w", err)
	}

	tx.Emit(ledger.TransferEvent(id, previous, newOwner))

	return nil
}

// HasBeenMinted reports whether fingerprint was ever used to mint an item.
func (r *Registry) HasBeenMinted(rd storage.Reader, fingerprint []byte) (bool, error) {
	id, err := lookupFingerprint(rd, Digest(fingerprint))
	if err != nil {
		return false, err
	}

	return id != 0, nil
}

// GetItem returns the owner, creator and royalty of an item.
func (r *Registry) GetItem(rd storage.Reader, id uint64) (owner, creator ledger.Address, royalty uint32, err error) {
	it, err := r.Item(rd, id)
	if err != nil {
		return ledger.Address{}, ledger.Address{}, 0, err
	}

	return it.Owner, it.Creator, it.Royalty, nil
}

// Item returns the full record of an item.
func (r *Registry) Item(rd storage.Reader, id uint64) (*Item, error) {
	it, err := readItem(rd, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ledger.Reject(ledger.KindNotFound, "item %d does not exist", id)
	}

	return it, nil
}

// ItemByFingerprint returns the id of the item minted from fingerprint.
func (r *Registry) ItemByFingerprint(rd storage.Reader, fingerprint []byte) (uint64, error) {
	id, err := lookupFingerprint(rd, Digest(fingerprint))
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, ledger.Reject(ledger.KindNotFound, "fingerprint has not been minted")
	}

	return id, nil
}

// ItemsLength returns the number of minted items, which is also the highest id.
func (r *Registry) ItemsLength(rd storage.Reader) (uint64, error) {
	return readCount(rd)
}

// ItemsOf returns the ids owned by owner in ascending order.
func (r *Registry) ItemsOf(rd storage.Reader, owner ledger.Address) ([]uint64, error) {
	prefix := makeOwnerPrefix(owner)

	var ids []uint64
	err := rd.IteratePrefix(prefix, func(key, _ []byte) error {
		if len(key) != len(prefix)+8 {
			return fmt.Errorf("corrupt owner index key: %d bytes", len(key))
		}

		ids = append(ids, decodeUint64(key[len(prefix):]))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan owner index:\n%w", err)
	}

	return ids, nil
}

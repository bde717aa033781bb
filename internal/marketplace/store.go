package marketplace

import (
	"encoding/binary"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"Atelier/internal/ledger"
	"Atelier/internal/storage"
	"Atelier/internal/types"
)

// Key prefixes owned by the marketplace.
var (
	prefixListing = []byte("l:") // l:<id> -> Listing
	prefixCredit  = []byte("b:") // b:<identity> -> uint64 total
)

// Listing is an open offer to sell an item at a fixed price.
type Listing struct {
	ItemID uint64         `json:"itemId"`
	Seller ledger.Address `json:"seller"`
	Price  uint64         `json:"price"`
}

// encodeListing serializes a listing as a FlatBuffers Listing table.
func encodeListing(l *Listing) []byte {
	builder := flatbuffers.NewBuilder(96)

	sellerVec := builder.CreateByteVector(l.Seller[:])

	types.ListingStart(builder)
	types.ListingAddItemId(builder, l.ItemID)
	types.ListingAddSeller(builder, sellerVec)
	types.ListingAddPrice(builder, l.Price)
	offset := types.ListingEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// decodeListing parses a FlatBuffers Listing table.
func decodeListing(data []byte) (*Listing, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("listing data too short: %d bytes", len(data))
	}

	fb := types.GetRootAsListing(data, 0)

	seller, err := ledger.AddressFromBytes(fb.SellerBytes())
	if err != nil {
		return nil, fmt.Errorf("seller:\n%w", err)
	}

	return &Listing{
		ItemID: fb.ItemId(),
		Seller: seller,
		Price:  fb.Price(),
	}, nil
}

// readListing loads the active listing for an item, or nil if there is none.
func readListing(rd storage.Reader, id uint64) (*Listing, error) {
	data, err := rd.Get(makeListingKey(id))
	if err != nil {
		return nil, fmt.Errorf("read listing %d:\n%w", id, err)
	}
	if data == nil {
		return nil, nil
	}

	l, err := decodeListing(data)
	if err != nil {
		return nil, fmt.Errorf("decode listing %d:\n%w", id, err)
	}

	return l, nil
}

// readCredits returns the running credit total of an identity.
func readCredits(rd storage.Reader, who ledger.Address) (uint64, error) {
	data, err := rd.Get(makeCreditKey(who))
	if err != nil {
		return 0, fmt.Errorf("read credits %s:\n%w", who.Short(), err)
	}
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt credit entry for %s: %d bytes", who.Short(), len(data))
	}

	return binary.BigEndian.Uint64(data), nil
}

// credit adds amount to an identity's running total.
func credit(tx *ledger.Tx, who ledger.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}

	balance, err := readCredits(tx, who)
	if err != nil {
		return err
	}

	// Overflow check: balance + amount must not wrap
	total := balance + amount
	if total < balance {
		return fmt.Errorf("credit overflow: balance=%d + amount=%d wraps", balance, amount)
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, total)

	return tx.Set(makeCreditKey(who), buf)
}

// makeListingKey builds "l:" + big-endian id.
func makeListingKey(id uint64) []byte {
	key := make([]byte, len(prefixListing)+8)
	copy(key, prefixListing)
	binary.BigEndian.PutUint64(key[len(prefixListing):], id)

	return key
}

// makeCreditKey builds "b:" + identity.
func makeCreditKey(who ledger.Address) []byte {
	key := make([]byte, len(prefixCredit)+ledger.AddressSize)
	copy(key, prefixCredit)
	copy(key[len(prefixCredit):], who[:])

	return key
}

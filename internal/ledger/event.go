package ledger

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"Atelier/internal/types"
)

// EventKind identifies the type of a ledger event.
type EventKind uint8

const (
	EventTransfer EventKind = iota + 1
	EventItemMinted
	EventListingCreated
	EventListingRemoved
	EventSaleSettled
)

var eventKindNames = map[EventKind]string{
	EventTransfer:       "Transfer",
	EventItemMinted:     "ItemMinted",
	EventListingCreated: "ListingCreated",
	EventListingRemoved: "ListingRemoved",
	EventSaleSettled:    "SaleSettled",
}

// String returns the event name.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is one entry of the append-only event log. Only the fields relevant
// to Kind are set:
//
//	Transfer:       ItemID, From (zero on mint), To
//	ItemMinted:     ItemID, Creator, Fingerprint, Royalty
//	ListingCreated: ItemID, Seller, Price
//	ListingRemoved: ItemID, Seller
//	SaleSettled:    ItemID, Seller, Buyer, Price, RoyaltyAmount
type Event struct {
	Seq           uint64    `json:"seq"` // Seq is assigned when the event is committed to the log
	Kind          EventKind `json:"kind"`
	ItemID        uint64    `json:"itemId"`
	From          Address   `json:"from,omitzero"`
	To            Address   `json:"to,omitzero"`
	Creator       Address   `json:"creator,omitzero"`
	Fingerprint   []byte    `json:"fingerprint,omitempty"`
	Royalty       uint32    `json:"royalty,omitempty"`
	Seller        Address   `json:"seller,omitzero"`
	Buyer         Address   `json:"buyer,omitzero"`
	Price         uint64    `json:"price,omitempty"`
	RoyaltyAmount uint64    `json:"royaltyAmount,omitempty"`
}

// TransferEvent records an ownership change. from is zero on mint.
func TransferEvent(itemID uint64, from, to Address) Event {
	return Event{Kind: EventTransfer, ItemID: itemID, From: from, To: to}
}

// MintedEvent records a new collectible.
func MintedEvent(itemID uint64, creator Address, fingerprint []byte, royalty uint32) Event {
	fp := make([]byte, len(fingerprint))
	copy(fp, fingerprint)

	return Event{Kind: EventItemMinted, ItemID: itemID, Creator: creator, Fingerprint: fp, Royalty: royalty}
}

// ListingCreatedEvent records a new sale offer.
func ListingCreatedEvent(itemID uint64, seller Address, price uint64) Event {
	return Event{Kind: EventListingCreated, ItemID: itemID, Seller: seller, Price: price}
}

// ListingRemovedEvent records an explicit delisting.
func ListingRemovedEvent(itemID uint64, seller Address) Event {
	return Event{Kind: EventListingRemoved, ItemID: itemID, Seller: seller}
}

// SaleSettledEvent records a completed sale.
func SaleSettledEvent(itemID uint64, seller, buyer Address, price, royaltyAmount uint64) Event {
	return Event{
		Kind:          EventSaleSettled,
		ItemID:        itemID,
		Seller:        seller,
		Buyer:         buyer,
		Price:         price,
		RoyaltyAmount: royaltyAmount,
	}
}

// EncodeEvent serializes an event as a FlatBuffers Event table.
func EncodeEvent(ev Event) []byte {
	builder := flatbuffers.NewBuilder(256)

	fromVec := builder.CreateByteVector(ev.From[:])
	toVec := builder.CreateByteVector(ev.To[:])
	creatorVec := builder.CreateByteVector(ev.Creator[:])
	fpVec := builder.CreateByteVector(ev.Fingerprint)
	sellerVec := builder.CreateByteVector(ev.Seller[:])
	buyerVec := builder.CreateByteVector(ev.Buyer[:])

	types.EventStart(builder)
	types.EventAddSeq(builder, ev.Seq)
	types.EventAddKind(builder, byte(ev.Kind))
	types.EventAddItemId(builder, ev.ItemID)
	types.EventAddFrom(builder, fromVec)
	types.EventAddTo(builder, toVec)
	types.EventAddCreator(builder, creatorVec)
	types.EventAddFingerprint(builder, fpVec)
	types.EventAddRoyalty(builder, ev.Royalty)
	types.EventAddSeller(builder, sellerVec)
	types.EventAddBuyer(builder, buyerVec)
	types.EventAddPrice(builder, ev.Price)
	types.EventAddRoyaltyAmount(builder, ev.RoyaltyAmount)
	offset := types.EventEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// DecodeEvent parses a FlatBuffers Event table.
func DecodeEvent(data []byte) (Event, error) {
	if len(data) < 8 {
		return Event{}, fmt.Errorf("event data too short: %d bytes", len(data))
	}

	fb := types.GetRootAsEvent(data, 0)

	ev := Event{
		Seq:           fb.Seq(),
		Kind:          EventKind(fb.Kind()),
		ItemID:        fb.ItemId(),
		Royalty:       fb.Royalty(),
		Price:         fb.Price(),
		RoyaltyAmount: fb.RoyaltyAmount(),
	}

	if _, ok := eventKindNames[ev.Kind]; !ok {
		return Event{}, fmt.Errorf("unknown event kind %d", fb.Kind())
	}

	if fp := fb.FingerprintBytes(); len(fp) > 0 {
		ev.Fingerprint = make([]byte, len(fp))
		copy(ev.Fingerprint, fp)
	}

	addrs := []struct {
		dst *Address
		src []byte
	}{
		{&ev.From, fb.FromBytes()},
		{&ev.To, fb.ToBytes()},
		{&ev.Creator, fb.CreatorBytes()},
		{&ev.Seller, fb.SellerBytes()},
		{&ev.Buyer, fb.BuyerBytes()},
	}

	for _, a := range addrs {
		addr, err := AddressFromBytes(a.src)
		if err != nil {
			return Event{}, fmt.Errorf("decode event %d:\n%w", ev.Seq, err)
		}
		*a.dst = addr
	}

	return ev, nil
}

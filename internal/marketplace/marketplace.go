// Package marketplace owns sale listings and settlement. A sale credits the
// royalty share to the item's creator, the remainder to the seller and any
// overpayment back to the buyer, then hands the item to the buyer through
// the registry, all inside the caller's transaction.
package marketplace

import (
	"fmt"

	"Atelier/internal/ledger"
	"Atelier/internal/registry"
	"Atelier/internal/storage"
)

// PayoutKind names the reason for a settlement payout.
type PayoutKind string

const (
	PayoutRoyalty  PayoutKind = "royalty"
	PayoutProceeds PayoutKind = "proceeds"
	PayoutRefund   PayoutKind = "refund"
)

// Payout is one credit made by a settlement.
type Payout struct {
	Kind   PayoutKind     `json:"kind"`
	To     ledger.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

// Settlement describes a completed sale. Payouts are listed in the order they
// were credited; zero amounts are omitted.
type Settlement struct {
	ItemID        uint64         `json:"itemId"`
	Seller        ledger.Address `json:"seller"`
	Buyer         ledger.Address `json:"buyer"`
	Creator       ledger.Address `json:"creator"`
	Price         uint64         `json:"price"`
	RoyaltyAmount uint64         `json:"royaltyAmount"`
	SellerAmount  uint64         `json:"sellerAmount"`
	Refund        uint64         `json:"refund"`
	Payouts       []Payout       `json:"payouts"`
}

// Marketplace manages listings on top of a registry.
type Marketplace struct {
	registry *registry.Registry
}

// New creates a marketplace settling against reg.
func New(reg *registry.Registry) *Marketplace {
	return &Marketplace{registry: reg}
}

// RoyaltyAmount returns floor(price * percent / 100) without intermediate
// overflow for any price.
func RoyaltyAmount(price uint64, percent uint32) uint64 {
	q, m := price/100, price%100
	p := uint64(percent)

	return q*p + (m*p)/100
}

// List opens a sale offer for an item owned by seller.
func (mk *Marketplace) List(tx *ledger.Tx, id uint64, seller ledger.Address, price uint64) error {
	it, err := mk.registry.Item(tx, id)
	if err != nil {
		return err
	}

	if it.Owner != seller {
		return ledger.Reject(ledger.KindNotOwner, "caller does not own item %d", id)
	}

	existing, err := readListing(tx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return ledger.Reject(ledger.KindAlreadyListed, "item %d is already listed", id)
	}

	l := &Listing{ItemID: id, Seller: seller, Price: price}
	if err := tx.Set(makeListingKey(id), encodeListing(l)); err != nil {
		return fmt.Errorf("write listing:\n%w", err)
	}

	tx.Emit(ledger.ListingCreatedEvent(id, seller, price))

	return nil
}

// Delist withdraws an active offer. Only the listing's seller may do so.
func (mk *Marketplace) Delist(tx *ledger.Tx, id uint64, caller ledger.Address) error {
	l, err := readListing(tx, id)
	if err != nil {
		return err
	}
	if l == nil {
		return ledger.Reject(ledger.KindNotListed, "item %d is not listed", id)
	}

	if l.Seller != caller {
		return ledger.Reject(ledger.KindNotOwner, "caller is not the seller of item %d", id)
	}

	if err := tx.Delete(makeListingKey(id)); err != nil {
		return fmt.Errorf("delete listing:\n%w", err)
	}

	tx.Emit(ledger.ListingRemovedEvent(id, l.Seller))

	return nil
}

// Buy settles a sale of a listed item to buyer for payment.
// It emits Transfer(seller -> buyer) followed by SaleSettled.
func (mk *Marketplace) Buy(tx *ledger.Tx, id uint64, buyer ledger.Address, payment uint64) (*Settlement, error) {
	if buyer.IsZero() {
		return nil, ledger.Reject(ledger.KindInvalidIdentity, "buyer must not be the zero identity")
	}

	l, err := readListing(tx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ledger.Reject(ledger.KindNotListed, "item %d is not listed", id)
	}

	if payment < l.Price {
		return nil, ledger.Reject(ledger.KindInsufficientPayment,
			"payment %d is below the asking price %d", payment, l.Price)
	}

	it, err := mk.registry.Item(tx, id)
	if err != nil {
		return nil, err
	}

	// A listing is only valid while its seller still owns the item.
	if it.Owner != l.Seller {
		return nil, ledger.Reject(ledger.KindNotOwner, "listing for item %d is stale", id)
	}

	royalty := RoyaltyAmount(l.Price, it.Royalty)

	s := &Settlement{
		ItemID:        id,
		Seller:        l.Seller,
		Buyer:         buyer,
		Creator:       it.Creator,
		Price:         l.Price,
		RoyaltyAmount: royalty,
		SellerAmount:  l.Price - royalty,
		Refund:        payment - l.Price,
	}

	payouts := []Payout{
		{Kind: PayoutRoyalty, To: it.Creator, Amount: s.RoyaltyAmount},
		{Kind: PayoutProceeds, To: l.Seller, Amount: s.SellerAmount},
		{Kind: PayoutRefund, To: buyer, Amount: s.Refund},
	}

	for _, p := range payouts {
		if p.Amount == 0 {
			continue
		}

		if err := credit(tx, p.To, p.Amount); err != nil {
			return nil, fmt.Errorf("credit %s:\n%w", p.Kind, err)
		}

		s.Payouts = append(s.Payouts, p)
	}

	if err := mk.registry.TransferOwnership(tx, id, buyer); err != nil {
		return nil, fmt.Errorf("transfer item %d:\n%w", id, err)
	}

	if err := tx.Delete(makeListingKey(id)); err != nil {
		return nil, fmt.Errorf("delete listing:\n%w", err)
	}

	tx.Emit(ledger.SaleSettledEvent(id, l.Seller, buyer, l.Price, royalty))

	return s, nil
}

// Listing returns the active listing for an item.
func (mk *Marketplace) Listing(rd storage.Reader, id uint64) (*Listing, error) {
	l, err := readListing(rd, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ledger.Reject(ledger.KindNotListed, "item %d is not listed", id)
	}

	return l, nil
}

// Listings returns every active listing in item order.
func (mk *Marketplace) Listings(rd storage.Reader) ([]*Listing, error) {
	var out []*Listing

	err := rd.IteratePrefix(prefixListing, func(key, value []byte) error {
		l, err := decodeListing(value)
		if err != nil {
			return fmt.Errorf("decode listing %x:\n%w", key[len(prefixListing):], err)
		}

		out = append(out, l)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan listings:\n%w", err)
	}

	return out, nil
}

// Credits returns the total amount settlements have paid to who.
func (mk *Marketplace) Credits(rd storage.Reader, who ledger.Address) (uint64, error) {
	return readCredits(rd, who)
}

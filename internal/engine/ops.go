package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"Atelier/internal/ledger"
	"Atelier/internal/marketplace"
	"Atelier/internal/registry"
	"Atelier/internal/tracing"
)

// ItemView is the public projection of an item returned by GetItem.
type ItemView struct {
	Owner   ledger.Address `json:"owner"`
	Creator ledger.Address `json:"creator"`
	Royalty uint32         `json:"royalty"`
}

// Info describes the collection and the size of the ledger.
type Info struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Items  uint64 `json:"items"`
	Events uint64 `json:"events"`
}

// CreateCollectible mints an item for creator bound to fingerprint.
func (e *Engine) CreateCollectible(ctx context.Context, fingerprint []byte, royalty uint32, creator ledger.Address) (uint64, *Receipt, error) {
	var id uint64

	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrActor, creator.String()),
		attribute.Int64(tracing.AttrRoyalty, int64(royalty)),
	}

	receipt, err := e.apply(ctx, "mint", attrs, func(tx *ledger.Tx) error {
		var err error
		id, err = e.registry.CreateCollectible(tx, fingerprint, royalty, creator)
		return err
	})
	if err != nil {
		return 0, nil, err
	}

	return id, receipt, nil
}

// List offers an item owned by seller for price.
func (e *Engine) List(ctx context.Context, id uint64, seller ledger.Address, price uint64) (*Receipt, error) {
	attrs := []attribute.KeyValue{
		tracing.Uint64(tracing.AttrItemID, id),
		attribute.String(tracing.AttrActor, seller.String()),
		tracing.Uint64(tracing.AttrAmount, price),
	}

	return e.apply(ctx, "list", attrs, func(tx *ledger.Tx) error {
		return e.market.List(tx, id, seller, price)
	})
}

// Delist withdraws the listing of an item. Only its seller may do so.
func (e *Engine) Delist(ctx context.Context, id uint64, caller ledger.Address) (*Receipt, error) {
	attrs := []attribute.KeyValue{
		tracing.Uint64(tracing.AttrItemID, id),
		attribute.String(tracing.AttrActor, caller.String()),
	}

	return e.apply(ctx, "delist", attrs, func(tx *ledger.Tx) error {
		return e.market.Delist(tx, id, caller)
	})
}

// Buy settles the listed item to buyer against payment.
func (e *Engine) Buy(ctx context.Context, id uint64, buyer ledger.Address, payment uint64) (*marketplace.Settlement, *Receipt, error) {
	var s *marketplace.Settlement

	attrs := []attribute.KeyValue{
		tracing.Uint64(tracing.AttrItemID, id),
		attribute.String(tracing.AttrActor, buyer.String()),
		tracing.Uint64(tracing.AttrAmount, payment),
	}

	receipt, err := e.apply(ctx, "buy", attrs, func(tx *ledger.Tx) error {
		var err error
		s, err = e.market.Buy(tx, id, buyer, payment)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return s, receipt, nil
}

// HasBeenMinted reports whether fingerprint was ever minted.
func (e *Engine) HasBeenMinted(fingerprint []byte) (bool, error) {
	var minted bool

	err := e.view(func() error {
		var err error
		minted, err = e.registry.HasBeenMinted(e.db, fingerprint)
		return err
	})

	return minted, err
}

// GetItem returns the owner, creator and royalty of an item.
func (e *Engine) GetItem(id uint64) (ItemView, error) {
	var v ItemView

	err := e.view(func() error {
		owner, creator, royalty, err := e.registry.GetItem(e.db, id)
		if err != nil {
			return err
		}

		v = ItemView{Owner: owner, Creator: creator, Royalty: royalty}
		return nil
	})
	if err != nil {
		return ItemView{}, err
	}

	return v, nil
}

// Item returns the full record of an item.
func (e *Engine) Item(id uint64) (*registry.Item, error) {
	var it *registry.Item

	err := e.view(func() error {
		var err error
		it, err = e.registry.Item(e.db, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return it, nil
}

// ItemByFingerprint returns the id minted from fingerprint.
func (e *Engine) ItemByFingerprint(fingerprint []byte) (uint64, error) {
	var id uint64

	err := e.view(func() error {
		var err error
		id, err = e.registry.ItemByFingerprint(e.db, fingerprint)
		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// ItemsOf returns the ids owned by owner in ascending order.
func (e *Engine) ItemsOf(owner ledger.Address) ([]uint64, error) {
	var ids []uint64

	err := e.view(func() error {
		var err error
		ids, err = e.registry.ItemsOf(e.db, owner)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// ItemsLength returns the number of minted items.
func (e *Engine) ItemsLength() (uint64, error) {
	var n uint64

	err := e.view(func() error {
		var err error
		n, err = e.registry.ItemsLength(e.db)
		return err
	})
	if err != nil {
		return 0, err
	}

	return n, nil
}

// Listing returns the active listing of an item.
func (e *Engine) Listing(id uint64) (*marketplace.Listing, error) {
	var l *marketplace.Listing

	err := e.view(func() error {
		var err error
		l, err = e.market.Listing(e.db, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return l, nil
}

// Listings returns every active listing.
func (e *Engine) Listings() ([]*marketplace.Listing, error) {
	var ls []*marketplace.Listing

	err := e.view(func() error {
		var err error
		ls, err = e.market.Listings(e.db)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ls, nil
}

// Credits returns the total settlements have paid to who.
func (e *Engine) Credits(who ledger.Address) (uint64, error) {
	var total uint64

	err := e.view(func() error {
		var err error
		total, err = e.market.Credits(e.db, who)
		return err
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// Events returns up to limit logged events starting at sequence from.
// A zero limit returns the rest of the log.
func (e *Engine) Events(from uint64, limit int) ([]ledger.Event, error) {
	var events []ledger.Event

	err := e.view(func() error {
		var err error
		events, err = scanEvents(e.db, from, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

// Digest returns a checksum of the entire ledger state.
func (e *Engine) Digest() (StateDigest, error) {
	var d StateDigest

	err := e.view(func() error {
		var err error
		d, err = computeDigest(e.db)
		return err
	})
	if err != nil {
		return StateDigest{}, err
	}

	return d, nil
}

// Info returns the collection identity and ledger counters.
func (e *Engine) Info() (Info, error) {
	info := Info{
		Name:   e.registry.Name(),
		Symbol: e.registry.Symbol(),
	}

	err := e.view(func() error {
		items, err := e.registry.ItemsLength(e.db)
		if err != nil {
			return err
		}

		events, err := readEventCount(e.db)
		if err != nil {
			return err
		}

		info.Items = items
		info.Events = events
		return nil
	})
	if err != nil {
		return Info{}, err
	}

	return info, nil
}

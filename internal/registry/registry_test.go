package registry

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"pgregory.net/rapid"

	"Atelier/internal/ledger"
	"Atelier/internal/storage"
)

var (
	creator = ledger.Address{0x01}
	buyer   = ledger.Address{0x02}
)

// newTestStorage creates a temporary storage for testing.
func newTestStorage(t testing.TB) *storage.Storage {
	t.Helper()

	dir, err := os.MkdirTemp("", "registry_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	db, err := storage.New(dir)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		os.RemoveAll(dir)
	})

	return db
}

// mint runs CreateCollectible in its own transaction, committing only on success.
func mint(t testing.TB, db *storage.Storage, r *Registry, fp string, royalty uint32, who ledger.Address) (uint64, []ledger.Event, error) {
	t.Helper()

	tx := ledger.Begin(db)
	id, err := r.CreateCollectible(tx, []byte(fp), royalty, who)
	if err != nil {
		tx.Discard()
		return 0, nil, err
	}

	events := tx.Events()
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	return id, events, nil
}

func mustLength(t testing.TB, db *storage.Storage, r *Registry) uint64 {
	t.Helper()

	n, err := r.ItemsLength(db)
	if err != nil {
		t.Fatalf("ItemsLength failed: %v", err)
	}

	return n
}

func TestNewDefaults(t *testing.T) {
	r := New("", "")

	if r.Name() != "NFTCollectible" || r.Symbol() != "NFTC" {
		t.Errorf("got %q/%q, want NFTCollectible/NFTC", r.Name(), r.Symbol())
	}
}

// TestMintLifecycle walks the reference scenario: reject 41%, mint at 20%, reject the duplicate.
func TestMintLifecycle(t *testing.T) {
	db := newTestStorage(t)
	r := New("", "")

	minted, err := r.HasBeenMinted(db, []byte("metadata"))
	if err != nil || minted {
		t.Fatalf("HasBeenMinted before mint = %v, %v; want false", minted, err)
	}

	_, _, err = mint(t, db, r, "metadata", 41, creator)
	if ledger.KindOf(err) != ledger.KindInvalidRoyalty {
		t.Fatalf("expected InvalidRoyalty, got %v", err)
	}
	if err.Error() != "Royalties must be between 0% and 40%." {
		t.Errorf("unexpected reason %q", err.Error())
	}
	if n := mustLength(t, db, r); n != 0 {
		t.Errorf("length after rejected mint = %d, want 0", n)
	}

	id, events, err := mint(t, db, r, "metadata", 20, creator)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != ledger.EventTransfer || !events[0].From.IsZero() || events[0].To != creator || events[0].ItemID != 1 {
		t.Errorf("unexpected transfer event %+v", events[0])
	}
	if events[1].Kind != ledger.EventItemMinted || events[1].ItemID != 1 || events[1].Creator != creator ||
		string(events[1].Fingerprint) != "metadata" || events[1].Royalty != 20 {
		t.Errorf("unexpected mint event %+v", events[1])
	}

	if n := mustLength(t, db, r); n != 1 {
		t.Errorf("length = %d, want 1", n)
	}

	owner, itemCreator, royalty, err := r.GetItem(db, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if owner != creator || itemCreator != creator || royalty != 20 {
		t.Errorf("GetItem = %x %x %d", owner[:1], itemCreator[:1], royalty)
	}
	if owner == buyer {
		t.Error("buyer should not own the item")
	}

	minted, _ = r.HasBeenMinted(db, []byte("metadata"))
	if !minted {
		t.Error("HasBeenMinted after mint = false")
	}

	_, _, err = mint(t, db, r, "metadata", 30, creator)
	if ledger.KindOf(err) != ledger.KindDuplicateFingerprint {
		t.Fatalf("expected DuplicateFingerprint, got %v", err)
	}
	if err.Error() != "This metadata has already been used to mint an NFT." {
		t.Errorf("unexpected reason %q", err.Error())
	}

	if n := mustLength(t, db, r); n != 1 {
		t.Errorf("length after duplicate = %d, want 1", n)
	}

	_, _, royalty, _ = r.GetItem(db, 1)
	if royalty != 20 {
		t.Errorf("duplicate mint changed royalty to %d", royalty)
	}
}

func TestMintZeroCreator(t *testing.T) {
	db := newTestStorage(t)
	r := New("", "")

	_, _, err := mint(t, db, r, "x", 10, ledger.Address{})
	if ledger.KindOf(err) != ledger.KindInvalidIdentity {
		t.Fatalf("expected InvalidIdentity, got %v", err)
	}
}

func TestGetItemNotFound(t *testing.T) {
	db := newTestStorage(t)
	r := New("", "")

	_, _, _, err := r.GetItem(db, 1)
	if ledger.KindOf(err) != ledger.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	_, _, _, err = r.GetItem(db, 0)
	if ledger.KindOf(err) != ledger.KindNotFound {
		t.Fatalf("expected NotFound for id 0, got %v", err)
	}
}

func TestItemRecordAndLookup(t *testing.T) {
	db := newTestStorage(t)
	r := New("", "")

	fp := "ipfs://bafy-long-content-address"
	id, _, err := mint(t, db, r, fp, 5, creator)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	it, err := r.Item(db, id)
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if it.ID != id || it.Owner != creator || it.Creator != creator || it.Royalty != 5 || !bytes.Equal(it.Fingerprint, []byte(fp)) {
		t.Errorf("unexpected item %+v", it)
	}

	got, err := r.ItemByFingerprint(db, []byte(fp))
	if err != nil || got != id {
		t.Errorf("ItemByFingerprint = %d, %v; want %d", got, err, id)
	}

	_, err = r.ItemByFingerprint(db, []byte("unknown"))
	if ledger.KindOf(err) != ledger.KindNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

// TestTransferOwnership verifies owner update, owner index move and the emitted event.
func TestTransferOwnership(t *testing.T) {
	db := newTestStorage(t)
	r := New("", "")

	for i := 0; i < 3; i++ {
		if _, _, err := mint(t, db, r, fmt.Sprintf("fp-%d", i), 10, creator); err != nil {
			t.Fatalf("mint failed: %v", err)
		}
	}

	tx := ledger.Begin(db)
	if err := r.TransferOwnership(tx, 2, buyer); err != nil {
		t.Fatalf("TransferOwnership failed: %v", err)
	}

	events := tx.Events()
	if len(events) != 1 || events[0].Kind != ledger.EventTransfer || events[0].From != creator || events[0].To != buyer || events[0].ItemID != 2 {
		t.Fatalf("unexpected events %+v", events)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	owner, itemCreator, _, _ := r.GetItem(db, 2)
	if owner != buyer || itemCreator != creator {
		t.Errorf("after transfer owner=%x creator=%x", owner[:1], itemCreator[:1])
	}

	creatorItems, _ := r.ItemsOf(db, creator)
	if len(creatorItems) != 2 || creatorItems[0] != 1 || creatorItems[1] != 3 {
		t.Errorf("creator items = %v, want [1 3]", creatorItems)
	}

	buyerItems, _ := r.ItemsOf(db, buyer)
	if len(buyerItems) != 1 || buyerItems[0] != 2 {
		t.Errorf("buyer items = %v, want [2]", buyerItems)
	}
}

func TestTransferOwnershipNotFound(t *testing.T) {
	db := newTestStorage(t)
	r := New("", "")

	tx := ledger.Begin(db)
	defer tx.Discard()

	err := r.TransferOwnership(tx, 7, buyer)
	if ledger.KindOf(err) != ledger.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if len(tx.Events()) != 0 {
		t.Error("rejected transfer emitted events")
	}
}

// TestMintReadsOwnWrites verifies two mints in one transaction get distinct ids
// and the second sees the first fingerprint.
func TestMintReadsOwnWrites(t *testing.T) {
	db := newTestStorage(t)
	r := New("", "")

	tx := ledger.Begin(db)
	defer tx.Discard()

	id1, err := r.CreateCollectible(tx, []byte("a"), 1, creator)
	if err != nil {
		t.Fatalf("first mint failed: %v", err)
	}

	id2, err := r.CreateCollectible(tx, []byte("b"), 1, creator)
	if err != nil {
		t.Fatalf("second mint failed: %v", err)
	}

	if id1 != 1 || id2 != 2 {
		t.Errorf("ids = %d, %d; want 1, 2", id1, id2)
	}

	_, err = r.CreateCollectible(tx, []byte("a"), 1, creator)
	if ledger.KindOf(err) != ledger.KindDuplicateFingerprint {
		t.Errorf("expected DuplicateFingerprint inside tx, got %v", err)
	}
}

// TestPropertyRoyaltyBounds checks mint succeeds iff royalty is within [0, 40].
func TestPropertyRoyaltyBounds(t *testing.T) {
	db := newTestStorage(t)
	r := New("", "")
	seq := 0

	rapid.Check(t, func(rt *rapid.T) {
		royalty := rapid.Uint32().Draw(rt, "royalty")
		seq++

		before := mustLength(t, db, r)
		_, _, err := mint(t, db, r, fmt.Sprintf("royalty-%d", seq), royalty, creator)
		after := mustLength(t, db, r)

		if royalty <= MaxRoyalty {
			if err != nil {
				rt.Fatalf("royalty %d rejected: %v", royalty, err)
			}
			if after != before+1 {
				rt.Fatalf("length %d -> %d after successful mint", before, after)
			}
			return
		}

		if ledger.KindOf(err) != ledger.KindInvalidRoyalty {
			rt.Fatalf("royalty %d: expected InvalidRoyalty, got %v", royalty, err)
		}
		if after != before {
			rt.Fatalf("length changed %d -> %d on rejected mint", before, after)
		}
	})
}

// TestPropertyIdsAndUniqueness mints random fingerprints (with repeats) and checks
// ids are gapless, duplicates always fail, and minted fingerprints stay minted.
func TestPropertyIdsAndUniqueness(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		db, err := storage.New(t.TempDir())
		if err != nil {
			rt.Fatalf("failed to create storage: %v", err)
		}
		defer db.Close()

		r := New("", "")

		fps := rapid.SliceOfN(rapid.StringMatching(`[a-d]{1,3}`), 1, 30).Draw(rt, "fingerprints")
		seen := make(map[string]uint64)
		var next uint64 = 1

		for _, fp := range fps {
			royalty := rapid.Uint32Range(0, MaxRoyalty).Draw(rt, "royalty")
			id, _, err := mint(t, db, r, fp, royalty, creator)

			if prev, dup := seen[fp]; dup {
				if ledger.KindOf(err) != ledger.KindDuplicateFingerprint {
					rt.Fatalf("remint of %q: expected DuplicateFingerprint, got %v", fp, err)
				}
				got, _ := r.ItemByFingerprint(db, []byte(fp))
				if got != prev {
					rt.Fatalf("fingerprint %q rebound from %d to %d", fp, prev, got)
				}
				continue
			}

			if err != nil {
				rt.Fatalf("mint %q failed: %v", fp, err)
			}
			if id != next {
				rt.Fatalf("id = %d, want %d", id, next)
			}

			seen[fp] = id
			next++
		}

		if n := mustLength(t, db, r); n != uint64(len(seen)) {
			rt.Fatalf("length = %d, want %d", n, len(seen))
		}

		for fp := range seen {
			if ok, _ := r.HasBeenMinted(db, []byte(fp)); !ok {
				rt.Fatalf("fingerprint %q no longer minted", fp)
			}
		}
	})
}

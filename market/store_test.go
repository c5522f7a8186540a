package market

import (
	"errors"
	"math/big"
	"testing"

	"fytemarket/state"
	"fytemarket/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(state.NewManager(storage.NewMemDB()))
}

func testListing(listingType ListingType) *Listing {
	return &Listing{
		Type:          listingType,
		Price:         big.NewInt(10),
		TotalEntrants: 10,
		Metadata:      Metadata{Name: "listing"},
	}
}

func mustInsert(t *testing.T, s *Store, listingType ListingType) uint64 {
	t.Helper()
	id, err := s.Insert(testListing(listingType))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return id
}

func assertIndex(t *testing.T, got []uint64, want ...uint64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("index length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index order mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestInsertAssignsSequentialIDs(t *testing.T) {
	s := newTestStore(t)

	for want := uint64(1); want <= 3; want++ {
		if id := mustInsert(t, s, TypeRaffle); id != want {
			t.Fatalf("expected id %d, got %d", want, id)
		}
	}
	active, err := s.Active()
	if err != nil {
		t.Fatalf("active failed: %v", err)
	}
	assertIndex(t, active, 1, 2, 3)
}

func TestIDsNeverReusedAcrossDelete(t *testing.T) {
	s := newTestStore(t)

	first := mustInsert(t, s, TypeRaffle)
	if err := s.Remove(first); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	second := mustInsert(t, s, TypeRaffle)
	if second <= first {
		t.Fatalf("expected id after delete to keep increasing: first=%d second=%d", first, second)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.Get(42); err != nil {
		t.Fatalf("get failed: %v", err)
	} else if ok {
		t.Fatalf("expected missing listing to report !ok")
	}
}

func TestMoveToClosed(t *testing.T) {
	s := newTestStore(t)

	a := mustInsert(t, s, TypeRaffle)
	b := mustInsert(t, s, TypeRaffle)
	c := mustInsert(t, s, TypeRaffle)

	if err := s.MoveToClosed(b); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	active, _ := s.Active()
	assertIndex(t, active, a, c)
	closed, _ := s.Closed()
	assertIndex(t, closed, b)

	// Closing a listing that already left the active index fails.
	if err := s.MoveToClosed(b); !errors.Is(err, ErrInvalidListing) {
		t.Fatalf("expected ErrInvalidListing, got %v", err)
	}
	if err := s.MoveToClosed(99); !errors.Is(err, ErrInvalidListing) {
		t.Fatalf("expected ErrInvalidListing for unknown id, got %v", err)
	}
}

func TestCompactionPreservesOrder(t *testing.T) {
	s := newTestStore(t)

	var ids []uint64
	for i := 0; i < 5; i++ {
		ids = append(ids, mustInsert(t, s, TypeWhitelist))
	}
	if err := s.Remove(ids[2]); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	active, _ := s.Active()
	assertIndex(t, active, ids[0], ids[1], ids[3], ids[4])
}

func TestRemoveFromEitherIndex(t *testing.T) {
	s := newTestStore(t)

	a := mustInsert(t, s, TypeRaffle)
	b := mustInsert(t, s, TypeRaffle)
	if err := s.MoveToClosed(b); err != nil {
		t.Fatalf("move failed: %v", err)
	}

	if err := s.Remove(a); err != nil {
		t.Fatalf("remove active failed: %v", err)
	}
	if err := s.Remove(b); err != nil {
		t.Fatalf("remove closed failed: %v", err)
	}
	active, _ := s.Active()
	assertIndex(t, active)
	closed, _ := s.Closed()
	assertIndex(t, closed)

	for _, id := range []uint64{a, b} {
		if _, ok, err := s.Get(id); err != nil {
			t.Fatalf("get failed: %v", err)
		} else if ok {
			t.Fatalf("expected listing %d to be tombstoned", id)
		}
	}
}

func TestRemoveUnknownFails(t *testing.T) {
	s := newTestStore(t)

	if err := s.Remove(1); !errors.Is(err, ErrInvalidListing) {
		t.Fatalf("expected ErrInvalidListing, got %v", err)
	}
	id := mustInsert(t, s, TypeRaffle)
	if err := s.Remove(id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := s.Remove(id); !errors.Is(err, ErrInvalidListing) {
		t.Fatalf("expected ErrInvalidListing on double delete, got %v", err)
	}
}

func TestIndexSnapshotsAreCopies(t *testing.T) {
	s := newTestStore(t)

	mustInsert(t, s, TypeRaffle)
	mustInsert(t, s, TypeRaffle)
	active, _ := s.Active()
	active[0] = 999

	fresh, _ := s.Active()
	if fresh[0] != 1 {
		t.Fatalf("mutating a snapshot leaked into the store: %v", fresh)
	}
}

func TestIsActive(t *testing.T) {
	s := newTestStore(t)

	id := mustInsert(t, s, TypeRaffle)
	if ok, err := s.IsActive(id); err != nil || !ok {
		t.Fatalf("expected listing to be active: ok=%v err=%v", ok, err)
	}
	if err := s.MoveToClosed(id); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if ok, err := s.IsActive(id); err != nil || ok {
		t.Fatalf("expected closed listing to report inactive: ok=%v err=%v", ok, err)
	}
}

func TestPutRequiresExistingRecord(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put(&Listing{ID: 7}); !errors.Is(err, ErrInvalidListing) {
		t.Fatalf("expected ErrInvalidListing, got %v", err)
	}
	id := mustInsert(t, s, TypeRaffle)
	listing, _, err := s.Get(id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	listing.TotalEntrants = 20
	if err := s.Put(listing); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	reloaded, _, _ := s.Get(id)
	if reloaded.TotalEntrants != 20 {
		t.Fatalf("expected update to persist, got %d", reloaded.TotalEntrants)
	}
}

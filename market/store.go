package market

import "fmt"

// KV is the narrow persistence interface the market package depends on. The
// state manager satisfies it in production; tests may supply their own.
type KV interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

var (
	seqKey    = []byte("market/listings/seq")
	activeKey = []byte("market/listings/active")
	closedKey = []byte("market/listings/closed")
)

func listingKey(id uint64) []byte {
	return []byte(fmt.Sprintf("market/listings/%d", id))
}

// Store owns the canonical listing records together with the ordered active
// and closed ID indices. Invariants maintained here: an ID appears in at most
// one index at any time, removal compacts without reordering survivors, and a
// deleted ID never reappears. Listing IDs are allocated sequentially starting
// at 1 and are never reused, even across deletions.
type Store struct {
	kv KV
}

// NewStore creates a listing store backed by the provided state manager.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Insert allocates the next listing ID, persists the record, and appends the
// ID to the active index.
func (s *Store) Insert(listing *Listing) (uint64, error) {
	if listing == nil {
		return 0, ErrInvalidListing
	}
	var seq uint64
	if _, err := s.kv.KVGet(seqKey, &seq); err != nil {
		return 0, err
	}
	seq++
	record := listing.Clone()
	record.ID = seq
	if err := s.kv.KVPut(listingKey(seq), record); err != nil {
		return 0, err
	}
	active, err := s.loadIndex(activeKey)
	if err != nil {
		return 0, err
	}
	if err := s.saveIndex(activeKey, append(active, seq)); err != nil {
		return 0, err
	}
	if err := s.kv.KVPut(seqKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// Get retrieves the listing stored under the supplied ID. Tombstoned and
// never-created IDs report !ok.
func (s *Store) Get(id uint64) (*Listing, bool, error) {
	record := new(Listing)
	ok, err := s.kv.KVGet(listingKey(id), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

// Put replaces the stored record for an existing listing. The ID must already
// be present in the store.
func (s *Store) Put(listing *Listing) error {
	if listing == nil {
		return ErrInvalidListing
	}
	if _, ok, err := s.Get(listing.ID); err != nil {
		return err
	} else if !ok {
		return ErrInvalidListing
	}
	return s.kv.KVPut(listingKey(listing.ID), listing.Clone())
}

// MoveToClosed removes the ID from the active index and appends it to the
// closed index. Fails with ErrInvalidListing unless the ID is currently
// active.
func (s *Store) MoveToClosed(id uint64) error {
	active, err := s.loadIndex(activeKey)
	if err != nil {
		return err
	}
	compacted, found := removeID(active, id)
	if !found {
		return ErrInvalidListing
	}
	closed, err := s.loadIndex(closedKey)
	if err != nil {
		return err
	}
	if err := s.saveIndex(activeKey, compacted); err != nil {
		return err
	}
	if err := s.saveIndex(closedKey, append(closed, id)); err != nil {
		// Restore the active index so the ID does not vanish from both.
		if restoreErr := s.saveIndex(activeKey, active); restoreErr != nil {
			return fmt.Errorf("closed index write failed: %w (active restore failed: %v)", err, restoreErr)
		}
		return err
	}
	return nil
}

// Remove deletes the ID from whichever index currently holds it and
// tombstones the record. Fails with ErrInvalidListing when the ID is in
// neither index.
func (s *Store) Remove(id uint64) error {
	active, err := s.loadIndex(activeKey)
	if err != nil {
		return err
	}
	if compacted, found := removeID(active, id); found {
		if err := s.saveIndex(activeKey, compacted); err != nil {
			return err
		}
		return s.kv.KVDelete(listingKey(id))
	}
	closed, err := s.loadIndex(closedKey)
	if err != nil {
		return err
	}
	compacted, found := removeID(closed, id)
	if !found {
		return ErrInvalidListing
	}
	if err := s.saveIndex(closedKey, compacted); err != nil {
		return err
	}
	return s.kv.KVDelete(listingKey(id))
}

// IsActive reports whether the ID is currently present in the active index.
func (s *Store) IsActive(id uint64) (bool, error) {
	active, err := s.loadIndex(activeKey)
	if err != nil {
		return false, err
	}
	for _, existing := range active {
		if existing == id {
			return true, nil
		}
	}
	return false, nil
}

// Active returns a snapshot copy of the ordered active index.
func (s *Store) Active() ([]uint64, error) {
	return s.loadIndex(activeKey)
}

// Closed returns a snapshot copy of the ordered closed index.
func (s *Store) Closed() ([]uint64, error) {
	return s.loadIndex(closedKey)
}

func (s *Store) loadIndex(key []byte) ([]uint64, error) {
	ids := []uint64{}
	if _, err := s.kv.KVGet(key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) saveIndex(key []byte, ids []uint64) error {
	return s.kv.KVPut(key, ids)
}

// removeID compacts the slice by shifting survivors left, preserving their
// relative order.
func removeID(ids []uint64, id uint64) ([]uint64, bool) {
	for i, existing := range ids {
		if existing == id {
			out := make([]uint64, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			out = append(out, ids[i+1:]...)
			return out, true
		}
	}
	return ids, false
}

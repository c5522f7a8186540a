package market

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"fytemarket/events"
)

// TokenLedger is the settlement interface the engine drives. Purchases debit
// the buyer via TransferFrom (which requires a prior allowance granted to the
// marketplace vault) and withdrawals move held proceeds with Transfer.
type TokenLedger interface {
	Symbol() string
	BalanceOf(addr [20]byte) (*big.Int, error)
	Transfer(from [20]byte, to [20]byte, amount *big.Int) error
	TransferFrom(spender [20]byte, from [20]byte, to [20]byte, amount *big.Int) error
}

// Engine is the marketplace operation surface. Every public method resolves
// caller authorization, validates listing existence and state, mutates the
// listing store and/or settles against the token ledger, then emits an event.
// A single mutex serializes all operations so no caller ever observes an
// intermediate state.
type Engine struct {
	mu      sync.Mutex
	store   *Store
	roles   *RoleSet
	token   TokenLedger
	owner   [20]byte
	vault   [20]byte
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a marketplace engine. The vault address is the
// marketplace's own holding account: purchase proceeds accumulate there until
// the owner withdraws them.
func NewEngine(store *Store, roles *RoleSet, ledger TokenLedger, owner [20]byte, vault [20]byte) *Engine {
	return &Engine{
		store:   store,
		roles:   roles,
		token:   ledger,
		owner:   owner,
		vault:   vault,
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets it to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Owner returns the distinguished owner principal.
func (e *Engine) Owner() [20]byte { return e.owner }

// Vault returns the marketplace holding account.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

func (e *Engine) isAdmin(caller [20]byte) (bool, error) {
	if caller == e.owner {
		return true, nil
	}
	return e.roles.Has(caller)
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// List creates a new listing. Only the owner or a role-holder may list.
func (e *Engine) List(caller [20]byte, listingType ListingType, meta Metadata, price *big.Int, totalEntrants uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	admin, err := e.isAdmin(caller)
	if err != nil {
		return 0, err
	}
	if !admin {
		return 0, ErrUnauthorized
	}
	if !listingType.Valid() {
		return 0, ErrInvalidType
	}
	if price != nil && price.Sign() < 0 {
		return 0, ErrInvalidAmount
	}
	listing := &Listing{
		Type:          listingType,
		Price:         cloneBigInt(price),
		TotalEntrants: totalEntrants,
		Metadata:      meta,
		CreatedAt:     e.nowFn(),
	}
	id, err := e.store.Insert(listing)
	if err != nil {
		return 0, err
	}
	e.emit(listedEvent(id, listingType))
	return id, nil
}

// Close moves an active listing to the closed index. Closing an already
// closed or deleted listing fails with ErrInvalidListing.
func (e *Engine) Close(caller [20]byte, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	admin, err := e.isAdmin(caller)
	if err != nil {
		return err
	}
	if !admin {
		return ErrUnauthorized
	}
	if err := e.store.MoveToClosed(id); err != nil {
		return err
	}
	e.emit(closedEvent(id))
	return nil
}

// Delete tombstones a listing from whichever index holds it. Owner only.
func (e *Engine) Delete(caller [20]byte, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrUnauthorized
	}
	if err := e.store.Remove(id); err != nil {
		return err
	}
	e.emit(deletedEvent(id))
	return nil
}

// Buy purchases quantity entrant slots on an active listing, settling
// price×quantity from the buyer to the marketplace vault. When the final slot
// sells the listing closes as part of the same operation.
func (e *Engine) Buy(caller [20]byte, id uint64, quantity uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.token == nil {
		return ErrNilLedger
	}
	active, err := e.store.IsActive(id)
	if err != nil {
		return err
	}
	if !active {
		return ErrInvalidListing
	}
	if quantity == 0 {
		return ErrInvalidAmount
	}
	listing, ok, err := e.store.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidListing
	}
	if quantity > listing.Remaining() {
		return ErrInvalidAmount
	}
	buyer := hexAddr(caller)
	if listing.Type == TypeUnique {
		if quantity != 1 {
			return ErrInvalidAmount
		}
		if listing.Redeemed[buyer] {
			return ErrAlreadyRedeemed
		}
	}

	cost := new(big.Int).Mul(cloneBigInt(listing.Price), new(big.Int).SetUint64(quantity))
	if cost.Sign() > 0 {
		if err := e.token.TransferFrom(e.vault, caller, e.vault, cost); err != nil {
			return fmt.Errorf("%w: %v", ErrApproveFailed, err)
		}
	}

	updated := listing.Clone()
	updated.CurrentEntrants += quantity
	if updated.Type == TypeUnique {
		if updated.Redeemed == nil {
			updated.Redeemed = make(map[string]bool)
		}
		updated.Redeemed[buyer] = true
	}
	if err := e.store.Put(updated); err != nil {
		e.refund(caller, cost)
		return err
	}
	if updated.CurrentEntrants == updated.TotalEntrants {
		if err := e.store.MoveToClosed(id); err != nil {
			// Undo the accounting update before refunding the buyer.
			if restoreErr := e.store.Put(listing); restoreErr != nil {
				err = fmt.Errorf("%w (listing restore failed: %v)", err, restoreErr)
			}
			e.refund(caller, cost)
			return err
		}
		e.emit(closedEvent(id))
	}
	e.emit(purchaseEvent(id, buyer, quantity, cost.String()))
	return nil
}

// refund returns settled funds to the buyer after a failed post-settlement
// mutation. Best effort: the vault always holds the funds at this point.
func (e *Engine) refund(buyer [20]byte, cost *big.Int) {
	if cost == nil || cost.Sign() <= 0 {
		return
	}
	_ = e.token.Transfer(e.vault, buyer, cost)
}

// Edit replaces the mutable fields of an existing listing (metadata, price,
// capacity). Identity, type, and accounting counters are preserved. Owner
// only.
func (e *Engine) Edit(caller [20]byte, id uint64, meta Metadata, price *big.Int, totalEntrants uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrUnauthorized
	}
	listing, ok, err := e.store.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidListing
	}
	if totalEntrants < listing.CurrentEntrants {
		return ErrInvalidTotalEntrants
	}
	if price != nil && price.Sign() < 0 {
		return ErrInvalidAmount
	}
	updated := listing.Clone()
	updated.Metadata = meta
	updated.Price = cloneBigInt(price)
	updated.TotalEntrants = totalEntrants
	if err := e.store.Put(updated); err != nil {
		return err
	}
	e.emit(editedEvent(id))
	return nil
}

// ChangeToken repoints the settlement ledger used for all future purchases
// and withdrawals. Balances already held under the previous ledger are
// unaffected. Owner only.
func (e *Engine) ChangeToken(caller [20]byte, ledger TokenLedger) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrUnauthorized
	}
	if ledger == nil {
		return ErrNilLedger
	}
	e.token = ledger
	e.emit(tokenChangedEvent(ledger.Symbol()))
	return nil
}

// AddRole grants marketplace administration to the address. Granting an
// existing member is a no-op success. Owner only.
func (e *Engine) AddRole(caller [20]byte, addr [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrUnauthorized
	}
	changed, err := e.roles.Grant(addr)
	if err != nil {
		return err
	}
	if changed {
		e.emit(roleGrantedEvent(hexAddr(addr)))
	}
	return nil
}

// RemoveRole revokes marketplace administration from the address. Removing a
// non-member is a no-op success. Owner only.
func (e *Engine) RemoveRole(caller [20]byte, addr [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrUnauthorized
	}
	changed, err := e.roles.Revoke(addr)
	if err != nil {
		return err
	}
	if changed {
		e.emit(roleRevokedEvent(hexAddr(addr)))
	}
	return nil
}

// HasRole reports whether the address holds the marketplace role. The owner
// is implicitly an admin but not a role-holder.
func (e *Engine) HasRole(addr [20]byte) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles.Has(addr)
}

// WithdrawToken transfers amount from the marketplace vault to the owner.
// Fails with ErrInvalidAmount when the vault balance is insufficient. Owner
// only.
func (e *Engine) WithdrawToken(caller [20]byte, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrUnauthorized
	}
	if e.token == nil {
		return ErrNilLedger
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	held, err := e.token.BalanceOf(e.vault)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return ErrInvalidAmount
	}
	if err := e.token.Transfer(e.vault, e.owner, amount); err != nil {
		return err
	}
	e.emit(withdrawalEvent(hexAddr(e.owner), amount.String()))
	return nil
}

// Listing returns a copy of the stored record for the supplied ID.
func (e *Engine) Listing(id uint64) (*Listing, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, ok, err := e.store.Get(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return listing.Clone(), true, nil
}

// IsActive reports whether the listing currently sits in the active index.
func (e *Engine) IsActive(id uint64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.IsActive(id)
}

// ActiveListings returns the ordered IDs of currently active listings.
func (e *Engine) ActiveListings() ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Active()
}

// ClosedListings returns the ordered IDs of currently closed listings.
func (e *Engine) ClosedListings() ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Closed()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

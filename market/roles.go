package market

import (
	"encoding/hex"
	"fmt"
)

// RoleSet persists the set of addresses granted marketplace administration
// short of full ownership. Grant and Revoke are idempotent: repeating either
// is a no-op success.
type RoleSet struct {
	kv KV
}

// NewRoleSet creates a role set backed by the provided state manager.
func NewRoleSet(kv KV) *RoleSet {
	return &RoleSet{kv: kv}
}

func roleKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("market/roles/%s", hex.EncodeToString(addr[:])))
}

// Grant adds the address to the role set. The boolean reports whether the set
// changed.
func (r *RoleSet) Grant(addr [20]byte) (bool, error) {
	ok, err := r.kv.KVGet(roleKey(addr), nil)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := r.kv.KVPut(roleKey(addr), true); err != nil {
		return false, err
	}
	return true, nil
}

// Revoke removes the address from the role set. The boolean reports whether
// the set changed.
func (r *RoleSet) Revoke(addr [20]byte) (bool, error) {
	ok, err := r.kv.KVGet(roleKey(addr), nil)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := r.kv.KVDelete(roleKey(addr)); err != nil {
		return false, err
	}
	return true, nil
}

// Has reports whether the address currently holds the marketplace role.
func (r *RoleSet) Has(addr [20]byte) (bool, error) {
	return r.kv.KVGet(roleKey(addr), nil)
}

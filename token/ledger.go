package token

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// KV is the narrow persistence interface the token ledger depends on.
type KV interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Token is a fungible balance ledger persisted in state. Balances and
// allowances are namespaced by symbol, so repointing the marketplace at a new
// symbol yields a fresh, independent ledger. Claim is a faucet-style mint used
// by setup and test flows.
type Token struct {
	mu     sync.Mutex
	kv     KV
	symbol string
}

// New creates a ledger for the provided symbol. Symbols are normalised to
// upper case.
func New(kv KV, symbol string) *Token {
	return &Token{kv: kv, symbol: strings.ToUpper(strings.TrimSpace(symbol))}
}

// Symbol returns the ledger's token symbol.
func (t *Token) Symbol() string { return t.symbol }

func (t *Token) balanceKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("token/%s/balance/%s", t.symbol, hex.EncodeToString(addr[:])))
}

func (t *Token) allowanceKey(owner [20]byte, spender [20]byte) []byte {
	return []byte(fmt.Sprintf("token/%s/allowance/%s/%s", t.symbol, hex.EncodeToString(owner[:]), hex.EncodeToString(spender[:])))
}

func (t *Token) supplyKey() []byte {
	return []byte(fmt.Sprintf("token/%s/supply", t.symbol))
}

func (t *Token) loadAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := t.kv.KVGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// BalanceOf returns the balance held by the address.
func (t *Token) BalanceOf(addr [20]byte) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadAmount(t.balanceKey(addr))
}

// Allowance returns how much the spender may still draw from the owner.
func (t *Token) Allowance(owner [20]byte, spender [20]byte) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadAmount(t.allowanceKey(owner, spender))
}

// TotalSupply returns the amount minted so far via Claim.
func (t *Token) TotalSupply() (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadAmount(t.supplyKey())
}

// Approve sets the spender's allowance over the owner's balance.
func (t *Token) Approve(owner [20]byte, spender [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.kv.KVPut(t.allowanceKey(owner, spender), amount)
}

// Transfer moves amount from one balance to another.
func (t *Token) Transfer(from [20]byte, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// TransferFrom moves amount from the owner's balance on behalf of the
// spender, consuming the spender's allowance. The debit happens only when
// both the balance and the allowance cover the amount.
func (t *Token) TransferFrom(spender [20]byte, from [20]byte, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance, err := t.loadAmount(t.allowanceKey(from, spender))
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	remaining := new(big.Int).Sub(allowance, amount)
	return t.kv.KVPut(t.allowanceKey(from, spender), remaining)
}

// Claim mints amount to the caller's balance.
func (t *Token) Claim(caller [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	balance, err := t.loadAmount(t.balanceKey(caller))
	if err != nil {
		return err
	}
	if err := t.kv.KVPut(t.balanceKey(caller), new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	supply, err := t.loadAmount(t.supplyKey())
	if err != nil {
		return err
	}
	return t.kv.KVPut(t.supplyKey(), new(big.Int).Add(supply, amount))
}

func (t *Token) move(from [20]byte, to [20]byte, amount *big.Int) error {
	fromBalance, err := t.loadAmount(t.balanceKey(from))
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := t.loadAmount(t.balanceKey(to))
	if err != nil {
		return err
	}
	if err := t.kv.KVPut(t.balanceKey(from), new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := t.kv.KVPut(t.balanceKey(to), new(big.Int).Add(toBalance, amount)); err != nil {
		// Restore the debit so a failed credit never burns funds.
		if restoreErr := t.kv.KVPut(t.balanceKey(from), fromBalance); restoreErr != nil {
			return fmt.Errorf("credit failed: %w (debit restore failed: %v)", err, restoreErr)
		}
		return err
	}
	return nil
}

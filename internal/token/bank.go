package token

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"auditescrow/pkg/ids"
)

// Bank is the in-memory Token implementation. It keeps the conservation
// invariant (sum of balances == total supply) and the usual guards:
// transfer requires balance, transferFrom additionally spends allowance.
type Bank struct {
	mu          sync.RWMutex
	balances    map[ids.Address]*uint256.Int
	allowances  map[ids.Address]map[ids.Address]*uint256.Int
	totalSupply *uint256.Int
}

func NewBank() *Bank {
	return &Bank{
		balances:    make(map[ids.Address]*uint256.Int),
		allowances:  make(map[ids.Address]map[ids.Address]*uint256.Int),
		totalSupply: uint256.NewInt(0),
	}
}

// Mint credits newly issued tokens to an account. Test and simulator wiring
// only; a production deployment adapts a real token backend instead.
func (b *Bank) Mint(to ids.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(to, amount)
	b.totalSupply = new(uint256.Int).Add(b.totalSupply, amount)
}

func (b *Bank) TotalSupply() *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return new(uint256.Int).Set(b.totalSupply)
}

func (b *Bank) Transfer(_ context.Context, caller, to ids.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(caller, to, amount)
}

func (b *Bank) TransferFrom(_ context.Context, caller, from, to ids.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	allowed := b.allowance(from, caller)
	if allowed.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := b.move(from, to, amount); err != nil {
		return err
	}
	b.allowances[from][caller] = new(uint256.Int).Sub(allowed, amount)
	return nil
}

func (b *Bank) Approve(_ context.Context, caller, spender ids.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.allowances[caller] == nil {
		b.allowances[caller] = make(map[ids.Address]*uint256.Int)
	}
	b.allowances[caller][spender] = new(uint256.Int).Set(amount)
	return nil
}

func (b *Bank) Allowance(_ context.Context, owner, spender ids.Address) (*uint256.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return new(uint256.Int).Set(b.allowance(owner, spender)), nil
}

func (b *Bank) BalanceOf(_ context.Context, account ids.Address) (*uint256.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return new(uint256.Int).Set(b.balance(account)), nil
}

func (b *Bank) balance(account ids.Address) *uint256.Int {
	if v, ok := b.balances[account]; ok {
		return v
	}
	return uint256.NewInt(0)
}

func (b *Bank) allowance(owner, spender ids.Address) *uint256.Int {
	if m, ok := b.allowances[owner]; ok {
		if v, ok := m[spender]; ok {
			return v
		}
	}
	return uint256.NewInt(0)
}

func (b *Bank) credit(to ids.Address, amount *uint256.Int) {
	b.balances[to] = new(uint256.Int).Add(b.balance(to), amount)
}

func (b *Bank) move(from, to ids.Address, amount *uint256.Int) error {
	bal := b.balance(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	b.balances[from] = new(uint256.Int).Sub(bal, amount)
	b.credit(to, amount)
	return nil
}

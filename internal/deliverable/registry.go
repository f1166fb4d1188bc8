// Package deliverable tracks the one-per-audit deliverable token: mint and
// burn are gated to the protocol identity, ownership lookups are open.
package deliverable

import (
	"sync"

	dErrors "auditescrow/pkg/domain-errors"
	"auditescrow/pkg/ids"
)

var (
	ErrNotOwner      = dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry owner")
	ErrTokenNotFound = dErrors.New(dErrors.CodeNotFound, "deliverable token not found")
	ErrTokenExists   = dErrors.New(dErrors.CodeConflict, "deliverable token already minted")
)

// Registry keeps deliverable-token ownership records. The registry owner (the
// protocol service) alone may mint and burn; everyone may read.
type Registry struct {
	mu      sync.RWMutex
	owner   ids.Address
	holders map[ids.TokenID]ids.Address
	byOwner map[ids.Address][]ids.TokenID
}

func NewRegistry(owner ids.Address) *Registry {
	return &Registry{
		owner:   owner,
		holders: make(map[ids.TokenID]ids.Address),
		byOwner: make(map[ids.Address][]ids.TokenID),
	}
}

// TransferOwnership hands registry control to a new protocol identity.
func (r *Registry) TransferOwnership(caller, next ids.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return ErrNotOwner
	}
	r.owner = next
	return nil
}

func (r *Registry) Owner() ids.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// Mint records to as holder of tokenID. Gated to the registry owner.
func (r *Registry) Mint(caller, to ids.Address, tokenID ids.TokenID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return ErrNotOwner
	}
	if _, exists := r.holders[tokenID]; exists {
		return ErrTokenExists
	}
	r.holders[tokenID] = to
	r.byOwner[to] = append(r.byOwner[to], tokenID)
	return nil
}

// Burn removes tokenID entirely. Gated to the registry owner.
func (r *Registry) Burn(caller ids.Address, tokenID ids.TokenID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return ErrNotOwner
	}
	holder, ok := r.holders[tokenID]
	if !ok {
		return ErrTokenNotFound
	}
	delete(r.holders, tokenID)
	owned := r.byOwner[holder]
	for i, id := range owned {
		if id == tokenID {
			r.byOwner[holder] = append(owned[:i], owned[i+1:]...)
			break
		}
	}
	return nil
}

// OwnerOf returns the current holder, or ErrTokenNotFound once burned.
func (r *Registry) OwnerOf(tokenID ids.TokenID) (ids.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	holder, ok := r.holders[tokenID]
	if !ok {
		return "", ErrTokenNotFound
	}
	return holder, nil
}

// TokenOfOwnerByIndex enumerates a holder's tokens in mint order.
func (r *Registry) TokenOfOwnerByIndex(holder ids.Address, index int) (ids.TokenID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owned := r.byOwner[holder]
	if index < 0 || index >= len(owned) {
		return ids.TokenID{}, ErrTokenNotFound
	}
	return owned[index], nil
}

// BalanceOf returns how many deliverables a holder owns.
func (r *Registry) BalanceOf(holder ids.Address) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byOwner[holder])
}

// GenerateID recomputes the deterministic deliverable identifier. Pure and
// callable by anyone, so an auditee can verify the identifier before reveal.
func GenerateID(auditID ids.AuditID, findings []string) ids.TokenID {
	return ids.GenerateTokenID(auditID, findings)
}

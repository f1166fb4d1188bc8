package governance

import (
	"context"
	"sync"

	"auditescrow/pkg/ids"
)

// ManualGateway is the deterministic in-memory backend. Freeze and
// invalidation are flipped explicitly by an operator (or a test) instead of
// being derived from vote tallies, mirroring a manually administered DAO.
type ManualGateway struct {
	mu        sync.RWMutex
	nextID    ids.ProposalID
	proposals map[ids.ProposalID]*manualProposal
}

type manualProposal struct {
	proposer    ids.Address
	description string
	frozen      bool
	invalidated bool
}

func NewManualGateway() *ManualGateway {
	return &ManualGateway{proposals: make(map[ids.ProposalID]*manualProposal)}
}

func (g *ManualGateway) Propose(_ context.Context, proposer ids.Address, description string) (ids.ProposalID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	// New proposals freeze withdrawals immediately; resolution is manual.
	g.proposals[g.nextID] = &manualProposal{
		proposer:    proposer,
		description: description,
		frozen:      true,
	}
	return g.nextID, nil
}

func (g *ManualGateway) Cancel(_ context.Context, id ids.ProposalID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return ErrProposalNotFound
	}
	p.frozen = false
	return nil
}

func (g *ManualGateway) IsWithdrawFrozen(_ context.Context, id ids.ProposalID) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.proposals[id]
	if !ok {
		return false, ErrProposalNotFound
	}
	return p.frozen, nil
}

func (g *ManualGateway) IsVestingInvalidated(_ context.Context, id ids.ProposalID) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.proposals[id]
	if !ok {
		return false, ErrProposalNotFound
	}
	return p.invalidated, nil
}

// SetProposalFrozen overrides the freeze flag. Operator/test mutator.
func (g *ManualGateway) SetProposalFrozen(id ids.ProposalID, frozen bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return ErrProposalNotFound
	}
	p.frozen = frozen
	return nil
}

// SetProposalInvalidated overrides the invalidation flag. Operator/test
// mutator.
func (g *ManualGateway) SetProposalInvalidated(id ids.ProposalID, invalidated bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return ErrProposalNotFound
	}
	p.invalidated = invalidated
	return nil
}

// Proposals returns the id of the most recent proposal, zero if none.
func (g *ManualGateway) Proposals() ids.ProposalID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nextID
}

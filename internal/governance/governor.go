package governance

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"

	"auditescrow/internal/domain"
	dErrors "auditescrow/pkg/domain-errors"
	"auditescrow/pkg/ids"
)

var (
	ErrAlreadyVoted  = dErrors.New(dErrors.CodeConflict, "voter already cast a vote")
	ErrVotingClosed  = dErrors.New(dErrors.CodeConflict, "proposal is not accepting votes")
	ErrNotSucceeded  = dErrors.New(dErrors.CodeConflict, "proposal has not succeeded")
	ErrNotQueued     = dErrors.New(dErrors.CodeConflict, "proposal is not queued")
	ErrTimelockEarly = dErrors.New(dErrors.CodeConflict, "timelock delay has not elapsed")
)

// GovernorConfig tunes the timed voting lifecycle.
type GovernorConfig struct {
	// VotingDelay is how long a proposal stays pending before votes open.
	VotingDelay int64
	// VotingPeriod is how long voting stays open, in seconds.
	VotingPeriod int64
	// TimelockDelay is the queue-to-execute wait, in seconds.
	TimelockDelay int64
	// Quorum is the minimum for-vote weight for a proposal to succeed.
	Quorum uint64
}

// Governor is a vote-tallying backend with the full proposal state machine:
// pending -> active -> {canceled | defeated | succeeded -> queued -> executed}.
// Status is derived lazily from the clock, so reads never require a scheduler.
type Governor struct {
	mu        sync.Mutex
	cfg       GovernorConfig
	clk       clock.Clock
	nextID    ids.ProposalID
	proposals map[ids.ProposalID]*governorProposal
}

type governorProposal struct {
	domain.Proposal
	proposedUnix int64
	queuedUnix   int64
	voters       map[ids.Address]bool
}

func NewGovernor(cfg GovernorConfig, clk clock.Clock) *Governor {
	return &Governor{
		cfg:       cfg,
		clk:       clk,
		proposals: make(map[ids.ProposalID]*governorProposal),
	}
}

func (g *Governor) Propose(_ context.Context, proposer ids.Address, description string) (ids.ProposalID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	now := g.clk.Now()
	g.proposals[g.nextID] = &governorProposal{
		Proposal: domain.Proposal{
			ID:          g.nextID,
			Proposer:    proposer,
			Description: description,
			Status:      domain.ProposalPending,
			ProposedAt:  now,
		},
		proposedUnix: now.Unix(),
		voters:       make(map[ids.Address]bool),
	}
	return g.nextID, nil
}

func (g *Governor) Cancel(_ context.Context, id ids.ProposalID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return ErrProposalNotFound
	}
	p.Status = domain.ProposalCanceled
	return nil
}

// CastVote records a weighted vote while the proposal is active.
func (g *Governor) CastVote(_ context.Context, id ids.ProposalID, voter ids.Address, support bool, weight uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return ErrProposalNotFound
	}
	if g.derive(p) != domain.ProposalActive {
		return ErrVotingClosed
	}
	if p.voters[voter] {
		return ErrAlreadyVoted
	}
	p.voters[voter] = true
	if support {
		p.ForVotes += weight
	} else {
		p.AgainstVotes += weight
	}
	return nil
}

// Queue moves a succeeded proposal into the timelock.
func (g *Governor) Queue(_ context.Context, id ids.ProposalID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return ErrProposalNotFound
	}
	if g.derive(p) != domain.ProposalSucceeded {
		return ErrNotSucceeded
	}
	p.Status = domain.ProposalQueued
	p.queuedUnix = g.clk.Now().Unix()
	return nil
}

// Execute finalizes a queued proposal once the timelock delay elapsed.
func (g *Governor) Execute(_ context.Context, id ids.ProposalID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return ErrProposalNotFound
	}
	if g.derive(p) != domain.ProposalQueued {
		return ErrNotQueued
	}
	if g.clk.Now().Unix() < p.queuedUnix+g.cfg.TimelockDelay {
		return ErrTimelockEarly
	}
	p.Status = domain.ProposalExecuted
	return nil
}

// State returns the clock-derived status.
func (g *Governor) State(_ context.Context, id ids.ProposalID) (domain.ProposalStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return "", ErrProposalNotFound
	}
	return g.derive(p), nil
}

func (g *Governor) IsWithdrawFrozen(ctx context.Context, id ids.ProposalID) (bool, error) {
	st, err := g.State(ctx, id)
	if err != nil {
		return false, err
	}
	return st == domain.ProposalPending || st == domain.ProposalActive, nil
}

func (g *Governor) IsVestingInvalidated(ctx context.Context, id ids.ProposalID) (bool, error) {
	st, err := g.State(ctx, id)
	if err != nil {
		return false, err
	}
	return st == domain.ProposalSucceeded || st == domain.ProposalQueued || st == domain.ProposalExecuted, nil
}

// derive resolves time-driven transitions without mutating terminal states.
func (g *Governor) derive(p *governorProposal) domain.ProposalStatus {
	switch p.Status {
	case domain.ProposalCanceled, domain.ProposalQueued, domain.ProposalExecuted:
		return p.Status
	}
	now := g.clk.Now().Unix()
	if now < p.proposedUnix+g.cfg.VotingDelay {
		return domain.ProposalPending
	}
	if now < p.proposedUnix+g.cfg.VotingDelay+g.cfg.VotingPeriod {
		return domain.ProposalActive
	}
	if p.ForVotes > p.AgainstVotes && p.ForVotes >= g.cfg.Quorum {
		return domain.ProposalSucceeded
	}
	return domain.ProposalDefeated
}

package domain

import (
	"time"

	"auditescrow/pkg/ids"
)

// ProposalStatus mirrors the governor lifecycle. The protocol core consumes
// only the two derived predicates (withdraw-frozen, vesting-invalidated); the
// full graph exists for the governor backend.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalActive    ProposalStatus = "active"
	ProposalCanceled  ProposalStatus = "canceled"
	ProposalDefeated  ProposalStatus = "defeated"
	ProposalSucceeded ProposalStatus = "succeeded"
	ProposalQueued    ProposalStatus = "queued"
	ProposalExecuted  ProposalStatus = "executed"
)

// Proposal is an invalidation proposal as tracked by a governance backend.
type Proposal struct {
	ID          ids.ProposalID
	AuditID     ids.AuditID
	Proposer    ids.Address
	Description string
	Status      ProposalStatus
	ProposedAt  time.Time

	ForVotes     uint64
	AgainstVotes uint64
}

// Frozen reports whether withdrawals are held while this proposal resolves.
func (p Proposal) Frozen() bool {
	return p.Status == ProposalPending || p.Status == ProposalActive
}

// Invalidated reports whether governance has confirmed the invalidation.
func (p Proposal) Invalidated() bool {
	return p.Status == ProposalSucceeded || p.Status == ProposalQueued || p.Status == ProposalExecuted
}

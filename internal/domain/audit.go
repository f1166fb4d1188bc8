package domain

import (
	"auditescrow/pkg/ids"
)

// Audit is the aggregate root for one commissioned audit. Records are created
// at preparation, mutated through the lifecycle, and never deleted; terminal
// states are flags.
type Audit struct {
	ID       ids.AuditID
	Auditee  ids.Address
	Auditors []ids.Address

	// Cliff and Duration are in seconds. Duration is validated > 0 when
	// schedules are created; Cliff may be zero.
	Cliff    uint64
	Duration uint64

	Details string

	// Amount is nominal (human units). Schedules carry the 18-decimal scaled
	// allocation, fixed at reveal time.
	Amount       uint64
	PaymentToken ids.Address

	// StartTime is zero until findings are revealed; afterwards it anchors the
	// vesting clock for every schedule of this audit (unix seconds).
	StartTime int64

	DeliverableTokenID ids.TokenID

	// InvalidationProposalID stays set once an invalidation has been proposed,
	// even after the proposal is canceled. Proposing is one-shot per audit.
	InvalidationProposalID ids.ProposalID

	Active      bool
	Invalidated bool
}

// Prepared reports whether the audit is awaiting reveal.
func (a Audit) Prepared() bool { return a.StartTime == 0 }

// Revealed reports whether findings have been disclosed and escrow funded.
func (a Audit) Revealed() bool { return a.StartTime != 0 }

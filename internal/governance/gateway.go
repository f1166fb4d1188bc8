// Package governance abstracts the proposal system the protocol consults
// before allowing withdrawals. The core consumes two predicates: "is this
// proposal currently freezing withdrawals" and "has it invalidated vesting".
package governance

import (
	"context"

	dErrors "auditescrow/pkg/domain-errors"
	"auditescrow/pkg/ids"
)

var ErrProposalNotFound = dErrors.New(dErrors.CodeNotFound, "proposal not found")

// Gateway is the narrow boundary to a governance backend.
type Gateway interface {
	// Propose registers a new invalidation proposal and returns its id.
	// A fresh proposal starts in a frozen (pending) state.
	Propose(ctx context.Context, proposer ids.Address, description string) (ids.ProposalID, error)

	// Cancel withdraws a proposal; the freeze lifts, vesting resumes.
	Cancel(ctx context.Context, id ids.ProposalID) error

	// IsWithdrawFrozen is true while the proposal is pending or active.
	IsWithdrawFrozen(ctx context.Context, id ids.ProposalID) (bool, error)

	// IsVestingInvalidated is true once the proposal succeeded or executed.
	IsVestingInvalidated(ctx context.Context, id ids.ProposalID) (bool, error)
}

// Package token models the ERC-20-equivalent payment collaborator. The
// protocol consumes the narrow interface; the in-memory bank implements it
// with standard transfer/approve/transferFrom guards.
package token

import (
	"context"

	"github.com/holiman/uint256"

	dErrors "auditescrow/pkg/domain-errors"
	"auditescrow/pkg/ids"
)

var (
	// ErrInsufficientBalance and ErrInsufficientAllowance are surfaced to the
	// caller verbatim; retrying (after funding or re-approving) is the
	// caller's responsibility.
	ErrInsufficientBalance   = dErrors.New(dErrors.CodeInvariantViolation, "insufficient balance")
	ErrInsufficientAllowance = dErrors.New(dErrors.CodeInvariantViolation, "insufficient allowance")
)

// Token is the payment-token boundary. Caller identity is explicit because the
// engine executes on behalf of authenticated parties rather than a transaction
// sender. Amount-returned semantics are assumed; fee-on-transfer tokens are
// not supported.
type Token interface {
	Transfer(ctx context.Context, caller, to ids.Address, amount *uint256.Int) error
	TransferFrom(ctx context.Context, caller, from, to ids.Address, amount *uint256.Int) error
	Approve(ctx context.Context, caller, spender ids.Address, amount *uint256.Int) error
	Allowance(ctx context.Context, owner, spender ids.Address) (*uint256.Int, error)
	BalanceOf(ctx context.Context, account ids.Address) (*uint256.Int, error)
}

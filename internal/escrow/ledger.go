// Package escrow owns the per-beneficiary vesting-schedule ledger: schedule
// creation, authorized withdrawal of vested amounts, and governance-confirmed
// invalidation returning unvested principal to the auditee.
package escrow

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/holiman/uint256"

	"auditescrow/internal/domain"
	"auditescrow/internal/token"
	"auditescrow/internal/vesting"
	"auditescrow/pkg/fixedpoint"
	"auditescrow/pkg/ids"
)

// Ledger tracks vesting schedules and moves escrowed funds. The escrow
// account is the protocol's own token account; deposits land there at reveal
// and withdrawals pay out from it.
type Ledger struct {
	store   ScheduleStore
	tok     token.Token
	clk     clock.Clock
	log     *slog.Logger
	owner   ids.Address
	account ids.Address
}

func NewLedger(store ScheduleStore, tok token.Token, clk clock.Clock, log *slog.Logger, owner, account ids.Address) *Ledger {
	return &Ledger{store: store, tok: tok, clk: clk, log: log, owner: owner, account: account}
}

// Account returns the token account holding escrowed funds.
func (l *Ledger) Account() ids.Address { return l.account }

// CreateSchedule validates and persists one schedule. Fatal-to-the-call on
// bad parameters; nothing partial is written.
func (l *Ledger) CreateSchedule(ctx context.Context, schedule domain.VestingSchedule) (ids.ScheduleID, error) {
	if schedule.Duration == 0 {
		return ids.ScheduleID{}, ErrInvalidDuration
	}
	if schedule.TotalAllocated == nil || schedule.TotalAllocated.IsZero() {
		return ids.ScheduleID{}, ErrInvalidAmount
	}
	if schedule.SlicePeriod == 0 {
		return ids.ScheduleID{}, ErrInvalidSlicePeriod
	}
	if schedule.ID.IsZero() {
		schedule.ID = ids.ScheduleIDFor(schedule.Beneficiary, schedule.AuditID)
	}
	if schedule.Withdrawn == nil {
		schedule.Withdrawn = fixedpoint.Zero()
	}
	if _, err := l.store.Get(ctx, schedule.ID); err == nil {
		return ids.ScheduleID{}, ErrScheduleExists
	}
	if err := l.store.Save(ctx, schedule); err != nil {
		return ids.ScheduleID{}, err
	}
	return schedule.ID, nil
}

// Releasable computes what a withdrawal would pay out right now.
func (l *Ledger) Releasable(ctx context.Context, id ids.ScheduleID, paused bool) (*uint256.Int, error) {
	schedule, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return vesting.Releasable(schedule, l.clk.Now().Unix(), paused), nil
}

// Withdraw pays the releasable amount to the beneficiary. Zero releasable is
// a no-op, not an error, so automated agents can poll without special-casing.
// The withdrawn counter is bumped before the token transfer: a failing or
// re-entrant transfer can never observe stale state and double-withdraw.
func (l *Ledger) Withdraw(ctx context.Context, caller ids.Address, id ids.ScheduleID, paused bool) (*uint256.Int, error) {
	schedule, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller != schedule.Beneficiary && caller != l.owner {
		return nil, ErrUnauthorized
	}
	releasable := vesting.Releasable(schedule, l.clk.Now().Unix(), paused)
	if releasable.IsZero() {
		return fixedpoint.Zero(), nil
	}

	schedule.Withdrawn = new(uint256.Int).Add(schedule.Withdrawn, releasable)
	if err := l.store.Save(ctx, schedule); err != nil {
		return nil, err
	}
	if err := l.tok.Transfer(ctx, l.account, schedule.Beneficiary, releasable); err != nil {
		return nil, err
	}

	l.log.InfoContext(ctx, "withdrawal paid",
		"schedule_id", schedule.ID.String(),
		"beneficiary", string(schedule.Beneficiary),
		"amount", fixedpoint.String(releasable),
	)
	return releasable, nil
}

// Invalidate zeroes every schedule of an audit and returns the combined
// unwithdrawn remainder to the auditee. One-time per audit: a second call
// finds only zeroed allocations and moves nothing.
func (l *Ledger) Invalidate(ctx context.Context, auditID ids.AuditID, auditee ids.Address) (*uint256.Int, error) {
	schedules, err := l.store.ListByAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}

	refund := fixedpoint.Zero()
	for _, schedule := range schedules {
		remainder := fixedpoint.Sub(schedule.TotalAllocated, schedule.Withdrawn)
		if remainder.IsZero() && schedule.TotalAllocated.IsZero() {
			continue
		}
		refund = new(uint256.Int).Add(refund, remainder)
		schedule.TotalAllocated = fixedpoint.Zero()
		if err := l.store.Save(ctx, schedule); err != nil {
			return nil, err
		}
	}
	if refund.IsZero() {
		return refund, nil
	}
	if err := l.tok.Transfer(ctx, l.account, auditee, refund); err != nil {
		return nil, err
	}

	l.log.InfoContext(ctx, "escrow invalidated",
		"audit_id", auditID.String(),
		"refund", fixedpoint.String(refund),
	)
	return refund, nil
}

// SchedulesForAudit lists the audit's schedules.
func (l *Ledger) SchedulesForAudit(ctx context.Context, auditID ids.AuditID) ([]domain.VestingSchedule, error) {
	return l.store.ListByAudit(ctx, auditID)
}

// Schedule returns one schedule by id.
func (l *Ledger) Schedule(ctx context.Context, id ids.ScheduleID) (domain.VestingSchedule, error) {
	return l.store.Get(ctx, id)
}

// ScheduleCount returns the global number of schedules.
func (l *Ledger) ScheduleCount(ctx context.Context) (int, error) {
	return l.store.Count(ctx)
}

// ScheduleCountByBeneficiary returns how many schedules name the beneficiary.
func (l *Ledger) ScheduleCountByBeneficiary(ctx context.Context, beneficiary ids.Address) (int, error) {
	return l.store.CountByBeneficiary(ctx, beneficiary)
}

// NextScheduleIDForHolder derives the legacy holder-index key the beneficiary's
// next schedule would get under the index-based scheme.
func (l *Ledger) NextScheduleIDForHolder(ctx context.Context, beneficiary ids.Address) (ids.ScheduleID, error) {
	count, err := l.store.CountByBeneficiary(ctx, beneficiary)
	if err != nil {
		return ids.ScheduleID{}, err
	}
	return ids.ScheduleIDForHolderIndex(beneficiary, uint64(count)), nil
}

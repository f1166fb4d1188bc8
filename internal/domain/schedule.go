package domain

import (
	"github.com/holiman/uint256"

	"auditescrow/pkg/ids"
)

// VestingSchedule is the linear release-over-time record for one beneficiary
// of one audit. Created at reveal, mutated only by withdrawals and
// invalidation.
type VestingSchedule struct {
	ID          ids.ScheduleID
	AuditID     ids.AuditID
	Beneficiary ids.Address

	// TotalAllocated and Withdrawn are in 18-decimal base units.
	// Withdrawn <= TotalAllocated always; invalidation zeroes TotalAllocated
	// so no further amount ever becomes releasable.
	TotalAllocated *uint256.Int
	Withdrawn      *uint256.Int

	Start    int64
	Cliff    uint64
	Duration uint64
	// SlicePeriod is the vesting granularity in seconds: amounts vest in
	// whole-slice steps. Must be >= 1; 1 means continuous per-second vesting.
	SlicePeriod uint64
	Token       ids.Address
}

// Exhausted reports whether the full allocation has been paid out.
func (s VestingSchedule) Exhausted() bool {
	return s.Withdrawn.Cmp(s.TotalAllocated) >= 0
}

// Clone returns a deep copy so stores can hand out records without aliasing
// the big-int fields.
func (s VestingSchedule) Clone() VestingSchedule {
	out := s
	out.TotalAllocated = new(uint256.Int).Set(s.TotalAllocated)
	out.Withdrawn = new(uint256.Int).Set(s.Withdrawn)
	return out
}

// Package vesting holds the pure linear-vesting-with-cliff arithmetic. No
// side effects, no clock: callers pass the observation time explicitly.
package vesting

import (
	"github.com/holiman/uint256"

	"auditescrow/internal/domain"
	"auditescrow/pkg/fixedpoint"
)

// VestedAmount returns how much of total has vested at now for a schedule
// anchored at start (unix seconds) with the given cliff and duration
// (seconds). total is already in base units; the scale is applied before the
// division so small totals over long durations do not truncate to zero.
func VestedAmount(total *uint256.Int, start int64, cliff, duration uint64, now int64) *uint256.Int {
	if now < start+int64(cliff) {
		return fixedpoint.Zero()
	}
	if now >= start+int64(duration) {
		return new(uint256.Int).Set(total)
	}
	elapsed := uint64(now - start)
	return fixedpoint.MulDiv(total, elapsed, duration)
}

// VestedAmountSliced is VestedAmount with vesting granularity: elapsed time is
// rounded down to whole multiples of slicePeriod before the proportional
// split. The cliff gate uses the unrounded time. slicePeriod 0 or 1
// degenerates to continuous per-second vesting.
func VestedAmountSliced(total *uint256.Int, start int64, cliff, duration, slicePeriod uint64, now int64) *uint256.Int {
	if now < start+int64(cliff) {
		return fixedpoint.Zero()
	}
	if now >= start+int64(duration) {
		return new(uint256.Int).Set(total)
	}
	elapsed := uint64(now - start)
	if slicePeriod > 1 {
		elapsed = elapsed / slicePeriod * slicePeriod
	}
	return fixedpoint.MulDiv(total, elapsed, duration)
}

// Releasable returns the amount a beneficiary could withdraw from s at now.
// A paused schedule releases nothing regardless of elapsed time; the clamp to
// zero covers invalidated schedules whose allocation was zeroed below the
// already-withdrawn amount.
func Releasable(s domain.VestingSchedule, now int64, paused bool) *uint256.Int {
	if paused {
		return fixedpoint.Zero()
	}
	vested := VestedAmountSliced(s.TotalAllocated, s.Start, s.Cliff, s.Duration, s.SlicePeriod, now)
	return fixedpoint.Sub(vested, s.Withdrawn)
}

package escrow

import dErrors "auditescrow/pkg/domain-errors"

var (
	// Parameter validation at schedule creation. The whole operation aborts;
	// no partial schedule is ever created.
	ErrInvalidDuration    = dErrors.New(dErrors.CodeBadRequest, "duration must be > 0")
	ErrInvalidAmount      = dErrors.New(dErrors.CodeBadRequest, "amount must be > 0")
	ErrInvalidSlicePeriod = dErrors.New(dErrors.CodeBadRequest, "slice period must be >= 1")

	ErrUnauthorized     = dErrors.New(dErrors.CodeUnauthorized, "only the beneficiary or the protocol owner can withdraw")
	ErrScheduleNotFound = dErrors.New(dErrors.CodeNotFound, "vesting schedule not found")
	ErrScheduleExists   = dErrors.New(dErrors.CodeConflict, "vesting schedule already exists")
)

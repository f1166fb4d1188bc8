package protocol

import dErrors "auditescrow/pkg/domain-errors"

var (
	ErrAuditNotFound      = dErrors.New(dErrors.CodeNotFound, "audit not found")
	ErrDuplicateAudit     = dErrors.New(dErrors.CodeConflict, "audit already exists, vary the salt")
	ErrWrongCaller        = dErrors.New(dErrors.CodeUnauthorized, "caller is not the auditee")
	ErrAlreadyRevealed    = dErrors.New(dErrors.CodeConflict, "findings already revealed")
	ErrIdentifierMismatch = dErrors.New(dErrors.CodeUnauthorized, "only the auditee can mint this deliverable")
	ErrNotRevealed        = dErrors.New(dErrors.CodeConflict, "findings not yet revealed")
	ErrAlreadyProposed    = dErrors.New(dErrors.CodeConflict, "invalidation already proposed for this audit")
	ErrNoProposal         = dErrors.New(dErrors.CodeConflict, "no invalidation proposal for this audit")
	ErrNotInvalidated     = dErrors.New(dErrors.CodeConflict, "governance has not confirmed the invalidation")
	ErrNotOwner           = dErrors.New(dErrors.CodeUnauthorized, "caller is not the protocol owner")
	ErrNoAuditors         = dErrors.New(dErrors.CodeBadRequest, "at least one auditor is required")
	ErrDuplicateAuditor   = dErrors.New(dErrors.CodeBadRequest, "auditors must be distinct")
)

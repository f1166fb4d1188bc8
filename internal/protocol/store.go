package protocol

import (
	"context"

	"auditescrow/internal/domain"
	"auditescrow/pkg/ids"
)

// AuditStore persists audit aggregates. Save is an upsert: lifecycle
// transitions rewrite the same record.
type AuditStore interface {
	Save(ctx context.Context, audit domain.Audit) error
	Get(ctx context.Context, id ids.AuditID) (domain.Audit, error)
}

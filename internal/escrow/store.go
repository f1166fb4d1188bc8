package escrow

import (
	"context"

	"auditescrow/internal/domain"
	"auditescrow/pkg/ids"
)

// ScheduleStore is interface-driven so the ledger stays testable and the
// in-memory and postgres implementations swap without touching business code.
type ScheduleStore interface {
	Save(ctx context.Context, schedule domain.VestingSchedule) error
	Get(ctx context.Context, id ids.ScheduleID) (domain.VestingSchedule, error)
	ListByAudit(ctx context.Context, auditID ids.AuditID) ([]domain.VestingSchedule, error)
	Count(ctx context.Context) (int, error)
	CountByBeneficiary(ctx context.Context, beneficiary ids.Address) (int, error)
}

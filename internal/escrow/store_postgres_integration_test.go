//go:build integration

package escrow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"auditescrow/internal/domain"
	"auditescrow/internal/escrow"
	"auditescrow/internal/protocol"
	"auditescrow/pkg/fixedpoint"
	"auditescrow/pkg/ids"
	"auditescrow/pkg/testutil/containers"
)

type PostgresScheduleStoreSuite struct {
	suite.Suite
	store   *escrow.PostgresScheduleStore
	ctx     context.Context
	auditID ids.AuditID
}

func TestPostgresScheduleStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresScheduleStoreSuite))
}

func (s *PostgresScheduleStoreSuite) SetupSuite() {
	db := containers.NewPostgresDB(s.T())
	s.store = escrow.NewPostgresScheduleStore(db)
	s.ctx = context.Background()

	// Schedules reference their audit row.
	s.auditID = ids.GenerateAuditID("auditee", []ids.Address{"auditor-a"}, 1000, 10000, "d", 100_000, "tok", "s")
	audits := protocol.NewPostgresAuditStore(db)
	s.Require().NoError(audits.Save(s.ctx, domain.Audit{
		ID:           s.auditID,
		Auditee:      "auditee",
		Auditors:     []ids.Address{"auditor-a"},
		Cliff:        1000,
		Duration:     10000,
		Details:      "d",
		Amount:       100_000,
		PaymentToken: "tok",
	}))
}

func (s *PostgresScheduleStoreSuite) newSchedule(beneficiary ids.Address) domain.VestingSchedule {
	return domain.VestingSchedule{
		ID:             ids.ScheduleIDFor(beneficiary, s.auditID),
		AuditID:        s.auditID,
		Beneficiary:    beneficiary,
		TotalAllocated: fixedpoint.Scale(50_000),
		Withdrawn:      fixedpoint.Zero(),
		Start:          1_700_000_000,
		Cliff:          1000,
		Duration:       10000,
		SlicePeriod:    1,
		Token:          "tok",
	}
}

func (s *PostgresScheduleStoreSuite) TestRoundTripAndUpsert() {
	schedule := s.newSchedule("auditor-a")
	s.Require().NoError(s.store.Save(s.ctx, schedule))

	got, err := s.store.Get(s.ctx, schedule.ID)
	s.Require().NoError(err)
	s.Equal(schedule.Beneficiary, got.Beneficiary)
	s.Equal(fixedpoint.String(schedule.TotalAllocated), fixedpoint.String(got.TotalAllocated))
	s.Equal(schedule.Start, got.Start)
	s.Equal(schedule.SlicePeriod, got.SlicePeriod)

	// Withdrawals rewrite the same row.
	schedule.Withdrawn = fixedpoint.Scale(5_000)
	s.Require().NoError(s.store.Save(s.ctx, schedule))
	got, err = s.store.Get(s.ctx, schedule.ID)
	s.Require().NoError(err)
	s.Equal(fixedpoint.String(fixedpoint.Scale(5_000)), fixedpoint.String(got.Withdrawn))

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresScheduleStoreSuite) TestNotFound() {
	_, err := s.store.Get(s.ctx, ids.ScheduleID{0xff})
	s.Require().ErrorIs(err, escrow.ErrScheduleNotFound)
}

func (s *PostgresScheduleStoreSuite) TestListByAudit() {
	s.Require().NoError(s.store.Save(s.ctx, s.newSchedule("auditor-a")))
	s.Require().NoError(s.store.Save(s.ctx, s.newSchedule("auditor-b")))

	schedules, err := s.store.ListByAudit(s.ctx, s.auditID)
	s.Require().NoError(err)
	s.Len(schedules, 2)

	n, err := s.store.CountByBeneficiary(s.ctx, "auditor-b")
	s.Require().NoError(err)
	s.Equal(1, n)
}

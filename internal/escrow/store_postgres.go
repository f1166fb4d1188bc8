package escrow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auditescrow/internal/domain"
	"auditescrow/pkg/fixedpoint"
	"auditescrow/pkg/ids"
)

// PostgresScheduleStore persists schedules in the vesting_schedules table.
// Amounts are NUMERIC(78,0) columns travelling as decimal strings; Save is an
// upsert because withdrawals rewrite the same row.
type PostgresScheduleStore struct {
	db *sql.DB
}

func NewPostgresScheduleStore(db *sql.DB) *PostgresScheduleStore {
	return &PostgresScheduleStore{db: db}
}

func (s *PostgresScheduleStore) Save(ctx context.Context, schedule domain.VestingSchedule) error {
	query := `
		INSERT INTO vesting_schedules (
			id, audit_id, beneficiary, total_allocated, withdrawn,
			start_time, cliff, duration, slice_period, token
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET total_allocated = EXCLUDED.total_allocated,
		    withdrawn       = EXCLUDED.withdrawn
	`
	_, err := s.db.ExecContext(ctx, query,
		schedule.ID.String(),
		schedule.AuditID.String(),
		string(schedule.Beneficiary),
		fixedpoint.String(schedule.TotalAllocated),
		fixedpoint.String(schedule.Withdrawn),
		schedule.Start,
		schedule.Cliff,
		schedule.Duration,
		schedule.SlicePeriod,
		string(schedule.Token),
	)
	if err != nil {
		return fmt.Errorf("upsert vesting schedule: %w", err)
	}
	return nil
}

func (s *PostgresScheduleStore) Get(ctx context.Context, id ids.ScheduleID) (domain.VestingSchedule, error) {
	query := `
		SELECT id, audit_id, beneficiary, total_allocated, withdrawn,
		       start_time, cliff, duration, slice_period, token
		FROM vesting_schedules
		WHERE id = $1
	`
	schedule, err := scanSchedule(s.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VestingSchedule{}, ErrScheduleNotFound
	}
	return schedule, err
}

func (s *PostgresScheduleStore) ListByAudit(ctx context.Context, auditID ids.AuditID) ([]domain.VestingSchedule, error) {
	query := `
		SELECT id, audit_id, beneficiary, total_allocated, withdrawn,
		       start_time, cliff, duration, slice_period, token
		FROM vesting_schedules
		WHERE audit_id = $1
		ORDER BY beneficiary
	`
	rows, err := s.db.QueryContext(ctx, query, auditID.String())
	if err != nil {
		return nil, fmt.Errorf("query vesting schedules: %w", err)
	}
	defer rows.Close()

	var out []domain.VestingSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vesting schedules: %w", err)
	}
	return out, nil
}

func (s *PostgresScheduleStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vesting_schedules`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count vesting schedules: %w", err)
	}
	return n, nil
}

func (s *PostgresScheduleStore) CountByBeneficiary(ctx context.Context, beneficiary ids.Address) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vesting_schedules WHERE beneficiary = $1`,
		string(beneficiary),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count vesting schedules by beneficiary: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (domain.VestingSchedule, error) {
	var (
		schedule               domain.VestingSchedule
		idStr, auditIDStr      string
		beneficiary, token     string
		totalStr, withdrawnStr string
	)
	err := row.Scan(
		&idStr, &auditIDStr, &beneficiary, &totalStr, &withdrawnStr,
		&schedule.Start, &schedule.Cliff, &schedule.Duration, &schedule.SlicePeriod, &token,
	)
	if err != nil {
		return domain.VestingSchedule{}, err
	}
	if schedule.ID, err = ids.ParseScheduleID(idStr); err != nil {
		return domain.VestingSchedule{}, err
	}
	if schedule.AuditID, err = ids.ParseAuditID(auditIDStr); err != nil {
		return domain.VestingSchedule{}, err
	}
	if schedule.TotalAllocated, err = fixedpoint.Parse(totalStr); err != nil {
		return domain.VestingSchedule{}, err
	}
	if schedule.Withdrawn, err = fixedpoint.Parse(withdrawnStr); err != nil {
		return domain.VestingSchedule{}, err
	}
	schedule.Beneficiary = ids.Address(beneficiary)
	schedule.Token = ids.Address(token)
	return schedule, nil
}

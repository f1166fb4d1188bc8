package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects through the pgx stdlib driver so stores can stay on
// database/sql with $1 placeholders.
func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Idempotent; safe to run at every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS audits (
	id                       TEXT PRIMARY KEY,
	auditee                  TEXT NOT NULL,
	auditors                 JSONB NOT NULL,
	cliff                    BIGINT NOT NULL,
	duration                 BIGINT NOT NULL,
	details                  TEXT NOT NULL,
	amount                   BIGINT NOT NULL,
	payment_token            TEXT NOT NULL,
	start_time               BIGINT NOT NULL DEFAULT 0,
	deliverable_token_id     TEXT NOT NULL DEFAULT '',
	invalidation_proposal_id BIGINT NOT NULL DEFAULT 0,
	active                   BOOLEAN NOT NULL DEFAULT FALSE,
	invalidated              BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS vesting_schedules (
	id              TEXT PRIMARY KEY,
	audit_id        TEXT NOT NULL REFERENCES audits (id),
	beneficiary     TEXT NOT NULL,
	total_allocated NUMERIC(78, 0) NOT NULL,
	withdrawn       NUMERIC(78, 0) NOT NULL,
	start_time      BIGINT NOT NULL,
	cliff           BIGINT NOT NULL,
	duration        BIGINT NOT NULL,
	slice_period    BIGINT NOT NULL DEFAULT 1,
	token           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vesting_schedules_audit ON vesting_schedules (audit_id);
CREATE INDEX IF NOT EXISTS idx_vesting_schedules_beneficiary ON vesting_schedules (beneficiary);
`

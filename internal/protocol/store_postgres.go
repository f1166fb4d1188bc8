package protocol

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"auditescrow/internal/domain"
	"auditescrow/pkg/ids"
)

// PostgresAuditStore persists audits in the audits table. The auditor list
// rides in a JSONB column; ordering matters (it feeds the deterministic id)
// and JSON arrays preserve it.
type PostgresAuditStore struct {
	db *sql.DB
}

func NewPostgresAuditStore(db *sql.DB) *PostgresAuditStore {
	return &PostgresAuditStore{db: db}
}

func (s *PostgresAuditStore) Save(ctx context.Context, audit domain.Audit) error {
	query := `
		INSERT INTO audits (
			id, auditee, auditors, cliff, duration, details, amount,
			payment_token, start_time, deliverable_token_id,
			invalidation_proposal_id, active, invalidated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE
		SET start_time               = EXCLUDED.start_time,
		    deliverable_token_id     = EXCLUDED.deliverable_token_id,
		    invalidation_proposal_id = EXCLUDED.invalidation_proposal_id,
		    active                   = EXCLUDED.active,
		    invalidated              = EXCLUDED.invalidated
	`
	auditors, err := json.Marshal(audit.Auditors)
	if err != nil {
		return fmt.Errorf("marshal auditors: %w", err)
	}
	tokenID := ""
	if !audit.DeliverableTokenID.IsZero() {
		tokenID = audit.DeliverableTokenID.String()
	}
	_, err = s.db.ExecContext(ctx, query,
		audit.ID.String(),
		string(audit.Auditee),
		auditors,
		audit.Cliff,
		audit.Duration,
		audit.Details,
		audit.Amount,
		string(audit.PaymentToken),
		audit.StartTime,
		tokenID,
		uint64(audit.InvalidationProposalID),
		audit.Active,
		audit.Invalidated,
	)
	if err != nil {
		return fmt.Errorf("upsert audit: %w", err)
	}
	return nil
}

func (s *PostgresAuditStore) Get(ctx context.Context, id ids.AuditID) (domain.Audit, error) {
	query := `
		SELECT id, auditee, auditors, cliff, duration, details, amount,
		       payment_token, start_time, deliverable_token_id,
		       invalidation_proposal_id, active, invalidated
		FROM audits
		WHERE id = $1
	`
	var (
		audit             domain.Audit
		idStr, tokenIDStr string
		auditee, payToken string
		auditorsRaw       []byte
		proposalID        uint64
	)
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr, &auditee, &auditorsRaw, &audit.Cliff, &audit.Duration,
		&audit.Details, &audit.Amount, &payToken, &audit.StartTime,
		&tokenIDStr, &proposalID, &audit.Active, &audit.Invalidated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Audit{}, ErrAuditNotFound
	}
	if err != nil {
		return domain.Audit{}, fmt.Errorf("query audit: %w", err)
	}
	if audit.ID, err = ids.ParseAuditID(idStr); err != nil {
		return domain.Audit{}, err
	}
	if tokenIDStr != "" {
		if audit.DeliverableTokenID, err = ids.ParseTokenID(tokenIDStr); err != nil {
			return domain.Audit{}, err
		}
	}
	if err := json.Unmarshal(auditorsRaw, &audit.Auditors); err != nil {
		return domain.Audit{}, fmt.Errorf("unmarshal auditors: %w", err)
	}
	audit.Auditee = ids.Address(auditee)
	audit.PaymentToken = ids.Address(payToken)
	audit.InvalidationProposalID = ids.ProposalID(proposalID)
	return audit, nil
}

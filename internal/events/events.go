// Package events carries the protocol's lifecycle signals. Emission is
// best-effort observability: a failing publisher never rolls back protocol
// state.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAuditCreated         Type = "audit.created"
	TypeFindingsRevealed     Type = "audit.findings_revealed"
	TypeWithdrawal           Type = "schedule.withdrawal"
	TypeInvalidationProposed Type = "audit.invalidation_proposed"
	TypeProposalCanceled     Type = "audit.proposal_canceled"
	TypeAuditInvalidated     Type = "audit.invalidated"
)

// Event is transport-agnostic so sinks can fan out. Identifier fields are
// strings to keep the wire format stable across key schemes.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Type        Type      `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AuditID     string    `json:"audit_id,omitempty"`
	ScheduleID  string    `json:"schedule_id,omitempty"`
	TokenID     string    `json:"token_id,omitempty"`
	ProposalID  uint64    `json:"proposal_id,omitempty"`
	Beneficiary string    `json:"beneficiary,omitempty"`
	Amount      string    `json:"amount,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

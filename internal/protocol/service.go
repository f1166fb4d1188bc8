// Package protocol implements the audit lifecycle: the commit-reveal state
// machine binding an off-chain-negotiated agreement to escrowed payment, a
// minted deliverable token, and a governance-gated invalidation path.
package protocol

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"auditescrow/internal/deliverable"
	"auditescrow/internal/domain"
	"auditescrow/internal/escrow"
	"auditescrow/internal/events"
	"auditescrow/internal/governance"
	"auditescrow/internal/platform/metrics"
	"auditescrow/internal/token"
	"auditescrow/pkg/fixedpoint"
	"auditescrow/pkg/ids"
)

// Service is the protocol facade. Every public operation is serialized per
// audit: operations on unrelated audits never block each other.
type Service struct {
	audits       AuditStore
	ledger       *escrow.Ledger
	gateway      governance.Gateway
	deliverables *deliverable.Registry
	tok          token.Token
	events       events.Publisher
	metrics      *metrics.Metrics
	log          *slog.Logger
	clk          clock.Clock

	// owner may withdraw on behalf of beneficiaries, cancel proposals, and
	// finalize invalidations. self is the protocol's own identity: it holds
	// escrowed funds and gates the deliverable registry.
	owner ids.Address
	self  ids.Address

	locks *auditLocks
}

type Config struct {
	Audits       AuditStore
	Ledger       *escrow.Ledger
	Gateway      governance.Gateway
	Deliverables *deliverable.Registry
	Token        token.Token
	Events       events.Publisher
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	Clock        clock.Clock
	Owner        ids.Address
}

func NewService(cfg Config) *Service {
	return &Service{
		audits:       cfg.Audits,
		ledger:       cfg.Ledger,
		gateway:      cfg.Gateway,
		deliverables: cfg.Deliverables,
		tok:          cfg.Token,
		events:       cfg.Events,
		metrics:      cfg.Metrics,
		log:          cfg.Logger,
		clk:          cfg.Clock,
		owner:        cfg.Owner,
		self:         cfg.Ledger.Account(),
		locks:        newAuditLocks(),
	}
}

// PrepareParams is the agreement tuple fixed at preparation time.
type PrepareParams struct {
	Auditors     []ids.Address
	Cliff        uint64
	Duration     uint64
	Details      string
	Amount       uint64
	PaymentToken ids.Address
	Salt         string
}

// GenerateAuditID recomputes the deterministic identifier for an agreement
// without side effects.
func GenerateAuditID(auditee ids.Address, p PrepareParams) ids.AuditID {
	return ids.GenerateAuditID(auditee, p.Auditors, p.Cliff, p.Duration, p.Details, p.Amount, p.PaymentToken, p.Salt)
}

// PrepareAudit registers an agreement under its deterministic id. The caller
// becomes the auditee. Identical tuples collide by design; vary the salt to
// create a distinct audit.
func (s *Service) PrepareAudit(ctx context.Context, caller ids.Address, p PrepareParams) (ids.AuditID, error) {
	defer s.observe("prepare_audit")()

	if len(p.Auditors) == 0 {
		return ids.AuditID{}, ErrNoAuditors
	}
	// Schedule keys are derived from (auditor, auditID); a repeated auditor
	// would collide at reveal and leave the audit unrevealable.
	seen := make(map[ids.Address]struct{}, len(p.Auditors))
	for _, auditor := range p.Auditors {
		if _, ok := seen[auditor]; ok {
			return ids.AuditID{}, ErrDuplicateAuditor
		}
		seen[auditor] = struct{}{}
	}
	auditID := GenerateAuditID(caller, p)

	unlock := s.locks.lock(auditID)
	defer unlock()

	if _, err := s.audits.Get(ctx, auditID); err == nil {
		return ids.AuditID{}, ErrDuplicateAudit
	} else if !errors.Is(err, ErrAuditNotFound) {
		return ids.AuditID{}, err
	}
	audit := domain.Audit{
		ID:           auditID,
		Auditee:      caller,
		Auditors:     p.Auditors,
		Cliff:        p.Cliff,
		Duration:     p.Duration,
		Details:      p.Details,
		Amount:       p.Amount,
		PaymentToken: p.PaymentToken,
	}
	if err := s.audits.Save(ctx, audit); err != nil {
		return ids.AuditID{}, err
	}

	s.metrics.AuditsPrepared.Inc()
	s.emit(ctx, events.Event{Type: events.TypeAuditCreated, AuditID: auditID.String()})
	s.log.InfoContext(ctx, "audit prepared",
		"audit_id", auditID.String(),
		"auditee", string(caller),
		"auditors", len(p.Auditors),
	)
	return auditID, nil
}

// RevealFindings discloses the findings, pulls the escrow deposit, mints the
// deliverable token to the auditee, and instantiates one vesting schedule per
// auditor. The vesting clock for every schedule starts now.
//
// expectedTokenID, when nonzero, must match the identifier recomputed from
// (auditID, findings); a mismatch means the caller is trying to mint a
// deliverable for findings they did not commit to.
func (s *Service) RevealFindings(ctx context.Context, caller ids.Address, auditID ids.AuditID, findings []string, expectedTokenID ids.TokenID) (ids.TokenID, error) {
	defer s.observe("reveal_findings")()

	unlock := s.locks.lock(auditID)
	defer unlock()

	audit, err := s.audits.Get(ctx, auditID)
	if err != nil {
		return ids.TokenID{}, err
	}
	if caller != audit.Auditee {
		return ids.TokenID{}, ErrWrongCaller
	}
	if audit.Revealed() {
		return ids.TokenID{}, ErrAlreadyRevealed
	}

	tokenID := deliverable.GenerateID(auditID, findings)
	if !expectedTokenID.IsZero() && expectedTokenID != tokenID {
		return ids.TokenID{}, ErrIdentifierMismatch
	}

	// Deposit preconditions are verified before any state is written: once the
	// schedules exist the transfer must not be able to fail.
	scaled := fixedpoint.Scale(audit.Amount)
	allowance, err := s.tok.Allowance(ctx, audit.Auditee, s.self)
	if err != nil {
		return ids.TokenID{}, err
	}
	if allowance.Cmp(scaled) < 0 {
		return ids.TokenID{}, token.ErrInsufficientAllowance
	}
	balance, err := s.tok.BalanceOf(ctx, audit.Auditee)
	if err != nil {
		return ids.TokenID{}, err
	}
	if balance.Cmp(scaled) < 0 {
		return ids.TokenID{}, token.ErrInsufficientBalance
	}
	if audit.Duration == 0 {
		return ids.TokenID{}, escrow.ErrInvalidDuration
	}
	allocation := fixedpoint.DivUint(scaled, uint64(len(audit.Auditors)))
	if allocation.IsZero() {
		return ids.TokenID{}, escrow.ErrInvalidAmount
	}

	now := s.clk.Now().Unix()
	audit.StartTime = now
	audit.DeliverableTokenID = tokenID
	// A zero-cliff audit is never flagged active, reveal or not.
	audit.Active = audit.Cliff > 0

	for _, auditor := range audit.Auditors {
		_, err := s.ledger.CreateSchedule(ctx, domain.VestingSchedule{
			AuditID:        auditID,
			Beneficiary:    auditor,
			TotalAllocated: new(uint256.Int).Set(allocation),
			Withdrawn:      fixedpoint.Zero(),
			Start:          now,
			Cliff:          audit.Cliff,
			Duration:       audit.Duration,
			SlicePeriod:    1,
			Token:          audit.PaymentToken,
		})
		if err != nil {
			return ids.TokenID{}, err
		}
	}
	if err := s.audits.Save(ctx, audit); err != nil {
		return ids.TokenID{}, err
	}

	// Bookkeeping is complete; only now touch external collaborators.
	if err := s.tok.TransferFrom(ctx, s.self, audit.Auditee, s.self, scaled); err != nil {
		return ids.TokenID{}, err
	}
	if err := s.deliverables.Mint(s.self, audit.Auditee, tokenID); err != nil {
		return ids.TokenID{}, err
	}

	s.metrics.FindingsRevealed.Inc()
	s.emit(ctx, events.Event{
		Type:    events.TypeFindingsRevealed,
		AuditID: auditID.String(),
		TokenID: tokenID.String(),
		Amount:  fixedpoint.String(scaled),
	})
	s.log.InfoContext(ctx, "findings revealed",
		"audit_id", auditID.String(),
		"token_id", tokenID.String(),
		"schedules", len(audit.Auditors),
	)
	return tokenID, nil
}

// Withdraw pays out whatever is releasable on the schedule. A paused or
// invalidated audit releases nothing; zero releasable is a no-op rather than
// an error so agents can poll. If governance has confirmed an invalidation
// that has not been finalized yet, this call finalizes it first.
func (s *Service) Withdraw(ctx context.Context, caller ids.Address, scheduleID ids.ScheduleID) (*uint256.Int, error) {
	defer s.observe("withdraw")()

	schedule, err := s.ledger.Schedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(schedule.AuditID)
	defer unlock()

	audit, err := s.audits.Get(ctx, schedule.AuditID)
	if err != nil {
		return nil, err
	}
	if resolved, err := s.resolveInvalidation(ctx, &audit); err != nil {
		return nil, err
	} else if resolved {
		return fixedpoint.Zero(), nil
	}

	paused, err := s.pausedLocked(ctx, audit)
	if err != nil {
		return nil, err
	}
	amount, err := s.ledger.Withdraw(ctx, caller, scheduleID, paused)
	if err != nil {
		return nil, err
	}
	if !amount.IsZero() {
		s.metrics.Withdrawals.Inc()
		s.emit(ctx, events.Event{
			Type:        events.TypeWithdrawal,
			AuditID:     audit.ID.String(),
			ScheduleID:  scheduleID.String(),
			Beneficiary: string(schedule.Beneficiary),
			Amount:      fixedpoint.String(amount),
		})
	}
	return amount, nil
}

// ComputeReleasable reports what a withdrawal would pay right now, honoring
// pause and invalidation without mutating anything.
func (s *Service) ComputeReleasable(ctx context.Context, scheduleID ids.ScheduleID) (*uint256.Int, error) {
	schedule, err := s.ledger.Schedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	audit, err := s.audits.Get(ctx, schedule.AuditID)
	if err != nil {
		return nil, err
	}
	if audit.Invalidated {
		return fixedpoint.Zero(), nil
	}
	if audit.InvalidationProposalID != 0 {
		invalidated, err := s.gateway.IsVestingInvalidated(ctx, audit.InvalidationProposalID)
		if err != nil {
			return nil, err
		}
		if invalidated {
			return fixedpoint.Zero(), nil
		}
	}
	paused, err := s.pausedLocked(ctx, audit)
	if err != nil {
		return nil, err
	}
	return s.ledger.Releasable(ctx, scheduleID, paused)
}

// IsWithdrawPaused reports whether an unresolved invalidation proposal is
// currently holding this audit's withdrawals.
func (s *Service) IsWithdrawPaused(ctx context.Context, auditID ids.AuditID) (bool, error) {
	audit, err := s.audits.Get(ctx, auditID)
	if err != nil {
		return false, err
	}
	return s.pausedLocked(ctx, audit)
}

// ProposeInvalidation opens a governance proposal to nullify the audit and
// freezes withdrawals until it resolves. One shot per audit: the proposal id
// is never cleared, so a second proposal is rejected even after a cancel.
func (s *Service) ProposeInvalidation(ctx context.Context, caller ids.Address, auditID ids.AuditID, description string) (ids.ProposalID, error) {
	defer s.observe("propose_invalidation")()

	unlock := s.locks.lock(auditID)
	defer unlock()

	audit, err := s.audits.Get(ctx, auditID)
	if err != nil {
		return 0, err
	}
	if caller != audit.Auditee && caller != s.owner {
		return 0, ErrWrongCaller
	}
	if !audit.Revealed() {
		return 0, ErrNotRevealed
	}
	if audit.InvalidationProposalID != 0 {
		return 0, ErrAlreadyProposed
	}

	proposalID, err := s.gateway.Propose(ctx, caller, description)
	if err != nil {
		return 0, err
	}
	audit.InvalidationProposalID = proposalID
	if err := s.audits.Save(ctx, audit); err != nil {
		return 0, err
	}

	s.metrics.InvalidationsProposed.Inc()
	s.emit(ctx, events.Event{
		Type:       events.TypeInvalidationProposed,
		AuditID:    auditID.String(),
		ProposalID: uint64(proposalID),
	})
	s.log.InfoContext(ctx, "invalidation proposed",
		"audit_id", auditID.String(),
		"proposal_id", uint64(proposalID),
	)
	return proposalID, nil
}

// CancelProposal withdraws the pending invalidation proposal. The pause lifts
// once the gateway stops reporting the proposal frozen; the stored proposal
// id remains as a permanent record.
func (s *Service) CancelProposal(ctx context.Context, caller ids.Address, auditID ids.AuditID) error {
	defer s.observe("cancel_proposal")()

	if caller != s.owner {
		return ErrNotOwner
	}

	unlock := s.locks.lock(auditID)
	defer unlock()

	audit, err := s.audits.Get(ctx, auditID)
	if err != nil {
		return err
	}
	if audit.InvalidationProposalID == 0 {
		return ErrNoProposal
	}
	if err := s.gateway.Cancel(ctx, audit.InvalidationProposalID); err != nil {
		return err
	}

	s.emit(ctx, events.Event{
		Type:       events.TypeProposalCanceled,
		AuditID:    auditID.String(),
		ProposalID: uint64(audit.InvalidationProposalID),
	})
	return nil
}

// FinalizeInvalidation burns the deliverable token and refunds the
// unwithdrawn remainder to the auditee once governance has confirmed the
// invalidation. Burn and refund are atomic from the caller's point of view:
// both happen under the audit lock or the call fails without either.
func (s *Service) FinalizeInvalidation(ctx context.Context, caller ids.Address, auditID ids.AuditID) error {
	defer s.observe("finalize_invalidation")()

	if caller != s.owner {
		return ErrNotOwner
	}

	unlock := s.locks.lock(auditID)
	defer unlock()

	audit, err := s.audits.Get(ctx, auditID)
	if err != nil {
		return err
	}
	if audit.Invalidated {
		return nil
	}
	if audit.InvalidationProposalID == 0 {
		return ErrNoProposal
	}
	invalidated, err := s.gateway.IsVestingInvalidated(ctx, audit.InvalidationProposalID)
	if err != nil {
		return err
	}
	if !invalidated {
		return ErrNotInvalidated
	}
	return s.finalizeLocked(ctx, audit)
}

// GetAudit returns the audit record.
func (s *Service) GetAudit(ctx context.Context, auditID ids.AuditID) (domain.Audit, error) {
	return s.audits.Get(ctx, auditID)
}

// VestingSchedulesForAudit lists the audit's schedules.
func (s *Service) VestingSchedulesForAudit(ctx context.Context, auditID ids.AuditID) ([]domain.VestingSchedule, error) {
	return s.ledger.SchedulesForAudit(ctx, auditID)
}

// resolveInvalidation lazily finalizes a governance-confirmed invalidation.
// Returns true when the audit is (now) invalidated.
func (s *Service) resolveInvalidation(ctx context.Context, audit *domain.Audit) (bool, error) {
	if audit.Invalidated {
		return true, nil
	}
	if audit.InvalidationProposalID == 0 {
		return false, nil
	}
	invalidated, err := s.gateway.IsVestingInvalidated(ctx, audit.InvalidationProposalID)
	if err != nil {
		return false, err
	}
	if !invalidated {
		return false, nil
	}
	if err := s.finalizeLocked(ctx, *audit); err != nil {
		return false, err
	}
	audit.Invalidated = true
	return true, nil
}

// finalizeLocked performs burn + refund + flagging. Caller holds the audit
// lock and has verified governance confirmation.
func (s *Service) finalizeLocked(ctx context.Context, audit domain.Audit) error {
	if err := s.deliverables.Burn(s.self, audit.DeliverableTokenID); err != nil {
		return err
	}
	refund, err := s.ledger.Invalidate(ctx, audit.ID, audit.Auditee)
	if err != nil {
		return err
	}
	audit.Invalidated = true
	audit.Active = false
	if err := s.audits.Save(ctx, audit); err != nil {
		return err
	}

	s.metrics.AuditsInvalidated.Inc()
	s.emit(ctx, events.Event{
		Type:       events.TypeAuditInvalidated,
		AuditID:    audit.ID.String(),
		TokenID:    audit.DeliverableTokenID.String(),
		ProposalID: uint64(audit.InvalidationProposalID),
		Amount:     fixedpoint.String(refund),
	})
	s.log.InfoContext(ctx, "audit invalidated",
		"audit_id", audit.ID.String(),
		"refund", fixedpoint.String(refund),
	)
	return nil
}

// pausedLocked evaluates the pause predicate: an invalidation proposal exists,
// the gateway reports it frozen, and it has not invalidated vesting.
func (s *Service) pausedLocked(ctx context.Context, audit domain.Audit) (bool, error) {
	if audit.InvalidationProposalID == 0 {
		return false, nil
	}
	frozen, err := s.gateway.IsWithdrawFrozen(ctx, audit.InvalidationProposalID)
	if err != nil {
		return false, err
	}
	if !frozen {
		return false, nil
	}
	invalidated, err := s.gateway.IsVestingInvalidated(ctx, audit.InvalidationProposalID)
	if err != nil {
		return false, err
	}
	return !invalidated, nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	event.ID = uuid.New()
	event.Timestamp = s.clk.Now()
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.WarnContext(ctx, "publish event", "type", string(event.Type), "error", err)
	}
}

func (s *Service) observe(op string) func() {
	start := time.Now()
	return func() {
		s.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

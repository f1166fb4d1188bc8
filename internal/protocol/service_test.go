package protocol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"auditescrow/internal/deliverable"
	"auditescrow/internal/domain"
	"auditescrow/internal/escrow"
	"auditescrow/internal/events"
	"auditescrow/internal/governance"
	"auditescrow/internal/platform/logger"
	"auditescrow/internal/platform/metrics"
	"auditescrow/internal/token"
	"auditescrow/pkg/fixedpoint"
	"auditescrow/pkg/ids"
)

const (
	owner         = ids.Address("protocol-owner")
	escrowAccount = ids.Address("protocol-escrow")
	auditee       = ids.Address("auditee-1")
	auditorA      = ids.Address("auditor-a")
	auditorB      = ids.Address("auditor-b")
)

type ServiceSuite struct {
	suite.Suite
	clk      *clock.Mock
	bank     *token.Bank
	gateway  *governance.ManualGateway
	registry *deliverable.Registry
	sink     *events.MemoryPublisher
	svc      *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clk = clock.NewMock()
	s.clk.Add(time.Unix(1_700_000_000, 0).Sub(s.clk.Now()))
	s.bank = token.NewBank()
	s.gateway = governance.NewManualGateway()
	s.registry = deliverable.NewRegistry(escrowAccount)
	s.sink = events.NewMemoryPublisher()
	s.ctx = context.Background()

	log := logger.New()
	ledger := escrow.NewLedger(escrow.NewInMemoryScheduleStore(), s.bank, s.clk, log, owner, escrowAccount)
	s.svc = NewService(Config{
		Audits:       NewInMemoryAuditStore(),
		Ledger:       ledger,
		Gateway:      s.gateway,
		Deliverables: s.registry,
		Token:        s.bank,
		Events:       s.sink,
		Metrics:      metrics.New(prometheus.NewRegistry()),
		Logger:       log,
		Clock:        s.clk,
		Owner:        owner,
	})

	s.bank.Mint(auditee, fixedpoint.Scale(100_000))
	s.Require().NoError(s.bank.Approve(s.ctx, auditee, escrowAccount, fixedpoint.Scale(100_000)))
}

func (s *ServiceSuite) params(salt string) PrepareParams {
	return PrepareParams{
		Auditors:     []ids.Address{auditorA, auditorB},
		Cliff:        1000,
		Duration:     10000,
		Details:      "ipfs://QmFindings",
		Amount:       100_000,
		PaymentToken: "token-usdc",
		Salt:         salt,
	}
}

func (s *ServiceSuite) prepare(salt string) ids.AuditID {
	auditID, err := s.svc.PrepareAudit(s.ctx, auditee, s.params(salt))
	s.Require().NoError(err)
	return auditID
}

func (s *ServiceSuite) reveal(auditID ids.AuditID) ids.TokenID {
	tokenID, err := s.svc.RevealFindings(s.ctx, auditee, auditID, []string{"finding-1"}, ids.TokenID{})
	s.Require().NoError(err)
	return tokenID
}

func (s *ServiceSuite) scheduleID(auditID ids.AuditID, auditor ids.Address) ids.ScheduleID {
	return ids.ScheduleIDFor(auditor, auditID)
}

func (s *ServiceSuite) balance(addr ids.Address) *uint256.Int {
	b, err := s.bank.BalanceOf(s.ctx, addr)
	s.Require().NoError(err)
	return b
}

func (s *ServiceSuite) releasable(id ids.ScheduleID) *uint256.Int {
	r, err := s.svc.ComputeReleasable(s.ctx, id)
	s.Require().NoError(err)
	return r
}

func (s *ServiceSuite) TestPrepareAudit() {
	s.Run("derives the deterministic id", func() {
		auditID := s.prepare("s1")
		s.Equal(GenerateAuditID(auditee, s.params("s1")), auditID)

		audit, err := s.svc.GetAudit(s.ctx, auditID)
		s.Require().NoError(err)
		s.True(audit.Prepared())
		s.False(audit.Active)
		s.Equal(auditee, audit.Auditee)
	})

	s.Run("identical tuple collides, different salt succeeds", func() {
		_, err := s.svc.PrepareAudit(s.ctx, auditee, s.params("s1"))
		s.Require().ErrorIs(err, ErrDuplicateAudit)

		other, err := s.svc.PrepareAudit(s.ctx, auditee, s.params("s2"))
		s.Require().NoError(err)
		s.NotEqual(GenerateAuditID(auditee, s.params("s1")), other)
	})

	s.Run("requires at least one auditor", func() {
		p := s.params("s3")
		p.Auditors = nil
		_, err := s.svc.PrepareAudit(s.ctx, auditee, p)
		s.Require().ErrorIs(err, ErrNoAuditors)
	})

	s.Run("rejects duplicate auditors", func() {
		p := s.params("s4")
		p.Auditors = []ids.Address{auditorA, auditorB, auditorA}
		_, err := s.svc.PrepareAudit(s.ctx, auditee, p)
		s.Require().ErrorIs(err, ErrDuplicateAuditor)
	})

	s.Len(s.sink.ByType(events.TypeAuditCreated), 2)
}

func (s *ServiceSuite) TestRevealFindings() {
	auditID := s.prepare("s1")

	s.Run("rejects non-auditee", func() {
		_, err := s.svc.RevealFindings(s.ctx, auditorA, auditID, []string{"f"}, ids.TokenID{})
		s.Require().ErrorIs(err, ErrWrongCaller)
	})

	s.Run("rejects unknown audit", func() {
		_, err := s.svc.RevealFindings(s.ctx, auditee, ids.AuditID{1}, []string{"f"}, ids.TokenID{})
		s.Require().ErrorIs(err, ErrAuditNotFound)
	})

	s.Run("rejects spoofed token id", func() {
		_, err := s.svc.RevealFindings(s.ctx, auditee, auditID, []string{"finding-1"}, ids.TokenID{0xde, 0xad})
		s.Require().ErrorIs(err, ErrIdentifierMismatch)
	})

	s.Run("funds escrow, mints deliverable, opens schedules", func() {
		tokenID := s.reveal(auditID)
		s.Equal(deliverable.GenerateID(auditID, []string{"finding-1"}), tokenID)

		s.True(s.balance(auditee).IsZero())
		s.Equal(fixedpoint.Scale(100_000), s.balance(escrowAccount))

		holder, err := s.registry.OwnerOf(tokenID)
		s.Require().NoError(err)
		s.Equal(auditee, holder)

		audit, err := s.svc.GetAudit(s.ctx, auditID)
		s.Require().NoError(err)
		s.True(audit.Revealed())
		s.True(audit.Active)
		s.Equal(s.clk.Now().Unix(), audit.StartTime)
		s.Equal(tokenID, audit.DeliverableTokenID)

		schedules, err := s.svc.VestingSchedulesForAudit(s.ctx, auditID)
		s.Require().NoError(err)
		s.Require().Len(schedules, 2)
		for _, schedule := range schedules {
			s.Equal(fixedpoint.Scale(50_000), schedule.TotalAllocated, "even split per auditor")
			s.True(schedule.Withdrawn.IsZero())
		}
	})

	s.Run("second reveal is rejected", func() {
		_, err := s.svc.RevealFindings(s.ctx, auditee, auditID, []string{"finding-1"}, ids.TokenID{})
		s.Require().ErrorIs(err, ErrAlreadyRevealed)
	})
}

func (s *ServiceSuite) TestRevealRequiresAllowance() {
	auditID := s.prepare("s1")
	s.Require().NoError(s.bank.Approve(s.ctx, auditee, escrowAccount, fixedpoint.Scale(1)))

	_, err := s.svc.RevealFindings(s.ctx, auditee, auditID, []string{"f"}, ids.TokenID{})
	s.Require().ErrorIs(err, token.ErrInsufficientAllowance)

	s.True(s.balance(escrowAccount).IsZero(), "nothing moved")
	audit, err := s.svc.GetAudit(s.ctx, auditID)
	s.Require().NoError(err)
	s.True(audit.Prepared(), "audit still awaiting reveal")
}

// An approved-but-unfunded reveal must fail before any state is written:
// schedules created against a deposit that never arrived would pay out of
// escrow funded by other audits.
func (s *ServiceSuite) TestRevealRequiresBalance() {
	auditID := s.prepare("s1")
	s.Require().NoError(s.bank.Transfer(s.ctx, auditee, "elsewhere", fixedpoint.Scale(100_000)))

	_, err := s.svc.RevealFindings(s.ctx, auditee, auditID, []string{"f"}, ids.TokenID{})
	s.Require().ErrorIs(err, token.ErrInsufficientBalance)

	s.True(s.balance(escrowAccount).IsZero(), "nothing moved")
	audit, err := s.svc.GetAudit(s.ctx, auditID)
	s.Require().NoError(err)
	s.True(audit.Prepared(), "audit still awaiting reveal")
	s.False(audit.Revealed())
	schedules, err := s.svc.VestingSchedulesForAudit(s.ctx, auditID)
	s.Require().NoError(err)
	s.Empty(schedules, "no schedules opened")

	// Funding the account makes the same reveal succeed.
	s.bank.Mint(auditee, fixedpoint.Scale(100_000))
	s.reveal(auditID)
}

// A transient store failure during the duplicate check must surface, not read
// as "audit absent": falling through to Save would upsert over an existing
// revealed record and reopen it.
func (s *ServiceSuite) TestPrepareAuditStoreFailure() {
	auditID := s.prepare("s1")
	s.reveal(auditID)

	boom := errors.New("connection reset")
	flaky := &flakyAuditStore{AuditStore: s.svc.audits, getErr: boom}
	s.svc.audits = flaky
	_, err := s.svc.PrepareAudit(s.ctx, auditee, s.params("s1"))
	s.Require().ErrorIs(err, boom)

	flaky.getErr = nil
	audit, err := s.svc.GetAudit(s.ctx, auditID)
	s.Require().NoError(err)
	s.True(audit.Revealed(), "the revealed record survived the failed duplicate check")
}

type flakyAuditStore struct {
	AuditStore
	getErr error
}

func (f *flakyAuditStore) Get(ctx context.Context, id ids.AuditID) (domain.Audit, error) {
	if f.getErr != nil {
		return domain.Audit{}, f.getErr
	}
	return f.AuditStore.Get(ctx, id)
}

// Pins the observed zero-cliff behavior: the audit is never flagged active
// even though the reveal succeeds and vesting proceeds normally.
func (s *ServiceSuite) TestZeroCliffAuditStaysInactive() {
	p := s.params("s1")
	p.Cliff = 0
	auditID, err := s.svc.PrepareAudit(s.ctx, auditee, p)
	s.Require().NoError(err)

	s.reveal(auditID)

	audit, err := s.svc.GetAudit(s.ctx, auditID)
	s.Require().NoError(err)
	s.True(audit.Revealed())
	s.False(audit.Active)

	s.clk.Add(1 * time.Second)
	s.False(s.releasable(s.scheduleID(auditID, auditorA)).IsZero(), "vesting itself is unaffected")
}

func (s *ServiceSuite) TestWithdrawLifecycle() {
	auditID := s.prepare("s1")
	s.reveal(auditID)
	scheduleA := s.scheduleID(auditID, auditorA)

	s.Run("nothing before the cliff", func() {
		s.clk.Add(999 * time.Second)
		amount, err := s.svc.Withdraw(s.ctx, auditorA, scheduleA)
		s.Require().NoError(err)
		s.True(amount.IsZero())
	})

	s.Run("cliff releases the elapsed share", func() {
		s.clk.Add(1 * time.Second)
		amount, err := s.svc.Withdraw(s.ctx, auditorA, scheduleA)
		s.Require().NoError(err)
		s.Equal(fixedpoint.Scale(5_000), amount)
		s.Equal(fixedpoint.Scale(5_000), s.balance(auditorA))
	})

	s.Run("immediate retry is a paid-nothing no-op", func() {
		amount, err := s.svc.Withdraw(s.ctx, auditorA, scheduleA)
		s.Require().NoError(err)
		s.True(amount.IsZero())
		s.Equal(fixedpoint.Scale(5_000), s.balance(auditorA))
	})

	s.Run("full allocation at the end", func() {
		s.clk.Add(9_000 * time.Second)
		amount, err := s.svc.Withdraw(s.ctx, auditorA, scheduleA)
		s.Require().NoError(err)
		s.Equal(fixedpoint.Scale(45_000), amount)
		s.Equal(fixedpoint.Scale(50_000), s.balance(auditorA))
	})

	s.Len(s.sink.ByType(events.TypeWithdrawal), 2, "only paying withdrawals emit")
}

func (s *ServiceSuite) TestProposeInvalidation() {
	auditID := s.prepare("s1")

	s.Run("requires a revealed audit", func() {
		_, err := s.svc.ProposeInvalidation(s.ctx, auditee, auditID, "bogus findings")
		s.Require().ErrorIs(err, ErrNotRevealed)
	})

	s.reveal(auditID)

	s.Run("rejects strangers", func() {
		_, err := s.svc.ProposeInvalidation(s.ctx, auditorA, auditID, "bogus findings")
		s.Require().ErrorIs(err, ErrWrongCaller)
	})

	s.Run("auditee proposes and the audit freezes", func() {
		proposalID, err := s.svc.ProposeInvalidation(s.ctx, auditee, auditID, "bogus findings")
		s.Require().NoError(err)
		s.NotZero(proposalID)

		paused, err := s.svc.IsWithdrawPaused(s.ctx, auditID)
		s.Require().NoError(err)
		s.True(paused)
	})

	s.Run("second proposal is rejected while pending", func() {
		_, err := s.svc.ProposeInvalidation(s.ctx, owner, auditID, "again")
		s.Require().ErrorIs(err, ErrAlreadyProposed)
	})
}

func (s *ServiceSuite) TestPauseCorrectness() {
	auditID := s.prepare("s1")
	s.reveal(auditID)
	scheduleA := s.scheduleID(auditID, auditorA)

	s.clk.Add(5_000 * time.Second)
	before := s.releasable(scheduleA)
	s.Equal(fixedpoint.Scale(25_000), before)

	_, err := s.svc.ProposeInvalidation(s.ctx, auditee, auditID, "dispute")
	s.Require().NoError(err)

	s.Run("pause zeroes releasable without touching the clock", func() {
		s.True(s.releasable(scheduleA).IsZero())
		amount, err := s.svc.Withdraw(s.ctx, auditorA, scheduleA)
		s.Require().NoError(err)
		s.True(amount.IsZero())
	})

	s.Run("cancel restores releasable as if never paused", func() {
		s.Require().NoError(s.svc.CancelProposal(s.ctx, owner, auditID))
		s.Equal(before, s.releasable(scheduleA))

		paused, err := s.svc.IsWithdrawPaused(s.ctx, auditID)
		s.Require().NoError(err)
		s.False(paused)
	})

	// Pins the one-shot proposal record: cancellation does not clear the
	// stored proposal id, so a new proposal is impossible for this audit.
	s.Run("proposal slot is never reusable", func() {
		_, err := s.svc.ProposeInvalidation(s.ctx, auditee, auditID, "second attempt")
		s.Require().ErrorIs(err, ErrAlreadyProposed)
	})
}

func (s *ServiceSuite) TestCancelProposalAuthorization() {
	auditID := s.prepare("s1")
	s.reveal(auditID)

	s.Require().ErrorIs(s.svc.CancelProposal(s.ctx, owner, auditID), ErrNoProposal)

	_, err := s.svc.ProposeInvalidation(s.ctx, auditee, auditID, "dispute")
	s.Require().NoError(err)
	s.Require().ErrorIs(s.svc.CancelProposal(s.ctx, auditee, auditID), ErrNotOwner)
	s.Require().NoError(s.svc.CancelProposal(s.ctx, owner, auditID))
}

func (s *ServiceSuite) confirmInvalidation(auditID ids.AuditID) {
	audit, err := s.svc.GetAudit(s.ctx, auditID)
	s.Require().NoError(err)
	s.Require().NoError(s.gateway.SetProposalFrozen(audit.InvalidationProposalID, false))
	s.Require().NoError(s.gateway.SetProposalInvalidated(audit.InvalidationProposalID, true))
}

func (s *ServiceSuite) TestFinalizeInvalidation() {
	auditID := s.prepare("s1")
	tokenID := s.reveal(auditID)
	scheduleA := s.scheduleID(auditID, auditorA)

	s.clk.Add(5_000 * time.Second)
	_, err := s.svc.Withdraw(s.ctx, auditorA, scheduleA)
	s.Require().NoError(err)

	_, err = s.svc.ProposeInvalidation(s.ctx, auditee, auditID, "dispute")
	s.Require().NoError(err)

	s.Run("requires governance confirmation", func() {
		s.Require().ErrorIs(s.svc.FinalizeInvalidation(s.ctx, owner, auditID), ErrNotInvalidated)
	})

	s.Run("requires the owner", func() {
		s.Require().ErrorIs(s.svc.FinalizeInvalidation(s.ctx, auditee, auditID), ErrNotOwner)
	})

	s.confirmInvalidation(auditID)
	s.Require().NoError(s.svc.FinalizeInvalidation(s.ctx, owner, auditID))

	s.Run("deliverable is burned", func() {
		_, err := s.registry.OwnerOf(tokenID)
		s.Require().ErrorIs(err, deliverable.ErrTokenNotFound)
	})

	s.Run("auditee is refunded the unwithdrawn remainder", func() {
		// auditorA withdrew 25000; 75000 remained across both schedules.
		s.Equal(fixedpoint.Scale(75_000), s.balance(auditee))
	})

	s.Run("every schedule is dead forever", func() {
		s.clk.Add(100_000 * time.Second)
		s.True(s.releasable(scheduleA).IsZero())
		s.True(s.releasable(s.scheduleID(auditID, auditorB)).IsZero())
	})

	s.Run("finalize is idempotent", func() {
		s.Require().NoError(s.svc.FinalizeInvalidation(s.ctx, owner, auditID))
		s.Equal(fixedpoint.Scale(75_000), s.balance(auditee), "no double refund")
	})

	audit, err := s.svc.GetAudit(s.ctx, auditID)
	s.Require().NoError(err)
	s.True(audit.Invalidated)
	s.False(audit.Active)
	s.Len(s.sink.ByType(events.TypeAuditInvalidated), 1)
}

func (s *ServiceSuite) TestWithdrawResolvesConfirmedInvalidation() {
	auditID := s.prepare("s1")
	tokenID := s.reveal(auditID)
	scheduleA := s.scheduleID(auditID, auditorA)

	_, err := s.svc.ProposeInvalidation(s.ctx, auditee, auditID, "dispute")
	s.Require().NoError(err)
	s.confirmInvalidation(auditID)

	s.clk.Add(10_000 * time.Second)
	amount, err := s.svc.Withdraw(s.ctx, auditorA, scheduleA)
	s.Require().NoError(err)
	s.True(amount.IsZero(), "a confirmed invalidation pays the auditor nothing")

	audit, err := s.svc.GetAudit(s.ctx, auditID)
	s.Require().NoError(err)
	s.True(audit.Invalidated, "withdraw finalized the invalidation lazily")
	s.Equal(fixedpoint.Scale(100_000), s.balance(auditee))
	_, err = s.registry.OwnerOf(tokenID)
	s.Require().ErrorIs(err, deliverable.ErrTokenNotFound)
}

func (s *ServiceSuite) TestIsWithdrawPausedWhenConfirmed() {
	auditID := s.prepare("s1")
	s.reveal(auditID)

	_, err := s.svc.ProposeInvalidation(s.ctx, auditee, auditID, "dispute")
	s.Require().NoError(err)
	s.confirmInvalidation(auditID)

	paused, err := s.svc.IsWithdrawPaused(s.ctx, auditID)
	s.Require().NoError(err)
	s.False(paused, "a confirmed invalidation is no longer a pause")

	s.True(s.releasable(s.scheduleID(auditID, auditorA)).IsZero(),
		"but releasable is zero because the audit is now invalid")
}

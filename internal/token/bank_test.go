package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"auditescrow/pkg/fixedpoint"
	"auditescrow/pkg/ids"
)

type BankSuite struct {
	suite.Suite
	bank *Bank
	ctx  context.Context
}

func TestBankSuite(t *testing.T) {
	suite.Run(t, new(BankSuite))
}

func (s *BankSuite) SetupTest() {
	s.bank = NewBank()
	s.ctx = context.Background()
	s.bank.Mint("alice", fixedpoint.Scale(1000))
}

func (s *BankSuite) balance(addr ids.Address) string {
	b, err := s.bank.BalanceOf(s.ctx, addr)
	s.Require().NoError(err)
	return fixedpoint.String(b)
}

func (s *BankSuite) TestTransfer() {
	s.Run("moves funds", func() {
		s.Require().NoError(s.bank.Transfer(s.ctx, "alice", "bob", fixedpoint.Scale(300)))
		s.Equal(fixedpoint.String(fixedpoint.Scale(700)), s.balance("alice"))
		s.Equal(fixedpoint.String(fixedpoint.Scale(300)), s.balance("bob"))
	})

	s.Run("rejects overdraft", func() {
		err := s.bank.Transfer(s.ctx, "alice", "bob", fixedpoint.Scale(10_000))
		s.Require().ErrorIs(err, ErrInsufficientBalance)
	})
}

func (s *BankSuite) TestTransferFrom() {
	s.Run("requires allowance", func() {
		err := s.bank.TransferFrom(s.ctx, "spender", "alice", "escrow", fixedpoint.Scale(100))
		s.Require().ErrorIs(err, ErrInsufficientAllowance)
	})

	s.Run("spends allowance", func() {
		s.Require().NoError(s.bank.Approve(s.ctx, "alice", "spender", fixedpoint.Scale(500)))
		s.Require().NoError(s.bank.TransferFrom(s.ctx, "spender", "alice", "escrow", fixedpoint.Scale(200)))

		s.Equal(fixedpoint.String(fixedpoint.Scale(800)), s.balance("alice"))
		s.Equal(fixedpoint.String(fixedpoint.Scale(200)), s.balance("escrow"))

		remaining, err := s.bank.Allowance(s.ctx, "alice", "spender")
		s.Require().NoError(err)
		s.Equal(fixedpoint.String(fixedpoint.Scale(300)), fixedpoint.String(remaining))
	})

	s.Run("allowance does not bypass balance", func() {
		s.Require().NoError(s.bank.Approve(s.ctx, "alice", "spender", fixedpoint.Scale(999_999)))
		err := s.bank.TransferFrom(s.ctx, "spender", "alice", "escrow", fixedpoint.Scale(999_999))
		s.Require().ErrorIs(err, ErrInsufficientBalance)
	})
}

func (s *BankSuite) TestConservation() {
	s.Require().NoError(s.bank.Transfer(s.ctx, "alice", "bob", fixedpoint.Scale(100)))
	s.Require().NoError(s.bank.Approve(s.ctx, "alice", "carol", fixedpoint.Scale(50)))
	s.Require().NoError(s.bank.TransferFrom(s.ctx, "carol", "alice", "carol", fixedpoint.Scale(50)))

	sum := fixedpoint.Zero()
	for _, addr := range []ids.Address{"alice", "bob", "carol"} {
		b, err := s.bank.BalanceOf(s.ctx, addr)
		s.Require().NoError(err)
		sum = sum.Add(sum, b)
	}
	s.Equal(fixedpoint.String(s.bank.TotalSupply()), fixedpoint.String(sum))
}

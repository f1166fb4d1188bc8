package ids

import (
	"encoding/hex"
	"fmt"
)

// Address is an opaque account identifier. The protocol never interprets it
// beyond equality, so any stable encoding (hex account, bech32, email-like
// test handles) works.
type Address string

func (a Address) IsZero() bool { return a == "" }

// ProposalID is assigned by the governance backend. Zero means "never
// proposed".
type ProposalID uint64

// AuditID is the deterministic identifier binding an audit agreement.
type AuditID [32]byte

// TokenID identifies the deliverable token minted at reveal.
type TokenID [32]byte

// ScheduleID identifies a single vesting schedule.
type ScheduleID [32]byte

func (id AuditID) IsZero() bool    { return id == AuditID{} }
func (id TokenID) IsZero() bool    { return id == TokenID{} }
func (id ScheduleID) IsZero() bool { return id == ScheduleID{} }

func (id AuditID) String() string    { return hex.EncodeToString(id[:]) }
func (id TokenID) String() string    { return hex.EncodeToString(id[:]) }
func (id ScheduleID) String() string { return hex.EncodeToString(id[:]) }

func (id AuditID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id TokenID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ScheduleID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AuditID) UnmarshalText(text []byte) error    { return decode32(text, id[:], "audit id") }
func (id *TokenID) UnmarshalText(text []byte) error    { return decode32(text, id[:], "token id") }
func (id *ScheduleID) UnmarshalText(text []byte) error { return decode32(text, id[:], "schedule id") }

func ParseAuditID(s string) (AuditID, error) {
	var id AuditID
	err := id.UnmarshalText([]byte(s))
	return id, err
}

func ParseTokenID(s string) (TokenID, error) {
	var id TokenID
	err := id.UnmarshalText([]byte(s))
	return id, err
}

func ParseScheduleID(s string) (ScheduleID, error) {
	var id ScheduleID
	err := id.UnmarshalText([]byte(s))
	return id, err
}

func decode32(text, dst []byte, what string) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("decode %s: want 32 bytes, got %d", what, len(raw))
	}
	copy(dst, raw)
	return nil
}

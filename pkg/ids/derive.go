package ids

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Identifier derivation hashes a canonical encoding of the agreement tuple
// with keccak-256. Every variable-length field is length-prefixed so adjacent
// fields cannot be shifted into one another, and the auditor list is hashed in
// caller-supplied order: reordering auditors is a different agreement.

type encoder struct {
	buf []byte
}

func (e *encoder) bytes(b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	e.buf = append(e.buf, n[:]...)
	e.buf = append(e.buf, b...)
}

func (e *encoder) str(s string) { e.bytes([]byte(s)) }

func (e *encoder) uint(v uint64) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], v)
	e.buf = append(e.buf, n[:]...)
}

func (e *encoder) strs(ss []string) {
	e.uint(uint64(len(ss)))
	for _, s := range ss {
		e.str(s)
	}
}

func (e *encoder) addrs(as []Address) {
	e.uint(uint64(len(as)))
	for _, a := range as {
		e.str(string(a))
	}
}

func (e *encoder) sum() [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(e.buf)
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// GenerateAuditID derives the deterministic audit identifier. Identical inputs
// collide by design; callers vary salt to mint a distinct audit.
func GenerateAuditID(auditee Address, auditors []Address, cliff, duration uint64, details string, amount uint64, token Address, salt string) AuditID {
	var e encoder
	e.str(string(auditee))
	e.addrs(auditors)
	e.uint(cliff)
	e.uint(duration)
	e.str(details)
	e.uint(amount)
	e.str(string(token))
	e.str(salt)
	return AuditID(e.sum())
}

// GenerateTokenID binds the deliverable token to the exact findings disclosed
// for an audit. Any party can recompute it ahead of minting.
func GenerateTokenID(auditID AuditID, findings []string) TokenID {
	var e encoder
	e.bytes(auditID[:])
	e.strs(findings)
	return TokenID(e.sum())
}

// ScheduleIDFor is the canonical schedule key: one schedule per beneficiary
// per audit.
func ScheduleIDFor(beneficiary Address, auditID AuditID) ScheduleID {
	var e encoder
	e.str(string(beneficiary))
	e.bytes(auditID[:])
	return ScheduleID(e.sum())
}

// ScheduleIDForHolderIndex is the legacy per-beneficiary-index key kept for
// compatibility lookups against ledgers created by the older scheme.
func ScheduleIDForHolderIndex(beneficiary Address, index uint64) ScheduleID {
	var e encoder
	e.str(string(beneficiary))
	e.uint(index)
	return ScheduleID(e.sum())
}

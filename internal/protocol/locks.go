package protocol

import (
	"sync"

	"auditescrow/pkg/ids"
)

// auditLocks serializes operations per audit. The reference platform executes
// transitions one at a time; a per-audit mutex reproduces that without
// blocking unrelated audits.
type auditLocks struct {
	mu    sync.Mutex
	locks map[ids.AuditID]*sync.Mutex
}

func newAuditLocks() *auditLocks {
	return &auditLocks{locks: make(map[ids.AuditID]*sync.Mutex)}
}

// lock acquires the audit's mutex and returns the unlock func. Lock entries
// are never removed; the set of audits is small and append-only.
func (l *auditLocks) lock(id ids.AuditID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

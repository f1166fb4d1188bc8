package protocol

import (
	"context"
	"sync"

	"auditescrow/internal/domain"
	"auditescrow/pkg/ids"
)

type InMemoryAuditStore struct {
	mu     sync.RWMutex
	audits map[ids.AuditID]domain.Audit
}

func NewInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{audits: make(map[ids.AuditID]domain.Audit)}
}

func (s *InMemoryAuditStore) Save(_ context.Context, audit domain.Audit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	audit.Auditors = append([]ids.Address{}, audit.Auditors...)
	s.audits[audit.ID] = audit
	return nil
}

func (s *InMemoryAuditStore) Get(_ context.Context, id ids.AuditID) (domain.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if audit, ok := s.audits[id]; ok {
		audit.Auditors = append([]ids.Address{}, audit.Auditors...)
		return audit, nil
	}
	return domain.Audit{}, ErrAuditNotFound
}

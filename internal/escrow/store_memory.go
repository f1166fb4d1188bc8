package escrow

import (
	"context"
	"sync"

	"auditescrow/internal/domain"
	"auditescrow/pkg/ids"
)

// InMemoryScheduleStore favors clarity over performance; it is the default
// store for tests and single-process deployments.
type InMemoryScheduleStore struct {
	mu        sync.RWMutex
	schedules map[ids.ScheduleID]domain.VestingSchedule
	byAudit   map[ids.AuditID][]ids.ScheduleID
}

func NewInMemoryScheduleStore() *InMemoryScheduleStore {
	return &InMemoryScheduleStore{
		schedules: make(map[ids.ScheduleID]domain.VestingSchedule),
		byAudit:   make(map[ids.AuditID][]ids.ScheduleID),
	}
}

func (s *InMemoryScheduleStore) Save(_ context.Context, schedule domain.VestingSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.schedules[schedule.ID]; !exists {
		s.byAudit[schedule.AuditID] = append(s.byAudit[schedule.AuditID], schedule.ID)
	}
	s.schedules[schedule.ID] = schedule.Clone()
	return nil
}

func (s *InMemoryScheduleStore) Get(_ context.Context, id ids.ScheduleID) (domain.VestingSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if schedule, ok := s.schedules[id]; ok {
		return schedule.Clone(), nil
	}
	return domain.VestingSchedule{}, ErrScheduleNotFound
}

func (s *InMemoryScheduleStore) ListByAudit(_ context.Context, auditID ids.AuditID) ([]domain.VestingSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.VestingSchedule, 0, len(s.byAudit[auditID]))
	for _, id := range s.byAudit[auditID] {
		out = append(out, s.schedules[id].Clone())
	}
	return out, nil
}

func (s *InMemoryScheduleStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.schedules), nil
}

func (s *InMemoryScheduleStore) CountByBeneficiary(_ context.Context, beneficiary ids.Address) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, schedule := range s.schedules {
		if schedule.Beneficiary == beneficiary {
			n++
		}
	}
	return n, nil
}

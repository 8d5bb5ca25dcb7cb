package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/doctor-booking/internal/schedule"
)

// MemoryRepository is a map-backed rule store for tests and local runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]schedule.Rule
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rules: make(map[uuid.UUID]schedule.Rule)}
}

func (r *MemoryRepository) CreateRule(_ context.Context, rule schedule.Rule) (*schedule.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	r.rules[rule.ID] = rule
	return &rule, nil
}

func (r *MemoryRepository) DeleteRule(_ context.Context, doctorID, ruleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[ruleID]
	if !ok || rule.DoctorID != doctorID {
		return ErrRuleNotFound
	}
	delete(r.rules, ruleID)
	return nil
}

func (r *MemoryRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]schedule.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []schedule.Rule
	for _, rule := range r.rules {
		if rule.DoctorID == doctorID {
			result = append(result, rule)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

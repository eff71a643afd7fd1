package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
)

// MemoryStore is an in-process Store. Records do not survive restarts.
type MemoryStore struct {
	mu        sync.RWMutex
	disasters map[string]domain.Disaster
	resources map[string]domain.Resource
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		disasters: make(map[string]domain.Disaster),
		resources: make(map[string]domain.Resource),
	}
}

func (s *MemoryStore) SaveDisaster(_ context.Context, d domain.Disaster) (domain.Disaster, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = domain.Now()
	}

	s.mu.Lock()
	s.disasters[d.ID] = d
	s.mu.Unlock()
	return d, nil
}

func (s *MemoryStore) Disaster(_ context.Context, id string) (domain.Disaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.disasters[id]
	if !ok {
		return domain.Disaster{}, ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) Disasters(_ context.Context) ([]domain.Disaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Disaster, 0, len(s.disasters))
	for _, d := range s.disasters {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SaveResource(_ context.Context, r domain.Resource) (domain.Resource, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = domain.Now()
	}

	s.mu.Lock()
	s.resources[r.ID] = r
	s.mu.Unlock()
	return r, nil
}

func (s *MemoryStore) Resources(_ context.Context) ([]domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ResourcesByDisaster(_ context.Context, disasterID string) ([]domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Resource
	for _, r := range s.resources {
		if r.DisasterID == disasterID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

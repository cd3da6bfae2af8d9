package store

import (
	"context"
	"sort"
	"sync"

	"onward/internal/organization/models"
	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
)

// InMemory is the map-backed store used by unit tests and local runs.
type InMemory struct {
	mu       sync.RWMutex
	byID     map[domain.OrganizationID]*models.Organization
	byDomain map[string]domain.OrganizationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[domain.OrganizationID]*models.Organization),
		byDomain: make(map[string]domain.OrganizationID),
	}
}

func (s *InMemory) Create(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[org.ID]; ok {
		return sentinel.ErrConflict
	}
	if org.Domain != "" {
		if _, ok := s.byDomain[org.Domain]; ok {
			return sentinel.ErrConflict
		}
		s.byDomain[org.Domain] = org.ID
	}
	cp := *org
	s.byID[org.ID] = &cp
	return nil
}

func (s *InMemory) GetByID(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *InMemory) GetByDomain(ctx context.Context, domainName string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDomain[domainName]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemory) Update(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[org.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.Domain != org.Domain {
		if org.Domain != "" {
			if owner, ok := s.byDomain[org.Domain]; ok && owner != org.ID {
				return sentinel.ErrConflict
			}
			s.byDomain[org.Domain] = org.ID
		}
		delete(s.byDomain, existing.Domain)
	}
	cp := *org
	s.byID[org.ID] = &cp
	return nil
}

func (s *InMemory) List(ctx context.Context) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Organization, 0, len(s.byID))
	for _, org := range s.byID {
		cp := *org
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

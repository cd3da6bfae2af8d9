package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"onward/internal/credential/models"
	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
)

// InMemory stores credentials of one kind in memory for tests/dev. The
// mutex stands in for the database transaction: Consume validates and marks
// used under one lock, mirroring the row-lock semantics of the Postgres
// store.
type InMemory struct {
	mu       sync.RWMutex
	byID     map[domain.CredentialID]*models.Record
	bySecret map[string]domain.CredentialID
}

// NewInMemory constructs an empty in-memory credential store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[domain.CredentialID]*models.Record),
		bySecret: make(map[string]domain.CredentialID),
	}
}

func (s *InMemory) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySecret[rec.Secret]; exists {
		return fmt.Errorf("credential secret collision: %w", sentinel.ErrConflict)
	}
	s.byID[rec.ID] = rec.Clone()
	s.bySecret[rec.Secret] = rec.ID
	return nil
}

func (s *InMemory) FindBySecret(_ context.Context, secret string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySecret[secret]
	if !ok {
		return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	return s.byID[id].Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.CredentialID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (s *InMemory) Consume(_ context.Context, secret string, now time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.bySecret[secret]
	if !ok {
		return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	rec := s.byID[id]
	if err := rec.ValidateForUse(now); err != nil {
		return nil, fmt.Errorf("consume credential: %w", err)
	}
	snapshot := rec.Clone()
	rec.MarkUsed(now)
	return snapshot, nil
}

func (s *InMemory) Revoke(_ context.Context, id domain.CredentialID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	if rec.Used {
		return nil
	}
	rec.MarkUsed(now)
	return nil
}

func (s *InMemory) ListByOwner(_ context.Context, owner models.OwnerRef, includeUsed bool, now time.Time) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Record
	for _, rec := range s.byID {
		if !owner.OrganizationID.IsNil() && rec.OrganizationID != owner.OrganizationID {
			continue
		}
		if !owner.UserID.IsNil() && rec.UserID != owner.UserID {
			continue
		}
		if !includeUsed {
			if rec.Used {
				continue
			}
			if !rec.ExpiresAt.IsZero() && now.After(rec.ExpiresAt) {
				continue
			}
		}
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

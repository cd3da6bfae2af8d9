// Package service implements organization lifecycle: creation, suspension
// and the active-tenant gate the rest of the system consults before acting
// on behalf of an organization.
package service

import (
	"context"
	"log/slog"
	"time"

	"onward/internal/organization/models"
	"onward/internal/organization/secrets"
	"onward/internal/organization/store"
	"onward/pkg/domain"
	dErrors "onward/pkg/domain-errors"
	"onward/pkg/requestcontext"
)

// Service orchestrates organization persistence and status transitions.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

func New(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Create registers a new active organization. The domain, when given, must
// be unique; it routes magic-link requests by email domain.
func (s *Service) Create(ctx context.Context, name, domainName string) (*models.Organization, error) {
	org, err := models.NewOrganization(name, domainName, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, org); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "organization created",
		"organization_id", org.ID.String(), "name", org.Name)
	return org, nil
}

func (s *Service) GetByID(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) GetByDomain(ctx context.Context, domainName string) (*models.Organization, error) {
	return s.store.GetByDomain(ctx, domainName)
}

func (s *Service) List(ctx context.Context) ([]*models.Organization, error) {
	return s.store.List(ctx)
}

// Suspend stops all provisioning and credential flows for the organization.
func (s *Service) Suspend(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	return s.transition(ctx, id, (*models.Organization).Suspend)
}

// Reactivate restores a suspended organization.
func (s *Service) Reactivate(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	return s.transition(ctx, id, (*models.Organization).Reactivate)
}

// RotateSecret replaces the organization's provisioning secret and returns
// the new plaintext. It is shown once; only the bcrypt hash is stored.
func (s *Service) RotateSecret(ctx context.Context, id domain.OrganizationID) (string, error) {
	org, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	plaintext, err := secrets.Generate()
	if err != nil {
		return "", err
	}
	hash, err := secrets.Hash(plaintext)
	if err != nil {
		return "", err
	}
	org.SecretHash = hash
	org.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, org); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "organization secret rotated", "organization_id", id.String())
	return plaintext, nil
}

// VerifySecret checks a presented provisioning secret. An organization that
// never rotated a secret in has nothing to verify against and always fails.
func (s *Service) VerifySecret(ctx context.Context, id domain.OrganizationID, secret string) error {
	org, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if org.SecretHash == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid secret")
	}
	return secrets.Verify(secret, org.SecretHash)
}

// SetSetupCodeTTL stores the organization's validity window for setup codes.
// Zero restores the engine default; negative durations are rejected.
func (s *Service) SetSetupCodeTTL(ctx context.Context, id domain.OrganizationID, ttl time.Duration) (*models.Organization, error) {
	if ttl < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "setup code ttl cannot be negative")
	}
	org, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	org.SetupCodeTTL = ttl
	org.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// RequireActive loads the organization and fails with CodeForbidden when it
// is suspended. Flows that act within a tenant call this first.
func (s *Service) RequireActive(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	org, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !org.IsActive() {
		return nil, dErrors.New(dErrors.CodeForbidden, "organization is suspended")
	}
	return org, nil
}

func (s *Service) transition(ctx context.Context, id domain.OrganizationID, apply func(*models.Organization, time.Time) error) (*models.Organization, error) {
	org, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(org, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, org); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "organization status changed",
		"organization_id", id.String(), "status", org.Status)
	return org, nil
}

// Package store persists employees and their user links. Implementations
// return sentinel errors at the boundary; services translate them into
// domain errors.
package store

import (
	"context"

	"onward/internal/employee/models"
	"onward/pkg/domain"
)

// Filter narrows a List call. Zero-valued fields are ignored; set fields
// combine conjunctively.
type Filter struct {
	Status     models.Status
	Department string
	// Search matches case-insensitively against first name, last name,
	// email and job title.
	Search string
}

// RelationFields whitelists the employment-detail fields FindByRelation may
// query. Anything else is rejected before touching storage.
var RelationFields = map[string]bool{
	"manager_id": true,
	"department": true,
	"team":       true,
}

// Store is the employee persistence boundary. Every read and write is
// scoped by organization; an id that exists under another tenant behaves
// exactly like a missing one.
type Store interface {
	// Create persists a new employee. When the employee carries a user id,
	// the user link row is written in the same transaction; a link conflict
	// rolls the whole creation back and surfaces sentinel.ErrConflict.
	Create(ctx context.Context, emp *models.Employee) error

	// GetByID returns the employee or sentinel.ErrNotFound.
	GetByID(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID) (*models.Employee, error)

	// Patch applies a presence-based partial update and returns the full
	// updated employee. The existence check and the update run in one
	// transaction so concurrent patches serialize.
	Patch(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, patch models.Patch) (*models.Employee, error)

	// Delete removes the employee and its user link. Deleting a missing
	// employee returns sentinel.ErrNotFound.
	Delete(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID) error

	// List returns a page of employees matching the filter plus the total
	// count under the same predicate. Ordered by creation time descending.
	List(ctx context.Context, orgID domain.OrganizationID, filter Filter, limit, offset int) ([]*models.Employee, int, error)

	// FindByRelation returns employees whose employment details carry the
	// given value in a whitelisted relation field.
	FindByRelation(ctx context.Context, orgID domain.OrganizationID, field, value string) ([]*models.Employee, error)

	// FindByUserID resolves the employee linked to a user, or
	// sentinel.ErrNotFound when the user has no link in this organization.
	FindByUserID(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (*models.Employee, error)

	// UpdateOnboarding runs mutate against the current onboarding record
	// under a row lock and persists the result. An error from mutate
	// aborts the write and is returned unchanged.
	UpdateOnboarding(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, mutate func(*models.OnboardingRecord) error) (*models.Employee, error)
}

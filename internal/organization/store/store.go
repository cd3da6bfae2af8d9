// Package store persists organizations.
package store

import (
	"context"

	"onward/internal/organization/models"
	"onward/pkg/domain"
)

// Store is the organization persistence boundary. Implementations return
// sentinel errors; services translate them.
type Store interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id domain.OrganizationID) (*models.Organization, error)
	// GetByDomain resolves an organization by its email domain, used to
	// route magic-link requests. Domains are unique across organizations.
	GetByDomain(ctx context.Context, domainName string) (*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error
	List(ctx context.Context) ([]*models.Organization, error)
}

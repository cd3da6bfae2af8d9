package models

import (
	"time"

	"onward/pkg/domain"
	dErrors "onward/pkg/domain-errors"
)

// OrganizationStatus is active or suspended; no other states exist.
type OrganizationStatus string

const (
	OrganizationStatusActive    OrganizationStatus = "active"
	OrganizationStatusSuspended OrganizationStatus = "suspended"
)

// Organization is the tenant boundary. Every employee, credential and user
// link hangs off exactly one organization.
//
// Suspension is an immediate boundary: credential redemption and employee
// writes for a suspended organization fail at the service layer without
// cascading status changes into child records, so reactivation is a single
// row update.
type Organization struct {
	ID     domain.OrganizationID `json:"id"`
	Name   string                `json:"name"`
	Domain string                `json:"domain,omitempty"`
	Status OrganizationStatus    `json:"status"`

	// SecretHash is the bcrypt hash of the organization's provisioning
	// secret. The plaintext is shown once at rotation and never stored.
	SecretHash string `json:"-"`

	// SetupCodeTTL overrides the engine default validity window for setup
	// codes issued under this organization. Zero means use the default.
	SetupCodeTTL time.Duration `json:"setup_code_ttl,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Organization) IsActive() bool {
	return o.Status == OrganizationStatusActive
}

// Suspend transitions the organization to suspended.
func (o *Organization) Suspend(now time.Time) error {
	if o.Status == OrganizationStatusSuspended {
		return dErrors.New(dErrors.CodeInvariantViolation, "organization is already suspended")
	}
	o.Status = OrganizationStatusSuspended
	o.UpdatedAt = now
	return nil
}

// Reactivate transitions the organization back to active.
func (o *Organization) Reactivate(now time.Time) error {
	if o.Status == OrganizationStatusActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "organization is already active")
	}
	o.Status = OrganizationStatusActive
	o.UpdatedAt = now
	return nil
}

func NewOrganization(name, domainName string, now time.Time) (*Organization, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name must be 128 characters or less")
	}
	return &Organization{
		ID:        domain.NewOrganizationID(),
		Name:      name,
		Domain:    domainName,
		Status:    OrganizationStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

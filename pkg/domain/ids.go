// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so an EmployeeID can never be passed
// where an OrganizationID is expected. Parsing enforces the trust-boundary
// invariant that IDs are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "onward/pkg/domain-errors"
)

type (
	// OrganizationID identifies a tenant. Every entity operation is scoped
	// by it; no operation may cross organization boundaries.
	OrganizationID uuid.UUID

	// EmployeeID identifies an employee record within an organization.
	EmployeeID uuid.UUID

	// UserID identifies a login-capable user linked to an employee.
	UserID uuid.UUID

	// CredentialID identifies an issued credential of any kind.
	CredentialID uuid.UUID
)

func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id EmployeeID) String() string     { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id CredentialID) String() string   { return uuid.UUID(id).String() }

func (id OrganizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EmployeeID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// NewOrganizationID returns a fresh random OrganizationID.
func NewOrganizationID() OrganizationID { return OrganizationID(uuid.New()) }

// NewEmployeeID returns a fresh random EmployeeID.
func NewEmployeeID() EmployeeID { return EmployeeID(uuid.New()) }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewCredentialID returns a fresh random CredentialID.
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseOrganizationID parses and validates an organization id string.
func ParseOrganizationID(raw string) (OrganizationID, error) {
	parsed, err := parseUUID(raw)
	return OrganizationID(parsed), err
}

// ParseEmployeeID parses and validates an employee id string.
func ParseEmployeeID(raw string) (EmployeeID, error) {
	parsed, err := parseUUID(raw)
	return EmployeeID(parsed), err
}

// ParseUserID parses and validates a user id string.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	return UserID(parsed), err
}

// ParseCredentialID parses and validates a credential id string.
func ParseCredentialID(raw string) (CredentialID, error) {
	parsed, err := parseUUID(raw)
	return CredentialID(parsed), err
}

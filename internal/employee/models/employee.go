package models

import (
	"time"

	"onward/pkg/domain"
)

// Status is the employee lifecycle status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusOnLeave    Status = "on_leave"
	StatusTerminated Status = "terminated"
)

// DefaultStatus applies when a caller creates an employee without one.
const DefaultStatus = StatusPending

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusOnLeave, StatusTerminated:
		return true
	}
	return false
}

// Employee is a tenant-scoped composite record. Sub-documents are opaque
// structured values the engine stores and replaces wholesale; only the
// onboarding record is interpreted.
//
// CreatedAt/UpdatedAt are engine-managed and never client-settable;
// UpdatedAt >= CreatedAt and is non-decreasing across patches.
type Employee struct {
	ID             domain.EmployeeID
	OrganizationID domain.OrganizationID
	// UserID links the employee to a login-capable user. Optional; set only
	// at creation, where the link row is written in the same transaction.
	UserID domain.UserID

	Status Status

	PersonalInfo      map[string]any
	ContactInfo       map[string]any
	EmploymentDetails map[string]any
	Education         []map[string]any
	WorkExperience    []map[string]any
	Skills            []string
	Documents         []map[string]any
	Onboarding        OnboardingRecord

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone copies the employee so stores never hand out aliased sub-documents.
// Nested values inside sub-documents are shared; callers treat sub-documents
// as replace-wholesale values, never mutating them in place.
func (e *Employee) Clone() *Employee {
	cp := *e
	cp.PersonalInfo = cloneMap(e.PersonalInfo)
	cp.ContactInfo = cloneMap(e.ContactInfo)
	cp.EmploymentDetails = cloneMap(e.EmploymentDetails)
	cp.Education = cloneMapSlice(e.Education)
	cp.WorkExperience = cloneMapSlice(e.WorkExperience)
	cp.Skills = append([]string(nil), e.Skills...)
	cp.Documents = cloneMapSlice(e.Documents)
	cp.Onboarding = e.Onboarding.Clone()
	return &cp
}

// Patch describes a presence-based partial update: nil fields are left
// untouched, non-nil fields fully replace the stored value. There is no
// deep merge; an included sub-document overwrites the previous one even
// when "smaller".
type Patch struct {
	Status            *Status
	PersonalInfo      map[string]any
	ContactInfo       map[string]any
	EmploymentDetails map[string]any
	Education         []map[string]any
	WorkExperience    []map[string]any
	Skills            []string
	Documents         []map[string]any
	Onboarding        *OnboardingRecord
}

// IsEmpty reports whether the patch touches nothing. An empty patch is a
// read-only no-op at the service layer.
func (p Patch) IsEmpty() bool {
	return p.Status == nil &&
		p.PersonalInfo == nil &&
		p.ContactInfo == nil &&
		p.EmploymentDetails == nil &&
		p.Education == nil &&
		p.WorkExperience == nil &&
		p.Skills == nil &&
		p.Documents == nil &&
		p.Onboarding == nil
}

// CreateParams are the caller-settable fields at creation. Omitted
// sub-documents default to empty values; an omitted status defaults to
// DefaultStatus.
type CreateParams struct {
	UserID            domain.UserID
	Status            Status
	PersonalInfo      map[string]any
	ContactInfo       map[string]any
	EmploymentDetails map[string]any
	Education         []map[string]any
	WorkExperience    []map[string]any
	Skills            []string
	Documents         []map[string]any
	Onboarding        *OnboardingRecord
}

// NewEmployee builds a fully-defaulted employee from creation parameters.
// The engine assigns the identifier and both timestamps.
func NewEmployee(organizationID domain.OrganizationID, params CreateParams, now time.Time) *Employee {
	emp := &Employee{
		ID:                domain.NewEmployeeID(),
		OrganizationID:    organizationID,
		UserID:            params.UserID,
		Status:            params.Status,
		PersonalInfo:      orEmptyMap(params.PersonalInfo),
		ContactInfo:       orEmptyMap(params.ContactInfo),
		EmploymentDetails: orEmptyMap(params.EmploymentDetails),
		Education:         orEmptyMapSlice(params.Education),
		WorkExperience:    orEmptyMapSlice(params.WorkExperience),
		Skills:            orEmptyStrings(params.Skills),
		Documents:         orEmptyMapSlice(params.Documents),
		Onboarding:        NewOnboardingRecord(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if emp.Status == "" {
		emp.Status = DefaultStatus
	}
	if params.Onboarding != nil {
		emp.Onboarding = params.Onboarding.Clone()
	}
	return emp
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneMapSlice(s []map[string]any) []map[string]any {
	if s == nil {
		return nil
	}
	out := make([]map[string]any, len(s))
	for i, m := range s {
		out[i] = cloneMap(m)
	}
	return out
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptyMapSlice(s []map[string]any) []map[string]any {
	if s == nil {
		return []map[string]any{}
	}
	return s
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

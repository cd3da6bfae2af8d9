package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"onward/internal/employee/models"
	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
	"onward/pkg/requestcontext"
)

// InMemory is the map-backed store used by unit tests and local runs. The
// mutex stands in for the transactional guarantees of the SQL store.
type InMemory struct {
	mu        sync.Mutex
	employees map[domain.EmployeeID]*models.Employee
	// links maps a user to its employee within one organization.
	links map[domain.UserID]domain.EmployeeID
}

func NewInMemory() *InMemory {
	return &InMemory{
		employees: make(map[domain.EmployeeID]*models.Employee),
		links:     make(map[domain.UserID]domain.EmployeeID),
	}
}

func (s *InMemory) Create(ctx context.Context, emp *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[emp.ID]; ok {
		return sentinel.ErrConflict
	}
	if !emp.UserID.IsNil() {
		if _, ok := s.links[emp.UserID]; ok {
			return sentinel.ErrConflict
		}
		s.links[emp.UserID] = emp.ID
	}
	s.employees[emp.ID] = emp.Clone()
	return nil
}

func (s *InMemory) GetByID(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID) (*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp, err := s.find(id, orgID)
	if err != nil {
		return nil, err
	}
	return emp.Clone(), nil
}

func (s *InMemory) Patch(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, patch models.Patch) (*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp, err := s.find(id, orgID)
	if err != nil {
		return nil, err
	}
	applyPatch(emp, patch)
	now := requestcontext.Now(ctx)
	if now.After(emp.UpdatedAt) {
		emp.UpdatedAt = now
	}
	return emp.Clone(), nil
}

func (s *InMemory) Delete(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp, err := s.find(id, orgID)
	if err != nil {
		return err
	}
	if !emp.UserID.IsNil() {
		delete(s.links, emp.UserID)
	}
	delete(s.employees, id)
	return nil
}

func (s *InMemory) List(ctx context.Context, orgID domain.OrganizationID, filter Filter, limit, offset int) ([]*models.Employee, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Employee
	for _, emp := range s.employees {
		if emp.OrganizationID != orgID || !matches(emp, filter) {
			continue
		}
		matched = append(matched, emp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []*models.Employee{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	out := make([]*models.Employee, len(matched))
	for i, emp := range matched {
		out[i] = emp.Clone()
	}
	return out, total, nil
}

func (s *InMemory) FindByRelation(ctx context.Context, orgID domain.OrganizationID, field, value string) ([]*models.Employee, error) {
	if !RelationFields[field] {
		return nil, sentinel.ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.Employee{}
	for _, emp := range s.employees {
		if emp.OrganizationID != orgID {
			continue
		}
		if got, ok := emp.EmploymentDetails[field].(string); ok && got == value {
			out = append(out, emp.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) FindByUserID(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.links[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	emp, err := s.find(id, orgID)
	if err != nil {
		return nil, err
	}
	return emp.Clone(), nil
}

func (s *InMemory) UpdateOnboarding(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, mutate func(*models.OnboardingRecord) error) (*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp, err := s.find(id, orgID)
	if err != nil {
		return nil, err
	}
	rec := emp.Onboarding.Clone()
	if err := mutate(&rec); err != nil {
		return nil, err
	}
	emp.Onboarding = rec
	now := requestcontext.Now(ctx)
	if now.After(emp.UpdatedAt) {
		emp.UpdatedAt = now
	}
	return emp.Clone(), nil
}

// find looks up an employee under the caller's lock. Tenant mismatch is
// indistinguishable from absence.
func (s *InMemory) find(id domain.EmployeeID, orgID domain.OrganizationID) (*models.Employee, error) {
	emp, ok := s.employees[id]
	if !ok || emp.OrganizationID != orgID {
		return nil, sentinel.ErrNotFound
	}
	return emp, nil
}

func applyPatch(emp *models.Employee, patch models.Patch) {
	if patch.Status != nil {
		emp.Status = *patch.Status
	}
	if patch.PersonalInfo != nil {
		emp.PersonalInfo = patch.PersonalInfo
	}
	if patch.ContactInfo != nil {
		emp.ContactInfo = patch.ContactInfo
	}
	if patch.EmploymentDetails != nil {
		emp.EmploymentDetails = patch.EmploymentDetails
	}
	if patch.Education != nil {
		emp.Education = patch.Education
	}
	if patch.WorkExperience != nil {
		emp.WorkExperience = patch.WorkExperience
	}
	if patch.Skills != nil {
		emp.Skills = patch.Skills
	}
	if patch.Documents != nil {
		emp.Documents = patch.Documents
	}
	if patch.Onboarding != nil {
		emp.Onboarding = patch.Onboarding.Clone()
	}
}

func matches(emp *models.Employee, filter Filter) bool {
	if filter.Status != "" && emp.Status != filter.Status {
		return false
	}
	if filter.Department != "" {
		got, _ := emp.EmploymentDetails["department"].(string)
		if got != filter.Department {
			return false
		}
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		fields := []string{
			stringField(emp.PersonalInfo, "first_name"),
			stringField(emp.PersonalInfo, "last_name"),
			stringField(emp.ContactInfo, "email"),
			stringField(emp.EmploymentDetails, "job_title"),
		}
		found := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

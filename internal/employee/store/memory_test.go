package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"onward/internal/employee/models"
	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
	"onward/pkg/requestcontext"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
	orgID domain.OrganizationID
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.orgID = domain.NewOrganizationID()
}

func (s *MemoryStoreSuite) newEmployee(params models.CreateParams) *models.Employee {
	emp := models.NewEmployee(s.orgID, params, s.now)
	s.Require().NoError(s.store.Create(s.ctx, emp))
	return emp
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	emp := s.newEmployee(models.CreateParams{
		PersonalInfo: map[string]any{"first_name": "Ada", "last_name": "Lovelace"},
	})

	got, err := s.store.GetByID(s.ctx, emp.ID, s.orgID)
	s.Require().NoError(err)
	s.Equal("Ada", got.PersonalInfo["first_name"])
	s.Equal(models.StatusPending, got.Status)
	s.Equal(models.StagePreOnboarding, got.Onboarding.Stage)
	s.Equal(got.CreatedAt, got.UpdatedAt)
}

func (s *MemoryStoreSuite) TestTenantScoping() {
	emp := s.newEmployee(models.CreateParams{})

	_, err := s.store.GetByID(s.ctx, emp.ID, domain.NewOrganizationID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestUserLinkConflict() {
	userID := domain.NewUserID()
	s.newEmployee(models.CreateParams{UserID: userID})

	dup := models.NewEmployee(s.orgID, models.CreateParams{UserID: userID}, s.now)
	err := s.store.Create(s.ctx, dup)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// The conflicting employee must not have been half-created.
	_, err = s.store.GetByID(s.ctx, dup.ID, s.orgID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestFindByUserID() {
	userID := domain.NewUserID()
	emp := s.newEmployee(models.CreateParams{UserID: userID})

	got, err := s.store.FindByUserID(s.ctx, userID, s.orgID)
	s.Require().NoError(err)
	s.Equal(emp.ID, got.ID)

	_, err = s.store.FindByUserID(s.ctx, domain.NewUserID(), s.orgID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestPatch() {
	s.Run("replaces only the included sub-documents", func() {
		emp := s.newEmployee(models.CreateParams{
			PersonalInfo: map[string]any{"first_name": "Ada", "last_name": "Lovelace"},
			ContactInfo:  map[string]any{"email": "ada@example.com", "phone": "555-0100"},
			Skills:       []string{"analysis"},
		})

		later := requestcontext.WithTime(s.ctx, s.now.Add(time.Minute))
		got, err := s.store.Patch(later, emp.ID, s.orgID, models.Patch{
			ContactInfo: map[string]any{"email": "ada@newcorp.example"},
		})
		s.Require().NoError(err)

		// Included sub-document replaced wholesale: the phone key is gone.
		s.Equal(map[string]any{"email": "ada@newcorp.example"}, got.ContactInfo)
		// Untouched sub-documents unchanged.
		s.Equal("Ada", got.PersonalInfo["first_name"])
		s.Equal([]string{"analysis"}, got.Skills)
		s.Equal(s.now.Add(time.Minute), got.UpdatedAt)
		s.Equal(s.now, got.CreatedAt)
	})

	s.Run("replaces list fields wholesale", func() {
		emp := s.newEmployee(models.CreateParams{
			Skills: []string{"go", "sql", "kafka"},
		})
		got, err := s.store.Patch(s.ctx, emp.ID, s.orgID, models.Patch{
			Skills: []string{"go"},
		})
		s.Require().NoError(err)
		s.Equal([]string{"go"}, got.Skills)
	})

	s.Run("an explicit empty slice clears the field", func() {
		emp := s.newEmployee(models.CreateParams{Skills: []string{"go"}})
		got, err := s.store.Patch(s.ctx, emp.ID, s.orgID, models.Patch{
			Skills: []string{},
		})
		s.Require().NoError(err)
		s.Empty(got.Skills)
	})

	s.Run("missing employee", func() {
		_, err := s.store.Patch(s.ctx, domain.NewEmployeeID(), s.orgID, models.Patch{
			Skills: []string{"go"},
		})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("wrong tenant behaves like missing", func() {
		emp := s.newEmployee(models.CreateParams{})
		_, err := s.store.Patch(s.ctx, emp.ID, domain.NewOrganizationID(), models.Patch{
			Skills: []string{"go"},
		})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestDelete() {
	userID := domain.NewUserID()
	emp := s.newEmployee(models.CreateParams{UserID: userID})

	s.Require().NoError(s.store.Delete(s.ctx, emp.ID, s.orgID))

	_, err := s.store.GetByID(s.ctx, emp.ID, s.orgID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	// The user link goes with the employee.
	_, err = s.store.FindByUserID(s.ctx, userID, s.orgID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().ErrorIs(s.store.Delete(s.ctx, emp.ID, s.orgID), sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestList() {
	mk := func(i int, status models.Status, dept, first string) *models.Employee {
		emp := models.NewEmployee(s.orgID, models.CreateParams{
			Status:            status,
			PersonalInfo:      map[string]any{"first_name": first},
			EmploymentDetails: map[string]any{"department": dept},
		}, s.now.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.store.Create(s.ctx, emp))
		return emp
	}
	mk(0, models.StatusActive, "engineering", "Ada")
	mk(1, models.StatusActive, "engineering", "Grace")
	mk(2, models.StatusPending, "sales", "Annie")

	s.Run("unfiltered, newest first", func() {
		got, total, err := s.store.List(s.ctx, s.orgID, Filter{}, 10, 0)
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(got, 3)
		s.Equal("Annie", got[0].PersonalInfo["first_name"])
	})

	s.Run("filters combine conjunctively", func() {
		got, total, err := s.store.List(s.ctx, s.orgID,
			Filter{Status: models.StatusActive, Department: "engineering", Search: "gra"}, 10, 0)
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Require().Len(got, 1)
		s.Equal("Grace", got[0].PersonalInfo["first_name"])
	})

	s.Run("total counts past the page", func() {
		got, total, err := s.store.List(s.ctx, s.orgID, Filter{}, 2, 0)
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Len(got, 2)
	})

	s.Run("offset past the end is empty, not an error", func() {
		got, total, err := s.store.List(s.ctx, s.orgID, Filter{}, 10, 50)
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(got)
	})
}

func (s *MemoryStoreSuite) TestFindByRelation() {
	manager := domain.NewUserID().String()
	for range 2 {
		emp := models.NewEmployee(s.orgID, models.CreateParams{
			EmploymentDetails: map[string]any{"manager_id": manager},
		}, s.now)
		s.Require().NoError(s.store.Create(s.ctx, emp))
	}
	s.newEmployee(models.CreateParams{
		EmploymentDetails: map[string]any{"manager_id": domain.NewUserID().String()},
	})

	got, err := s.store.FindByRelation(s.ctx, s.orgID, "manager_id", manager)
	s.Require().NoError(err)
	s.Len(got, 2)

	_, err = s.store.FindByRelation(s.ctx, s.orgID, "salary; DROP TABLE employees", "x")
	s.Require().Error(err)
}

func (s *MemoryStoreSuite) TestUpdateOnboarding() {
	emp := s.newEmployee(models.CreateParams{})

	got, err := s.store.UpdateOnboarding(s.ctx, emp.ID, s.orgID, func(rec *models.OnboardingRecord) error {
		rec.Stage = models.StageTraining
		rec.Progress = 40
		return nil
	})
	s.Require().NoError(err)
	s.Equal(models.StageTraining, got.Onboarding.Stage)
	s.Equal(40, got.Onboarding.Progress)

	s.Run("a mutate error aborts the write", func() {
		_, err := s.store.UpdateOnboarding(s.ctx, emp.ID, s.orgID, func(rec *models.OnboardingRecord) error {
			rec.Progress = 99
			return sentinel.ErrInvalidState
		})
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		current, err := s.store.GetByID(s.ctx, emp.ID, s.orgID)
		s.Require().NoError(err)
		s.Equal(40, current.Onboarding.Progress)
	})
}

//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"onward/internal/employee/models"
	orgmodels "onward/internal/organization/models"
	orgstore "onward/internal/organization/store"
	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
	"onward/pkg/requestcontext"
	"onward/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	orgs  *orgstore.Postgres
	ctx   context.Context
	now   time.Time
	orgID domain.OrganizationID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.Pool)
	s.orgs = orgstore.NewPostgres(s.pg.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.Require().NoError(s.pg.TruncateAll(s.ctx))

	org, err := orgmodels.NewOrganization("Acme", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.orgs.Create(s.ctx, org))
	s.orgID = org.ID
}

func (s *PostgresStoreSuite) newEmployee(params models.CreateParams) *models.Employee {
	emp := models.NewEmployee(s.orgID, params, s.now)
	s.Require().NoError(s.store.Create(s.ctx, emp))
	return emp
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	emp := s.newEmployee(models.CreateParams{
		PersonalInfo:      map[string]any{"first_name": "Ada", "last_name": "Lovelace"},
		EmploymentDetails: map[string]any{"department": "engineering", "job_title": "Engineer"},
		Skills:            []string{"analysis", "go"},
	})

	got, err := s.store.GetByID(s.ctx, emp.ID, s.orgID)
	s.Require().NoError(err)
	s.Equal("Ada", got.PersonalInfo["first_name"])
	s.Equal([]string{"analysis", "go"}, got.Skills)
	s.Equal(models.StagePreOnboarding, got.Onboarding.Stage)
	s.WithinDuration(s.now, got.CreatedAt, time.Millisecond)
}

// TestUserLinkRollback verifies that a duplicate user link aborts the whole
// creation; no orphaned employee row survives.
func (s *PostgresStoreSuite) TestUserLinkRollback() {
	userID := domain.NewUserID()
	s.newEmployee(models.CreateParams{UserID: userID})

	dup := models.NewEmployee(s.orgID, models.CreateParams{UserID: userID}, s.now)
	s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)

	_, err := s.store.GetByID(s.ctx, dup.ID, s.orgID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentPatchIsolation patches two different sub-documents from two
// goroutines; the row lock serializes them so both writes survive.
func (s *PostgresStoreSuite) TestConcurrentPatchIsolation() {
	emp := s.newEmployee(models.CreateParams{
		PersonalInfo: map[string]any{"first_name": "Ada"},
		ContactInfo:  map[string]any{"email": "ada@acme.example"},
	})

	var wg sync.WaitGroup
	patches := []models.Patch{
		{PersonalInfo: map[string]any{"first_name": "Augusta"}},
		{ContactInfo: map[string]any{"email": "ada@newcorp.example"}},
	}
	errs := make([]error, len(patches))
	for i, patch := range patches {
		wg.Add(1)
		go func(i int, patch models.Patch) {
			defer wg.Done()
			_, errs[i] = s.store.Patch(s.ctx, emp.ID, s.orgID, patch)
		}(i, patch)
	}
	wg.Wait()
	for _, err := range errs {
		s.Require().NoError(err)
	}

	got, err := s.store.GetByID(s.ctx, emp.ID, s.orgID)
	s.Require().NoError(err)
	s.Equal("Augusta", got.PersonalInfo["first_name"])
	s.Equal("ada@newcorp.example", got.ContactInfo["email"])
}

func (s *PostgresStoreSuite) TestListFilters() {
	mk := func(status models.Status, dept, first, title string) {
		emp := models.NewEmployee(s.orgID, models.CreateParams{
			Status:            status,
			PersonalInfo:      map[string]any{"first_name": first},
			EmploymentDetails: map[string]any{"department": dept, "job_title": title},
		}, s.now)
		s.Require().NoError(s.store.Create(s.ctx, emp))
	}
	mk(models.StatusActive, "engineering", "Ada", "Engineer")
	mk(models.StatusActive, "engineering", "Grace", "Senior Engineer")
	mk(models.StatusPending, "sales", "Annie", "Account Exec")

	got, total, err := s.store.List(s.ctx, s.orgID,
		Filter{Status: models.StatusActive, Department: "engineering"}, 10, 0)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Len(got, 2)

	got, total, err = s.store.List(s.ctx, s.orgID, Filter{Search: "senior"}, 10, 0)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(got, 1)
	s.Equal("Grace", got[0].PersonalInfo["first_name"])
}

func (s *PostgresStoreSuite) TestFindByRelation() {
	manager := domain.NewUserID().String()
	for range 2 {
		emp := models.NewEmployee(s.orgID, models.CreateParams{
			EmploymentDetails: map[string]any{"manager_id": manager},
		}, s.now)
		s.Require().NoError(s.store.Create(s.ctx, emp))
	}

	got, err := s.store.FindByRelation(s.ctx, s.orgID, "manager_id", manager)
	s.Require().NoError(err)
	s.Len(got, 2)

	_, err = s.store.FindByRelation(s.ctx, s.orgID, "job_title", "Engineer")
	s.Require().Error(err)
}

func (s *PostgresStoreSuite) TestUpdateOnboarding() {
	rec := models.NewOnboardingRecord()
	rec.Tasks = []models.Task{{ID: "t1", Title: "Sign NDA", Status: models.TaskNotStarted, Required: true}}
	emp := s.newEmployee(models.CreateParams{Onboarding: &rec})

	got, err := s.store.UpdateOnboarding(s.ctx, emp.ID, s.orgID, func(r *models.OnboardingRecord) error {
		r.Stage = models.StagePaperwork
		r.UpdateTask("t1", models.TaskCompleted, s.now)
		return nil
	})
	s.Require().NoError(err)
	s.Equal(models.StagePaperwork, got.Onboarding.Stage)
	task := got.Onboarding.Task("t1")
	s.Require().NotNil(task)
	s.Equal(models.TaskCompleted, task.Status)
	s.Require().NotNil(task.CompletionDate)

	// The record survives a JSONB round trip intact.
	reloaded, err := s.store.GetByID(s.ctx, emp.ID, s.orgID)
	s.Require().NoError(err)
	s.True(reloaded.Onboarding.Task("t1").Required)
}

package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"onward/internal/employee/models"
	"onward/internal/employee/store"
	"onward/internal/platform/logger"
	"onward/pkg/domain"
	dErrors "onward/pkg/domain-errors"
	"onward/pkg/platform/sentinel"
	"onward/pkg/requestcontext"
)

type OnboardingSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	orgID domain.OrganizationID
	store *store.InMemory
	svc   *Service
}

func TestOnboardingSuite(t *testing.T) {
	suite.Run(t, new(OnboardingSuite))
}

func (s *OnboardingSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.orgID = domain.NewOrganizationID()
	s.store = store.NewInMemory()
	s.svc = New(s.store, logger.New())
}

func (s *OnboardingSuite) newEmployee(tasks ...models.Task) *models.Employee {
	rec := models.NewOnboardingRecord()
	rec.Tasks = tasks
	emp := models.NewEmployee(s.orgID, models.CreateParams{Onboarding: &rec}, s.now)
	s.Require().NoError(s.store.Create(s.ctx, emp))
	return emp
}

func (s *OnboardingSuite) TestAdvanceStage() {
	s.Run("moves to any known stage, including backwards", func() {
		emp := s.newEmployee()

		got, err := s.svc.AdvanceStage(s.ctx, emp.ID, s.orgID, models.StageTraining)
		s.Require().NoError(err)
		s.Equal(models.StageTraining, got.Onboarding.Stage)

		got, err = s.svc.AdvanceStage(s.ctx, emp.ID, s.orgID, models.StagePaperwork)
		s.Require().NoError(err)
		s.Equal(models.StagePaperwork, got.Onboarding.Stage)
	})

	s.Run("rejects an unknown stage", func() {
		emp := s.newEmployee()
		_, err := s.svc.AdvanceStage(s.ctx, emp.ID, s.orgID, "graduated")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("stamps the completion date once", func() {
		emp := s.newEmployee()

		got, err := s.svc.AdvanceStage(s.ctx, emp.ID, s.orgID, models.StageCompleted)
		s.Require().NoError(err)
		s.Require().NotNil(got.Onboarding.ActualCompletionDate)
		s.Equal(s.now, *got.Onboarding.ActualCompletionDate)

		// Re-entering completed keeps the original stamp.
		later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
		got, err = s.svc.AdvanceStage(later, emp.ID, s.orgID, models.StageCompleted)
		s.Require().NoError(err)
		s.Equal(s.now, *got.Onboarding.ActualCompletionDate)
	})

	s.Run("missing employee", func() {
		_, err := s.svc.AdvanceStage(s.ctx, domain.NewEmployeeID(), s.orgID, models.StageTraining)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *OnboardingSuite) TestSetProgress() {
	s.Run("sets an explicit percentage", func() {
		emp := s.newEmployee()
		got, err := s.svc.SetProgress(s.ctx, emp.ID, s.orgID, 75)
		s.Require().NoError(err)
		s.Equal(75, got.Onboarding.Progress)
	})

	s.Run("boundaries are inclusive", func() {
		emp := s.newEmployee()
		for _, p := range []int{0, 100} {
			got, err := s.svc.SetProgress(s.ctx, emp.ID, s.orgID, p)
			s.Require().NoError(err)
			s.Equal(p, got.Onboarding.Progress)
		}
	})

	s.Run("rejects out-of-range values instead of clamping", func() {
		emp := s.newEmployee()
		for _, p := range []int{-1, 101} {
			_, err := s.svc.SetProgress(s.ctx, emp.ID, s.orgID, p)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		}
		got, err := s.store.GetByID(s.ctx, emp.ID, s.orgID)
		s.Require().NoError(err)
		s.Zero(got.Onboarding.Progress)
	})

	s.Run("progress is never derived from tasks", func() {
		emp := s.newEmployee(
			models.Task{ID: "t1", Title: "Sign NDA", Status: models.TaskNotStarted},
			models.Task{ID: "t2", Title: "Laptop setup", Status: models.TaskNotStarted},
		)
		_, err := s.svc.UpdateTask(s.ctx, emp.ID, s.orgID, "t1", models.TaskCompleted)
		s.Require().NoError(err)

		got, err := s.store.GetByID(s.ctx, emp.ID, s.orgID)
		s.Require().NoError(err)
		s.Zero(got.Onboarding.Progress)
	})
}

func (s *OnboardingSuite) TestUpdateTask() {
	s.Run("sets the status and stamps completion", func() {
		emp := s.newEmployee(models.Task{ID: "t1", Title: "Sign NDA", Status: models.TaskNotStarted})

		got, err := s.svc.UpdateTask(s.ctx, emp.ID, s.orgID, "t1", models.TaskCompleted)
		s.Require().NoError(err)
		task := got.Onboarding.Task("t1")
		s.Require().NotNil(task)
		s.Equal(models.TaskCompleted, task.Status)
		s.Require().NotNil(task.CompletionDate)
		s.Equal(s.now, *task.CompletionDate)
	})

	s.Run("re-completion overwrites the stamp", func() {
		emp := s.newEmployee(models.Task{ID: "t1", Title: "Sign NDA", Status: models.TaskNotStarted})

		_, err := s.svc.UpdateTask(s.ctx, emp.ID, s.orgID, "t1", models.TaskCompleted)
		s.Require().NoError(err)

		later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
		got, err := s.svc.UpdateTask(later, emp.ID, s.orgID, "t1", models.TaskCompleted)
		s.Require().NoError(err)
		s.Equal(s.now.Add(time.Hour), *got.Onboarding.Task("t1").CompletionDate)
	})

	s.Run("leaving completed keeps the old stamp", func() {
		emp := s.newEmployee(models.Task{ID: "t1", Title: "Sign NDA", Status: models.TaskNotStarted})

		_, err := s.svc.UpdateTask(s.ctx, emp.ID, s.orgID, "t1", models.TaskCompleted)
		s.Require().NoError(err)

		got, err := s.svc.UpdateTask(s.ctx, emp.ID, s.orgID, "t1", models.TaskInProgress)
		s.Require().NoError(err)
		task := got.Onboarding.Task("t1")
		s.Equal(models.TaskInProgress, task.Status)
		s.NotNil(task.CompletionDate)
	})

	s.Run("unknown task id is a silent no-op", func() {
		emp := s.newEmployee(models.Task{ID: "t1", Title: "Sign NDA", Status: models.TaskNotStarted})

		got, err := s.svc.UpdateTask(s.ctx, emp.ID, s.orgID, "t999", models.TaskCompleted)
		s.Require().NoError(err)
		s.Equal(models.TaskNotStarted, got.Onboarding.Task("t1").Status)
	})

	s.Run("missing employee is still an error", func() {
		_, err := s.svc.UpdateTask(s.ctx, domain.NewEmployeeID(), s.orgID, "t1", models.TaskCompleted)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects an unknown status", func() {
		emp := s.newEmployee(models.Task{ID: "t1", Title: "Sign NDA", Status: models.TaskNotStarted})
		_, err := s.svc.UpdateTask(s.ctx, emp.ID, s.orgID, "t1", "abandoned")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// Package onboarding drives the stage and task state machine stored inside
// each employee's onboarding record. Every mutation goes through the
// employee store's read-modify-write so concurrent updates serialize on the
// employee row.
package onboarding

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"onward/internal/audit"
	"onward/internal/employee/models"
	"onward/internal/employee/store"
	"onward/pkg/domain"
	dErrors "onward/pkg/domain-errors"
	"onward/pkg/requestcontext"
)

// Service mutates onboarding records in place on the employee row.
type Service struct {
	store  store.Store
	logger *slog.Logger
	audit  audit.Emitter
	tracer trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithAudit attaches an audit emitter.
func WithAudit(emitter audit.Emitter) Option {
	return func(s *Service) { s.audit = emitter }
}

func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: logger,
		tracer: otel.Tracer("onward/onboarding"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AdvanceStage moves the employee to the given stage. Any known stage is a
// legal target, forward or backward; only unknown stage names are rejected.
func (s *Service) AdvanceStage(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, stage models.Stage) (*models.Employee, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.advance_stage",
		trace.WithAttributes(attribute.String("onboarding.stage", string(stage))))
	defer span.End()

	if !stage.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown onboarding stage %q", stage)
	}

	emp, err := s.store.UpdateOnboarding(ctx, id, orgID, func(rec *models.OnboardingRecord) error {
		rec.Stage = stage
		if stage == models.StageCompleted && rec.ActualCompletionDate == nil {
			at := requestcontext.Now(ctx)
			rec.ActualCompletionDate = &at
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.ActionStageAdvanced, emp, map[string]string{"stage": string(stage)})
	s.logger.InfoContext(ctx, "onboarding stage advanced",
		"employee_id", id.String(), "stage", stage)
	return emp, nil
}

// SetProgress sets the percentage explicitly; it is never derived from task
// completion. Out-of-range values are rejected, not clamped.
func (s *Service) SetProgress(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, progress int) (*models.Employee, error) {
	if progress < 0 || progress > 100 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "onboarding progress %d out of range [0,100]", progress)
	}

	emp, err := s.store.UpdateOnboarding(ctx, id, orgID, func(rec *models.OnboardingRecord) error {
		rec.Progress = progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.ActionProgressSet, emp, map[string]string{"progress": fmt.Sprintf("%d", progress)})
	return emp, nil
}

// UpdateTask sets the status of one task by id. A task id with no match is
// a silent no-op: the write still happens and the unchanged employee is
// returned, matching how checklist clients retry blindly. A missing
// employee is still an error.
func (s *Service) UpdateTask(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, taskID string, status models.TaskStatus) (*models.Employee, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.update_task",
		trace.WithAttributes(attribute.String("onboarding.task_id", taskID)))
	defer span.End()

	if taskID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "task id is required")
	}
	if !status.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown task status %q", status)
	}

	found := false
	emp, err := s.store.UpdateOnboarding(ctx, id, orgID, func(rec *models.OnboardingRecord) error {
		found = rec.UpdateTask(taskID, status, requestcontext.Now(ctx))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !found {
		s.logger.DebugContext(ctx, "onboarding task not found, nothing updated",
			"employee_id", id.String(), "task_id", taskID)
		return emp, nil
	}

	s.emit(ctx, audit.ActionTaskUpdated, emp, map[string]string{
		"task_id": taskID,
		"status":  string(status),
	})
	return emp, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, emp *models.Employee, detail map[string]string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Action:         action,
		OrganizationID: emp.OrganizationID.String(),
		EmployeeID:     emp.ID.String(),
		Detail:         detail,
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

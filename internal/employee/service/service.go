// Package service implements employee lifecycle operations over the store:
// creation with defaulting, presence-based partial updates, tenant-scoped
// reads and relation queries.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"onward/internal/audit"
	"onward/internal/employee/metrics"
	"onward/internal/employee/models"
	"onward/internal/employee/store"
	"onward/pkg/domain"
	dErrors "onward/pkg/domain-errors"
	"onward/pkg/requestcontext"
)

// maxPageSize caps List results; requests asking for more are clamped.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Service orchestrates employee persistence and validation.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Emitter
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit attaches an audit emitter.
func WithAudit(emitter audit.Emitter) Option {
	return func(s *Service) { s.audit = emitter }
}

func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: logger,
		tracer: otel.Tracer("onward/employee"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new employee. Omitted fields default to
// empty sub-documents, status pending and a fresh onboarding record; when a
// user id is supplied the user link is written atomically with the row.
func (s *Service) Create(ctx context.Context, orgID domain.OrganizationID, params models.CreateParams) (*models.Employee, error) {
	ctx, span := s.tracer.Start(ctx, "employee.create")
	defer span.End()

	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "organization id is required")
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown employee status %q", params.Status)
	}
	if params.Onboarding != nil {
		if err := validateOnboarding(params.Onboarding); err != nil {
			return nil, err
		}
	}

	emp := models.NewEmployee(orgID, params, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, emp); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Created.Inc()
	}
	s.emit(ctx, audit.ActionEmployeeCreated, emp)
	s.logger.InfoContext(ctx, "employee created",
		"employee_id", emp.ID.String(), "organization_id", orgID.String())
	return emp, nil
}

// GetByID returns the employee, scoped to the organization.
func (s *Service) GetByID(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID) (*models.Employee, error) {
	return s.store.GetByID(ctx, id, orgID)
}

// GetByUserID resolves an employee through its user link.
func (s *Service) GetByUserID(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (*models.Employee, error) {
	return s.store.FindByUserID(ctx, userID, orgID)
}

// Patch applies a presence-based partial update and returns the full
// updated employee. An empty patch performs no write and simply returns the
// current record; included fields replace their stored value wholesale.
func (s *Service) Patch(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, patch models.Patch) (*models.Employee, error) {
	ctx, span := s.tracer.Start(ctx, "employee.patch",
		trace.WithAttributes(attribute.String("employee.id", id.String())))
	defer span.End()

	if patch.IsEmpty() {
		return s.store.GetByID(ctx, id, orgID)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown employee status %q", *patch.Status)
	}
	if patch.Onboarding != nil {
		if err := validateOnboarding(patch.Onboarding); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	emp, err := s.store.Patch(ctx, id, orgID, patch)
	if s.metrics != nil {
		s.metrics.ObservePatch(start)
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Patched.Inc()
	}
	s.emit(ctx, audit.ActionEmployeeUpdated, emp)
	return emp, nil
}

// Delete removes the employee and its user link.
func (s *Service) Delete(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID) error {
	emp, err := s.store.GetByID(ctx, id, orgID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id, orgID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.Deleted.Inc()
	}
	s.emit(ctx, audit.ActionEmployeeDeleted, emp)
	s.logger.InfoContext(ctx, "employee deleted",
		"employee_id", id.String(), "organization_id", orgID.String())
	return nil
}

// List returns a page of employees plus the total count under the same
// filter. limit <= 0 falls back to the default page size.
func (s *Service) List(ctx context.Context, orgID domain.OrganizationID, filter store.Filter, limit, offset int) ([]*models.Employee, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, dErrors.Newf(dErrors.CodeValidation, "unknown employee status %q", filter.Status)
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	start := time.Now()
	employees, total, err := s.store.List(ctx, orgID, filter, limit, offset)
	if s.metrics != nil {
		s.metrics.ObserveList(start)
	}
	return employees, total, err
}

// ListByRelation returns employees whose employment details reference the
// given value, e.g. every report of one manager. The field must be one of
// store.RelationFields.
func (s *Service) ListByRelation(ctx context.Context, orgID domain.OrganizationID, field, value string) ([]*models.Employee, error) {
	if !store.RelationFields[field] {
		return nil, dErrors.Newf(dErrors.CodeValidation, "relation field %q is not queryable", field)
	}
	if value == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "relation value is required")
	}
	return s.store.FindByRelation(ctx, orgID, field, value)
}

func validateOnboarding(rec *models.OnboardingRecord) error {
	if !rec.Stage.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown onboarding stage %q", rec.Stage)
	}
	if rec.Progress < 0 || rec.Progress > 100 {
		return dErrors.Newf(dErrors.CodeValidation, "onboarding progress %d out of range [0,100]", rec.Progress)
	}
	for _, task := range rec.Tasks {
		if task.ID == "" {
			return dErrors.New(dErrors.CodeValidation, "onboarding task id is required")
		}
		if task.Status != "" && !task.Status.Valid() {
			return dErrors.Newf(dErrors.CodeValidation, "unknown task status %q", task.Status)
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, emp *models.Employee) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Action:         action,
		OrganizationID: emp.OrganizationID.String(),
		EmployeeID:     emp.ID.String(),
	}
	if !emp.UserID.IsNil() {
		event.UserID = emp.UserID.String()
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

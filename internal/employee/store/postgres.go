package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onward/internal/employee/models"
	"onward/internal/platform/postgres"
	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
	"onward/pkg/requestcontext"
)

const employeeColumns = `id, organization_id, user_id, status, personal_info, contact_info,
	employment_details, education, work_experience, skills, documents, onboarding,
	created_at, updated_at`

// Postgres persists employees as one row per employee with each sub-document
// in its own JSONB column, so a partial update only rewrites the columns the
// patch names.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, emp *models.Employee) error {
	docs, err := marshalDocuments(emp)
	if err != nil {
		return err
	}

	err = postgres.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO employees (id, organization_id, user_id, status, personal_info, contact_info,
				employment_details, education, work_experience, skills, documents, onboarding,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			uuid.UUID(emp.ID),
			uuid.UUID(emp.OrganizationID),
			nullableUserID(emp.UserID),
			string(emp.Status),
			docs.personalInfo,
			docs.contactInfo,
			docs.employmentDetails,
			docs.education,
			docs.workExperience,
			docs.skills,
			docs.documents,
			docs.onboarding,
			emp.CreatedAt,
			emp.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if emp.UserID.IsNil() {
			return nil
		}
		// The link row rides in the same transaction: a duplicate link rolls
		// the employee insert back too.
		_, err = tx.Exec(ctx, `
			INSERT INTO user_links (user_id, organization_id, employee_id, created_at)
			VALUES ($1, $2, $3, $4)`,
			uuid.UUID(emp.UserID),
			uuid.UUID(emp.OrganizationID),
			uuid.UUID(emp.ID),
			emp.CreatedAt,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("employee or user link exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

func (s *Postgres) GetByID(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID) (*models.Employee, error) {
	query := fmt.Sprintf("SELECT %s FROM employees WHERE id = $1 AND organization_id = $2", employeeColumns)
	return scanEmployee(s.pool.QueryRow(ctx, query, uuid.UUID(id), uuid.UUID(orgID)))
}

// Patch locks the row, applies only the columns the patch names and returns
// the full row as written. Concurrent patches serialize on the lock; a patch
// against a missing or foreign-tenant id fails before writing anything.
func (s *Postgres) Patch(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, patch models.Patch) (*models.Employee, error) {
	assignments, err := patchAssignments(patch)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var updated *models.Employee
	err = postgres.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var exists uuid.UUID
		err := tx.QueryRow(ctx,
			"SELECT id FROM employees WHERE id = $1 AND organization_id = $2 FOR UPDATE",
			uuid.UUID(id), uuid.UUID(orgID)).Scan(&exists)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("employee not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock employee: %w", err)
		}

		sets := make([]string, 0, len(assignments)+1)
		args := []any{uuid.UUID(id), uuid.UUID(orgID)}
		for _, a := range assignments {
			args = append(args, a.value)
			sets = append(sets, fmt.Sprintf("%s = $%d", a.column, len(args)))
		}
		args = append(args, now)
		sets = append(sets, fmt.Sprintf("updated_at = GREATEST(updated_at, $%d)", len(args)))

		query := fmt.Sprintf(
			"UPDATE employees SET %s WHERE id = $1 AND organization_id = $2 RETURNING %s",
			strings.Join(sets, ", "), employeeColumns)

		updated, err = scanEmployee(tx.QueryRow(ctx, query, args...))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID) error {
	err := postgres.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "DELETE FROM user_links WHERE employee_id = $1 AND organization_id = $2",
			uuid.UUID(id), uuid.UUID(orgID))
		if err != nil {
			return fmt.Errorf("delete user link: %w", err)
		}
		tag, err := tx.Exec(ctx, "DELETE FROM employees WHERE id = $1 AND organization_id = $2",
			uuid.UUID(id), uuid.UUID(orgID))
		if err != nil {
			return fmt.Errorf("delete employee: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("employee not found: %w", sentinel.ErrNotFound)
		}
		return nil
	})
	return err
}

func (s *Postgres) List(ctx context.Context, orgID domain.OrganizationID, filter Filter, limit, offset int) ([]*models.Employee, int, error) {
	conditions := "organization_id = $1"
	args := []any{uuid.UUID(orgID)}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions += fmt.Sprintf(" AND employment_details->>'department' = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions += fmt.Sprintf(` AND (personal_info->>'first_name' ILIKE $%d
			OR personal_info->>'last_name' ILIKE $%d
			OR contact_info->>'email' ILIKE $%d
			OR employment_details->>'job_title' ILIKE $%d)`, n, n, n, n)
	}

	// The count runs under the same predicate so total stays consistent with
	// the page.
	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM employees WHERE %s", conditions)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf("SELECT %s FROM employees WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		employeeColumns, conditions, len(args)-1, len(args))

	employees, err := s.queryEmployees(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

func (s *Postgres) FindByRelation(ctx context.Context, orgID domain.OrganizationID, field, value string) ([]*models.Employee, error) {
	// The field name is interpolated into the query, so it must come from
	// the whitelist, never from the request verbatim.
	if !RelationFields[field] {
		return nil, fmt.Errorf("relation field %q not allowed: %w", field, sentinel.ErrInvalidState)
	}
	query := fmt.Sprintf(
		"SELECT %s FROM employees WHERE organization_id = $1 AND employment_details->>'%s' = $2 ORDER BY created_at DESC",
		employeeColumns, field)
	return s.queryEmployees(ctx, query, uuid.UUID(orgID), value)
}

func (s *Postgres) FindByUserID(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (*models.Employee, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM employees e
		JOIN user_links l ON l.employee_id = e.id
		WHERE l.user_id = $1 AND e.organization_id = $2`, prefixColumns("e"))
	return scanEmployee(s.pool.QueryRow(ctx, query, uuid.UUID(userID), uuid.UUID(orgID)))
}

func (s *Postgres) UpdateOnboarding(ctx context.Context, id domain.EmployeeID, orgID domain.OrganizationID, mutate func(*models.OnboardingRecord) error) (*models.Employee, error) {
	now := requestcontext.Now(ctx)
	var updated *models.Employee
	err := postgres.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var raw []byte
		err := tx.QueryRow(ctx,
			"SELECT onboarding FROM employees WHERE id = $1 AND organization_id = $2 FOR UPDATE",
			uuid.UUID(id), uuid.UUID(orgID)).Scan(&raw)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("employee not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock onboarding: %w", err)
		}

		var rec models.OnboardingRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode onboarding: %w", err)
		}
		if err := mutate(&rec); err != nil {
			return err
		}
		encoded, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode onboarding: %w", err)
		}

		query := fmt.Sprintf(`
			UPDATE employees SET onboarding = $3, updated_at = GREATEST(updated_at, $4)
			WHERE id = $1 AND organization_id = $2 RETURNING %s`, employeeColumns)
		updated, err = scanEmployee(tx.QueryRow(ctx, query, uuid.UUID(id), uuid.UUID(orgID), encoded, now))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Postgres) queryEmployees(ctx context.Context, query string, args ...any) ([]*models.Employee, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	out := []*models.Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	return out, nil
}

type assignment struct {
	column string
	value  any
}

// patchAssignments maps present patch fields onto (column, value) pairs in a
// fixed order so the generated SQL is deterministic.
func patchAssignments(patch models.Patch) ([]assignment, error) {
	var out []assignment
	if patch.Status != nil {
		out = append(out, assignment{"status", string(*patch.Status)})
	}
	jsonFields := []struct {
		column string
		value  any
		set    bool
	}{
		{"personal_info", patch.PersonalInfo, patch.PersonalInfo != nil},
		{"contact_info", patch.ContactInfo, patch.ContactInfo != nil},
		{"employment_details", patch.EmploymentDetails, patch.EmploymentDetails != nil},
		{"education", patch.Education, patch.Education != nil},
		{"work_experience", patch.WorkExperience, patch.WorkExperience != nil},
		{"skills", patch.Skills, patch.Skills != nil},
		{"documents", patch.Documents, patch.Documents != nil},
		{"onboarding", patch.Onboarding, patch.Onboarding != nil},
	}
	for _, f := range jsonFields {
		if !f.set {
			continue
		}
		encoded, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.column, err)
		}
		out = append(out, assignment{f.column, encoded})
	}
	return out, nil
}

type marshaledDocuments struct {
	personalInfo      []byte
	contactInfo       []byte
	employmentDetails []byte
	education         []byte
	workExperience    []byte
	skills            []byte
	documents         []byte
	onboarding        []byte
}

func marshalDocuments(emp *models.Employee) (*marshaledDocuments, error) {
	var docs marshaledDocuments
	var err error
	fields := []struct {
		name  string
		value any
		dst   *[]byte
	}{
		{"personal_info", emp.PersonalInfo, &docs.personalInfo},
		{"contact_info", emp.ContactInfo, &docs.contactInfo},
		{"employment_details", emp.EmploymentDetails, &docs.employmentDetails},
		{"education", emp.Education, &docs.education},
		{"work_experience", emp.WorkExperience, &docs.workExperience},
		{"skills", emp.Skills, &docs.skills},
		{"documents", emp.Documents, &docs.documents},
		{"onboarding", emp.Onboarding, &docs.onboarding},
	}
	for _, f := range fields {
		if *f.dst, err = json.Marshal(f.value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.name, err)
		}
	}
	return &docs, nil
}

func scanEmployee(row pgx.Row) (*models.Employee, error) {
	var (
		emp                                      models.Employee
		id, orgID                                uuid.UUID
		userID                                   *uuid.UUID
		status                                   string
		personal, contact, employment, education []byte
		experience, skills, documents, onboard   []byte
	)
	err := row.Scan(&id, &orgID, &userID, &status, &personal, &contact,
		&employment, &education, &experience, &skills, &documents, &onboard,
		&emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("employee not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan employee: %w", err)
	}

	emp.ID = domain.EmployeeID(id)
	emp.OrganizationID = domain.OrganizationID(orgID)
	if userID != nil {
		emp.UserID = domain.UserID(*userID)
	}
	emp.Status = models.Status(status)

	decodes := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"personal_info", personal, &emp.PersonalInfo},
		{"contact_info", contact, &emp.ContactInfo},
		{"employment_details", employment, &emp.EmploymentDetails},
		{"education", education, &emp.Education},
		{"work_experience", experience, &emp.WorkExperience},
		{"skills", skills, &emp.Skills},
		{"documents", documents, &emp.Documents},
		{"onboarding", onboard, &emp.Onboarding},
	}
	for _, d := range decodes {
		if err := json.Unmarshal(d.raw, d.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.name, err)
		}
	}
	return &emp, nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(employeeColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func nullableUserID(id domain.UserID) *uuid.UUID {
	if id.IsNil() {
		return nil
	}
	u := uuid.UUID(id)
	return &u
}

func isUniqueViolation(err error) bool {
	// 23505 = unique_violation
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}

package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"onward/internal/employee/models"
	"onward/internal/employee/store"
	"onward/pkg/domain"
)

type employeeResponse struct {
	ID                string                  `json:"id"`
	OrganizationID    string                  `json:"organization_id"`
	UserID            string                  `json:"user_id,omitempty"`
	Status            models.Status           `json:"status"`
	PersonalInfo      map[string]any          `json:"personal_info"`
	ContactInfo       map[string]any          `json:"contact_info"`
	EmploymentDetails map[string]any          `json:"employment_details"`
	Education         []map[string]any        `json:"education"`
	WorkExperience    []map[string]any        `json:"work_experience"`
	Skills            []string                `json:"skills"`
	Documents         []map[string]any        `json:"documents"`
	Onboarding        models.OnboardingRecord `json:"onboarding"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

func toEmployeeResponse(emp *models.Employee) employeeResponse {
	resp := employeeResponse{
		ID:                emp.ID.String(),
		OrganizationID:    emp.OrganizationID.String(),
		Status:            emp.Status,
		PersonalInfo:      emp.PersonalInfo,
		ContactInfo:       emp.ContactInfo,
		EmploymentDetails: emp.EmploymentDetails,
		Education:         emp.Education,
		WorkExperience:    emp.WorkExperience,
		Skills:            emp.Skills,
		Documents:         emp.Documents,
		Onboarding:        emp.Onboarding,
		CreatedAt:         emp.CreatedAt,
		UpdatedAt:         emp.UpdatedAt,
	}
	if !emp.UserID.IsNil() {
		resp.UserID = emp.UserID.String()
	}
	return resp
}

func toEmployeeResponses(emps []*models.Employee) []employeeResponse {
	out := make([]employeeResponse, len(emps))
	for i, emp := range emps {
		out[i] = toEmployeeResponse(emp)
	}
	return out
}

type createEmployeeRequest struct {
	UserID            string           `json:"user_id"`
	Status            string           `json:"status"`
	PersonalInfo      map[string]any   `json:"personal_info"`
	ContactInfo       map[string]any   `json:"contact_info"`
	EmploymentDetails map[string]any   `json:"employment_details"`
	Education         []map[string]any `json:"education"`
	WorkExperience    []map[string]any `json:"work_experience"`
	Skills            []string         `json:"skills"`
	Documents         []map[string]any `json:"documents"`
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req createEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	params := models.CreateParams{
		Status:            models.Status(req.Status),
		PersonalInfo:      req.PersonalInfo,
		ContactInfo:       req.ContactInfo,
		EmploymentDetails: req.EmploymentDetails,
		Education:         req.Education,
		WorkExperience:    req.WorkExperience,
		Skills:            req.Skills,
		Documents:         req.Documents,
	}
	if req.UserID != "" {
		userID, err := domain.ParseUserID(req.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		params.UserID = userID
	}

	emp, err := h.employees.Create(r.Context(), orgID, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeResponse(emp))
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, orgID, err := employeePathIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	emp, err := h.employees.GetByID(r.Context(), id, orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

// patchEmployeeRequest mirrors models.Patch with JSON presence semantics:
// keys absent from the body stay nil and untouched.
type patchEmployeeRequest struct {
	Status            *string                  `json:"status"`
	PersonalInfo      map[string]any           `json:"personal_info"`
	ContactInfo       map[string]any           `json:"contact_info"`
	EmploymentDetails map[string]any           `json:"employment_details"`
	Education         []map[string]any         `json:"education"`
	WorkExperience    []map[string]any         `json:"work_experience"`
	Skills            []string                 `json:"skills"`
	Documents         []map[string]any         `json:"documents"`
	Onboarding        *models.OnboardingRecord `json:"onboarding"`
}

func (h *Handler) patchEmployee(w http.ResponseWriter, r *http.Request) {
	id, orgID, err := employeePathIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req patchEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	patch := models.Patch{
		PersonalInfo:      req.PersonalInfo,
		ContactInfo:       req.ContactInfo,
		EmploymentDetails: req.EmploymentDetails,
		Education:         req.Education,
		WorkExperience:    req.WorkExperience,
		Skills:            req.Skills,
		Documents:         req.Documents,
		Onboarding:        req.Onboarding,
	}
	if req.Status != nil {
		status := models.Status(*req.Status)
		patch.Status = &status
	}

	emp, err := h.employees.Patch(r.Context(), id, orgID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

func (h *Handler) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, orgID, err := employeePathIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.employees.Delete(r.Context(), id, orgID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	filter := store.Filter{
		Status:     models.Status(q.Get("status")),
		Department: q.Get("department"),
		Search:     q.Get("search"),
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	employees, total, err := h.employees.List(r.Context(), orgID, filter, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employees": toEmployeeResponses(employees),
		"total":     total,
	})
}

func (h *Handler) listEmployeesByRelation(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	employees, err := h.employees.ListByRelation(r.Context(), orgID, q.Get("field"), q.Get("value"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employees": toEmployeeResponses(employees),
	})
}

func employeePathIDs(r *http.Request) (domain.EmployeeID, domain.OrganizationID, error) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		return domain.EmployeeID{}, domain.OrganizationID{}, err
	}
	id, err := domain.ParseEmployeeID(chi.URLParam(r, "employeeID"))
	if err != nil {
		return domain.EmployeeID{}, domain.OrganizationID{}, err
	}
	return id, orgID, nil
}

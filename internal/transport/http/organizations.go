package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	credmodels "onward/internal/credential/models"
	orgmodels "onward/internal/organization/models"
	"onward/pkg/domain"
	dErrors "onward/pkg/domain-errors"
)

type organizationResponse struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	Domain       string                       `json:"domain,omitempty"`
	Status       orgmodels.OrganizationStatus `json:"status"`
	SetupCodeTTL string                       `json:"setup_code_ttl,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

func toOrganizationResponse(org *orgmodels.Organization) organizationResponse {
	resp := organizationResponse{
		ID:        org.ID.String(),
		Name:      org.Name,
		Domain:    org.Domain,
		Status:    org.Status,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
	if org.SetupCodeTTL > 0 {
		resp.SetupCodeTTL = org.SetupCodeTTL.String()
	}
	return resp
}

type createOrganizationRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

func (h *Handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	org, err := h.organizations.Create(r.Context(), req.Name, req.Domain)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrganizationResponse(org))
}

func (h *Handler) getOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	org, err := h.organizations.GetByID(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}

func (h *Handler) suspendOrganization(w http.ResponseWriter, r *http.Request) {
	h.transitionOrganization(w, r, h.organizations.Suspend)
}

func (h *Handler) reactivateOrganization(w http.ResponseWriter, r *http.Request) {
	h.transitionOrganization(w, r, h.organizations.Reactivate)
}

func (h *Handler) transitionOrganization(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, id domain.OrganizationID) (*orgmodels.Organization, error)) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	org, err := apply(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}

// rotateOrganizationSecret mints a new provisioning secret. The plaintext
// appears only in this response; subsequent reads return the metadata alone.
func (h *Handler) rotateOrganizationSecret(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	secret, err := h.organizations.RotateSecret(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"secret": secret})
}

type organizationSettingsRequest struct {
	SetupCodeTTL string `json:"setup_code_ttl"`
}

// updateOrganizationSettings currently covers one knob, the setup code
// validity window. An empty duration string resets it to the engine default.
func (h *Handler) updateOrganizationSettings(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req organizationSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var ttl time.Duration
	if req.SetupCodeTTL != "" {
		if ttl, err = time.ParseDuration(req.SetupCodeTTL); err != nil {
			writeError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid setup_code_ttl"))
			return
		}
	}
	org, err := h.organizations.SetSetupCodeTTL(r.Context(), orgID, ttl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}

type issueSetupCodeRequest struct {
	UserID string            `json:"user_id"`
	TTL    string            `json:"ttl"`
	Meta   map[string]string `json:"metadata"`
}

type credentialResponse struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Secret    string     `json:"secret,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toCredentialResponse(rec *credmodels.Record, includeSecret bool) credentialResponse {
	resp := credentialResponse{
		ID:        rec.ID.String(),
		Kind:      string(rec.Kind),
		CreatedAt: rec.CreatedAt,
	}
	if includeSecret {
		resp.Secret = rec.Secret
	}
	if !rec.ExpiresAt.IsZero() {
		expires := rec.ExpiresAt
		resp.ExpiresAt = &expires
	}
	return resp
}

// issueSetupCode mints a setup code for provisioning a device or account
// under the organization. The plaintext code appears only in this response.
func (h *Handler) issueSetupCode(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	org, err := h.organizations.RequireActive(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	var req issueSetupCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	owner := credmodels.OwnerRef{OrganizationID: orgID}
	if req.UserID != "" {
		userID, err := domain.ParseUserID(req.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		owner.UserID = userID
	}
	// TTL precedence: explicit request, then the organization's configured
	// window, then the engine default.
	ttl := org.SetupCodeTTL
	if req.TTL != "" {
		if ttl, err = time.ParseDuration(req.TTL); err != nil {
			writeError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid ttl"))
			return
		}
	}

	rec, err := h.setupCodes.Issue(r.Context(), owner, ttl, req.Meta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCredentialResponse(rec, true))
}

type redeemSetupCodeRequest struct {
	Code string `json:"code"`
}

type redeemSetupCodeResponse struct {
	CredentialID   string            `json:"credential_id"`
	OrganizationID string            `json:"organization_id"`
	UserID         string            `json:"user_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// redeemSetupCode consumes the code exactly once and reveals the owning
// organization so the caller can finish provisioning against it.
func (h *Handler) redeemSetupCode(w http.ResponseWriter, r *http.Request) {
	var req redeemSetupCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.setupCodes.Redeem(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := redeemSetupCodeResponse{
		CredentialID:   rec.ID.String(),
		OrganizationID: rec.OrganizationID.String(),
		Metadata:       rec.Metadata,
	}
	if !rec.UserID.IsNil() {
		resp.UserID = rec.UserID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listSetupCodes(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	includeUsed := r.URL.Query().Get("include_used") == "true"

	records, err := h.setupCodes.ListActive(r.Context(),
		credmodels.OwnerRef{OrganizationID: orgID}, includeUsed)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]credentialResponse, len(records))
	for i, rec := range records {
		out[i] = toCredentialResponse(rec, false)
	}
	writeJSON(w, http.StatusOK, map[string]any{"setup_codes": out})
}

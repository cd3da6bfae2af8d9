package transport

import (
	"net/http"
	"time"

	"onward/pkg/domain"
)

type requestMagicLinkRequest struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
}

func (h *Handler) requestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req requestMagicLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID, err := domain.ParseUserID(req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	orgID, err := domain.ParseOrganizationID(req.OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.auth.RequestMagicLink(r.Context(), userID, orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	// The secret goes back to the caller for out-of-band delivery; in a
	// mail-integrated deployment this response would carry only the id.
	writeJSON(w, http.StatusCreated, toCredentialResponse(rec, true))
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type redeemMagicLinkRequest struct {
	Token string `json:"token"`
}

func (h *Handler) redeemMagicLink(w http.ResponseWriter, r *http.Request) {
	var req redeemMagicLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pair, err := h.auth.RedeemMagicLink(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenPairResponse(pair.AccessToken, pair.RefreshToken, pair.ExpiresIn))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenPairResponse(pair.AccessToken, pair.RefreshToken, pair.ExpiresIn))
}

func toTokenPairResponse(access, refresh string, expiresIn time.Duration) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(expiresIn.Seconds()),
	}
}

package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "onward/pkg/domain-errors"
	"onward/pkg/platform/sentinel"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError centralizes error translation so every handler returns the same
// JSON envelope. Sentinel errors from stores and coded domain errors both
// map here; anything unrecognized is a 500 with no internals leaked.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := string(dErrors.CodeInternal)
	message := "internal error"

	var dErr *dErrors.Error
	switch {
	case errors.As(err, &dErr):
		status = statusForCode(dErr.Code)
		code = string(dErr.Code)
		message = dErr.Message
	case errors.Is(err, sentinel.ErrNotFound):
		status = http.StatusNotFound
		code = string(dErrors.CodeNotFound)
		message = "not found"
	case errors.Is(err, sentinel.ErrExpired):
		status = http.StatusGone
		code = "expired"
		message = "credential has expired"
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		status = http.StatusConflict
		code = "already_used"
		message = "credential has already been used"
	case errors.Is(err, sentinel.ErrConflict):
		status = http.StatusConflict
		code = string(dErrors.CodeConflict)
		message = "conflict"
	case errors.Is(err, sentinel.ErrInvalidState):
		status = http.StatusUnprocessableEntity
		code = string(dErrors.CodeInvariantViolation)
		message = "invalid state"
	case errors.Is(err, sentinel.ErrUnavailable):
		status = http.StatusServiceUnavailable
		code = "unavailable"
		message = "dependency unavailable"
	}

	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

func statusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid request body")
	}
	return nil
}

package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"onward/internal/employee/models"
)

type advanceStageRequest struct {
	Stage string `json:"stage"`
}

func (h *Handler) advanceStage(w http.ResponseWriter, r *http.Request) {
	id, orgID, err := employeePathIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req advanceStageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	emp, err := h.onboarding.AdvanceStage(r.Context(), id, orgID, models.Stage(req.Stage))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

type setProgressRequest struct {
	Progress int `json:"progress"`
}

func (h *Handler) setProgress(w http.ResponseWriter, r *http.Request) {
	id, orgID, err := employeePathIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req setProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	emp, err := h.onboarding.SetProgress(r.Context(), id, orgID, req.Progress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

type updateTaskRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, orgID, err := employeePathIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	emp, err := h.onboarding.UpdateTask(r.Context(), id, orgID,
		chi.URLParam(r, "taskID"), models.TaskStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

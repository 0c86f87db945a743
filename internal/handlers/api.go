package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tagarr/internal/core"
	"tagarr/internal/database/models"
	"tagarr/internal/utils"

	"github.com/gorilla/mux"
)

type APIHandler struct {
	manager *core.Manager
	runs    *models.RunRepository
	logger  *utils.Logger
}

// A helper function to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to respond with a JSON error
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

func NewAPIHandler(manager *core.Manager, runs *models.RunRepository, logger *utils.Logger) *APIHandler {
	return &APIHandler{manager: manager, runs: runs, logger: logger}
}

func (h *APIHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Status())
}

func (h *APIHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.runs.GetRecent(limit)
	if err != nil {
		h.logger.Error("Failed to list runs:", err)
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (h *APIHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	id := mux.Vars(r)["id"]
	run, err := h.runs.GetByID(id)
	if err != nil {
		h.logger.Error("Failed to load run", id, ":", err)
		respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// TriggerRun wakes the poll loop if it is sleeping. A cycle already in
// progress is not interrupted.
func (h *APIHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	queued := h.manager.Trigger()
	respondJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

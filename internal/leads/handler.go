package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

// Recorder observes lead persistence outcomes; satisfied by the metrics package.
type Recorder interface {
	ObserveLeadSaved(result string)
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo     Repository
	logger   *logging.Logger
	recorder Recorder
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// WithRecorder attaches a metrics recorder.
func (h *Handler) WithRecorder(rec Recorder) *Handler {
	h.recorder = rec
	return h
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Create handles POST /api/leads: creates a lead, or refreshes the one with the
// same phone or email.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if req.Source == "" {
		req.Source = "web_form"
	}

	lead, created, err := h.repo.Upsert(r.Context(), &req)
	if err != nil {
		h.writeRepoError(w, "failed to save lead", err)
		return
	}
	h.observe(created)

	h.logger.Info("lead saved", "id", lead.ID, "created", created, "emergency_level", lead.EmergencyLevel)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, lead)
}

// ListLeads handles GET /api/leads
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	leads, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.writeRepoError(w, "failed to fetch leads", err)
		return
	}
	h.logger.Debug("leads listed", "count", len(leads))
	h.writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /api/leads/{id}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeRepoError(w, "failed to fetch lead", err)
		return
	}
	h.writeJSON(w, http.StatusOK, lead)
}

// UpdateLead handles PUT /api/leads/{id}
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Lead ID is required"})
		return
	}
	var req UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	lead, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		h.writeRepoError(w, "failed to update lead", err)
		return
	}
	h.logger.Info("lead updated", "id", lead.ID, "status", lead.Status)
	h.writeJSON(w, http.StatusOK, lead)
}

// DeleteLead handles DELETE /api/leads/{id}
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeRepoError(w, "failed to delete lead", err)
		return
	}
	h.logger.Info("lead deleted", "id", id)
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ExportCSV handles GET /api/leads/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	leads, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.writeRepoError(w, "failed to export leads", err)
		return
	}
	filename := fmt.Sprintf("leads-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, leads); err != nil {
		h.logger.Error("failed to write csv", "error", err)
	}
}

func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (ListLeadsFilter, bool) {
	var filter ListLeadsFilter
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		switch Status(status) {
		case StatusNew, StatusContacted, StatusScheduled, StatusCompleted:
			filter.Status = Status(status)
		default:
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown status " + strconv.Quote(status)})
			return filter, false
		}
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 500 {
			filter.Limit = limit
		}
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	return filter, true
}

func (h *Handler) observe(created bool) {
	if h.recorder == nil {
		return
	}
	if created {
		h.recorder.ObserveLeadSaved("created")
		return
	}
	h.recorder.ObserveLeadSaved("updated")
}

func (h *Handler) writeRepoError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrLeadNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case IsValidationError(err):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.logger.Error(msg, "error", err)
		if h.recorder != nil {
			h.recorder.ObserveLeadSaved("error")
		}
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg, Details: err.Error()})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"worklog/middleware"
	"worklog/models"
	"worklog/timeutil"
)

// WorklogHandler serves the per-day entry CRUD and range listing.
type WorklogHandler struct {
	entries EntryStore
	log     *zap.Logger
}

func NewWorklogHandler(entries EntryStore, log *zap.Logger) *WorklogHandler {
	return &WorklogHandler{entries: entries, log: log}
}

// GetDay returns every entry the caller recorded on the given date.
func (h *WorklogHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	day, err := h.entries.DayView(r.Context(), user.ID, date)
	if err != nil {
		h.log.Error("day view failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load worklog")
		return
	}
	respondJSON(w, http.StatusOK, day)
}

// SaveDay atomically replaces the caller's entries for the date.
func (h *WorklogHandler) SaveDay(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	var req models.SaveWorklogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var errs models.ValidationErrors
	for i := range req.Entries {
		req.Entries[i].Date = date
		errs = append(errs, req.Entries[i].Validate()...)
	}
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	day, err := h.entries.ReplaceDay(r.Context(), user.ID, date, req.Entries)
	if err != nil {
		h.log.Error("day replace failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to save worklog")
		return
	}
	respondJSON(w, http.StatusOK, day)
}

// CreateEntry appends a single entry to the date.
func (h *WorklogHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	var create models.WorklogEntryCreate
	if !decodeJSON(w, r, &create) {
		return
	}
	create.Date = date
	if errs := create.Validate(); len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	entry, err := h.entries.Create(r.Context(), user.ID, create)
	if err != nil {
		h.log.Error("entry create failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create entry")
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// GetEntry returns a single entry owned by the caller.
func (h *WorklogHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, ok := entryIDParam(w, r)
	if !ok {
		return
	}

	entry, err := h.entries.Get(r.Context(), user.ID, id)
	if err != nil {
		respondStoreError(w, h.log, err, "Failed to load entry")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// UpdateEntry applies a partial update to an entry owned by the caller.
func (h *WorklogHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, ok := entryIDParam(w, r)
	if !ok {
		return
	}

	var update models.WorklogEntryUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	entry, err := h.entries.Update(r.Context(), user.ID, id, update)
	if err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			respondValidation(w, verrs)
			return
		}
		respondStoreError(w, h.log, err, "Failed to update entry")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// DeleteEntry removes an entry owned by the caller.
func (h *WorklogHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, ok := entryIDParam(w, r)
	if !ok {
		return
	}

	if err := h.entries.Delete(r.Context(), user.ID, id); err != nil {
		respondStoreError(w, h.log, err, "Failed to delete entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRange lists the caller's entries across an inclusive date window.
func (h *WorklogHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	start, err := timeutil.ParseDate(r.URL.Query().Get("start_date"))
	if err != nil {
		respondValidation(w, models.ValidationErrors{{Field: "start_date", Message: err.Error()}})
		return
	}
	end, err := timeutil.ParseDate(r.URL.Query().Get("end_date"))
	if err != nil {
		respondValidation(w, models.ValidationErrors{{Field: "end_date", Message: err.Error()}})
		return
	}
	if start.After(end) {
		respondValidation(w, models.ValidationErrors{{Field: "end_date", Message: "end_date must not be before start_date"}})
		return
	}

	entries, err := h.entries.Range(r.Context(), user.ID, start, end)
	if err != nil {
		h.log.Error("range query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load worklog range")
		return
	}
	if entries == nil {
		entries = []models.WorklogEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

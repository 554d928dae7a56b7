// Package handlers implements the HTTP surface. Handlers validate and
// translate between wire models and storage rows; all heavy lifting lives in
// the store, identity, and jira packages behind narrow interfaces.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"worklog/models"
	"worklog/store"
	"worklog/timeutil"
)

// EntryStore is the owner-scoped persistence contract for worklog entries.
type EntryStore interface {
	DayView(ctx context.Context, userID uuid.UUID, date timeutil.Date) (models.DayWorklog, error)
	Create(ctx context.Context, userID uuid.UUID, create models.WorklogEntryCreate) (models.WorklogEntry, error)
	Get(ctx context.Context, userID uuid.UUID, id uint) (models.WorklogEntry, error)
	Update(ctx context.Context, userID uuid.UUID, id uint, update models.WorklogEntryUpdate) (models.WorklogEntry, error)
	Delete(ctx context.Context, userID uuid.UUID, id uint) error
	ReplaceDay(ctx context.Context, userID uuid.UUID, date timeutil.Date, creates []models.WorklogEntryCreate) (models.DayWorklog, error)
	Range(ctx context.Context, userID uuid.UUID, start, end timeutil.Date) ([]models.WorklogEntry, error)
	Unlogged(ctx context.Context, userID uuid.UUID, date timeutil.Date) ([]models.WorklogEntry, error)
	MarkLogged(ctx context.Context, userID uuid.UUID, id uint, jiraWorklogID string) error
}

// ConfigStore is the tracker-credentials contract.
type ConfigStore interface {
	Get(ctx context.Context, userID uuid.UUID) (models.JiraConfigResponse, error)
	Update(ctx context.Context, userID uuid.UUID, update models.JiraConfigUpdate) (models.JiraConfigResponse, error)
}

// Submitter is the issue-tracker submission contract.
type Submitter interface {
	LogEntry(ctx context.Context, userID uuid.UUID, entry *models.WorklogEntry) models.LogToJiraResponse
	BulkLogEntries(ctx context.Context, userID uuid.UUID, entries []models.WorklogEntry) models.BulkLogToJiraResponse
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondValidation renders the 422 machine-readable field-error list.
func respondValidation(w http.ResponseWriter, errs models.ValidationErrors) {
	respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": errs})
}

// decodeJSON reads the request body into v. A malformed body is a validation
// failure on the body itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondValidation(w, models.ValidationErrors{{Field: "body", Message: err.Error()}})
		return false
	}
	return true
}

// dateParam parses the {date} path segment.
func dateParam(w http.ResponseWriter, r *http.Request) (timeutil.Date, bool) {
	date, err := timeutil.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondValidation(w, models.ValidationErrors{{Field: "date", Message: err.Error()}})
		return timeutil.Date{}, false
	}
	return date, true
}

// respondStoreError maps a missing row to a 404 and everything else to a 500.
func respondStoreError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Entry not found")
		return
	}
	log.Error(fallback, zap.Error(err))
	respondError(w, http.StatusInternalServerError, fallback)
}

// entryIDParam parses the {entryID} path segment.
func entryIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "entryID"), 10, 32)
	if err != nil {
		respondError(w, http.StatusNotFound, "Entry not found")
		return 0, false
	}
	return uint(id), true
}

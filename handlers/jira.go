package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"worklog/middleware"
	"worklog/models"
)

// JiraHandler serves tracker credential management and worklog submission.
type JiraHandler struct {
	entries   EntryStore
	configs   ConfigStore
	submitter Submitter
	log       *zap.Logger
}

func NewJiraHandler(entries EntryStore, configs ConfigStore, submitter Submitter, log *zap.Logger) *JiraHandler {
	return &JiraHandler{entries: entries, configs: configs, submitter: submitter, log: log}
}

// GetConfig reports whether tracker credentials are on file. The token itself
// is never returned.
func (h *JiraHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	cfg, err := h.configs.Get(r.Context(), user.ID)
	if err != nil {
		h.log.Error("jira config load failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load JIRA configuration")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// UpdateConfig upserts the caller's tracker credentials.
func (h *JiraHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var update models.JiraConfigUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	if errs := update.Validate(); len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	cfg, err := h.configs.Update(r.Context(), user.ID, update)
	if err != nil {
		h.log.Error("jira config update failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to save JIRA configuration")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// LogEntry submits one entry to the tracker. An entry already marked as logged
// short-circuits without an outbound call.
func (h *JiraHandler) LogEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if _, ok := dateParam(w, r); !ok {
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
	if entry.LoggedToJira {
		respondJSON(w, http.StatusOK, models.LogToJiraResponse{
			Success:       true,
			EntryID:       entry.ID,
			JiraWorklogID: entry.JiraWorklogID,
			AlreadyLogged: true,
		})
		return
	}

	result := h.submitter.LogEntry(r.Context(), user.ID, &entry)
	if result.Success {
		if err := h.entries.MarkLogged(r.Context(), user.ID, entry.ID, result.JiraWorklogID); err != nil {
			h.log.Error("mark logged failed", zap.Uint("entry_id", entry.ID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to record JIRA submission")
			return
		}
	}
	respondJSON(w, http.StatusOK, result)
}

// BulkLog submits every not-yet-logged entry of the date, aggregated per issue
// key, then marks the entries of each successful group.
func (h *JiraHandler) BulkLog(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	entries, err := h.entries.Unlogged(r.Context(), user.ID, date)
	if err != nil {
		h.log.Error("unlogged query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load worklog")
		return
	}

	result := h.submitter.BulkLogEntries(r.Context(), user.ID, entries)
	for _, group := range result.Results {
		if !group.Success {
			continue
		}
		for _, entryID := range group.EntryIDs {
			if err := h.entries.MarkLogged(r.Context(), user.ID, entryID, group.JiraWorklogID); err != nil {
				h.log.Error("mark logged failed",
					zap.String("issue_key", group.IssueKey),
					zap.Uint("entry_id", entryID),
					zap.Error(err))
			}
		}
	}
	respondJSON(w, http.StatusOK, result)
}

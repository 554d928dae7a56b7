package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"worklog/database"
)

// StatusHandler serves liveness and readiness endpoints.
type StatusHandler struct {
	db  *gorm.DB
	env string
}

func NewStatusHandler(db *gorm.DB, env string) *StatusHandler {
	return &StatusHandler{db: db, env: env}
}

// Health is the unauthenticated liveness probe.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// APIStatus reports service identity and environment.
func (h *StatusHandler) APIStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service":     "worklog-api",
		"environment": h.env,
		"status":      "running",
	})
}

// DBStatus reports whether the schema has been migrated.
func (h *StatusHandler) DBStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, database.Status(h.db))
}

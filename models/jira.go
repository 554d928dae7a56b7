package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxJiraURLLen bounds the stored tracker base URL and email.
	MaxJiraURLLen = 255
	// MaxJiraTokenLen bounds the raw API token before sealing.
	MaxJiraTokenLen = 500
)

// UserJiraConfig holds one user's issue-tracker credentials. The API token is
// sealed before it reaches the row and is never serialized back out.
type UserJiraConfig struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	JiraBaseURL   string    `gorm:"size:255" json:"jira_base_url,omitempty"`
	JiraUserEmail string    `gorm:"size:255" json:"jira_user_email,omitempty"`
	JiraAPIToken  string    `gorm:"size:1024" json:"-"`
}

// JiraConfigUpdate carries a partial credentials update; nil fields are kept.
type JiraConfigUpdate struct {
	JiraBaseURL   *string `json:"jira_base_url,omitempty"`
	JiraUserEmail *string `json:"jira_user_email,omitempty"`
	JiraAPIToken  *string `json:"jira_api_token,omitempty"`
}

// Validate bounds the credential field lengths.
func (u *JiraConfigUpdate) Validate() ValidationErrors {
	var errs ValidationErrors
	if u.JiraBaseURL != nil && len(*u.JiraBaseURL) > MaxJiraURLLen {
		errs = append(errs, FieldError{
			Field:   "jira_base_url",
			Message: fmt.Sprintf("must be at most %d characters", MaxJiraURLLen),
		})
	}
	if u.JiraUserEmail != nil && len(*u.JiraUserEmail) > MaxJiraURLLen {
		errs = append(errs, FieldError{
			Field:   "jira_user_email",
			Message: fmt.Sprintf("must be at most %d characters", MaxJiraURLLen),
		})
	}
	if u.JiraAPIToken != nil && len(*u.JiraAPIToken) > MaxJiraTokenLen {
		errs = append(errs, FieldError{
			Field:   "jira_api_token",
			Message: fmt.Sprintf("must be at most %d characters", MaxJiraTokenLen),
		})
	}
	return errs
}

// JiraConfigResponse reports configuration status without exposing secrets.
type JiraConfigResponse struct {
	Configured bool   `json:"configured"`
	BaseURL    string `json:"base_url,omitempty"`
	HasToken   bool   `json:"has_token"`
	HasEmail   bool   `json:"has_email"`
}

// LogToJiraResponse is the per-entry submission result. AlreadyLogged marks
// the synthetic success returned when the entry was submitted previously; the
// error field is reserved for genuine failures.
type LogToJiraResponse struct {
	Success       bool   `json:"success"`
	EntryID       uint   `json:"entry_id"`
	JiraWorklogID string `json:"jira_worklog_id,omitempty"`
	AlreadyLogged bool   `json:"already_logged,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BulkLogResult is one aggregated group's submission outcome.
type BulkLogResult struct {
	IssueKey      string `json:"issue_key"`
	Success       bool   `json:"success"`
	EntryIDs      []uint `json:"entry_ids"`
	Duration      string `json:"duration"`
	JiraWorklogID string `json:"jira_worklog_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BulkLogToJiraResponse summarizes a whole bulk submission. Success is true
// iff no group failed; callers inspect the counts, not the HTTP status.
type BulkLogToJiraResponse struct {
	Success      bool            `json:"success"`
	TotalIssues  int             `json:"total_issues"`
	SuccessCount int             `json:"success_count"`
	FailureCount int             `json:"failure_count"`
	Results      []BulkLogResult `json:"results"`
}

// DbStatus is the migration/readiness report for /api/db/status.
type DbStatus struct {
	Initialized bool   `json:"initialized"`
	TablesExist bool   `json:"tables_exist"`
	Message     string `json:"message"`
}

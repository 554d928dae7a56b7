package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"worklog/timeutil"
)

const (
	// MaxIssueKeyLen bounds issue-tracker keys like "PROJ-123".
	MaxIssueKeyLen = 50
	// MaxDescriptionLen bounds the free-text work description.
	MaxDescriptionLen = 2000
)

// WorklogEntry is a single unit of recorded work, owned by exactly one user.
type WorklogEntry struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	UserID        uuid.UUID          `gorm:"type:uuid;not null;index:idx_worklog_user_date" json:"user_id"`
	Date          timeutil.Date      `gorm:"type:date;not null;index:idx_worklog_user_date" json:"date"`
	IssueKey      string             `gorm:"not null;size:50" json:"issue_key"`
	StartTime     timeutil.TimeOfDay `gorm:"type:time;not null" json:"start_time"`
	EndTime       timeutil.TimeOfDay `gorm:"type:time;not null" json:"end_time"`
	Description   string             `gorm:"size:2000" json:"description,omitempty"`
	LoggedToJira  bool               `gorm:"not null;default:false" json:"logged_to_jira"`
	JiraWorklogID string             `gorm:"size:64" json:"jira_worklog_id,omitempty"`
}

// DurationMinutes returns the entry's length in whole minutes.
func (e *WorklogEntry) DurationMinutes() int {
	return timeutil.MinutesBetween(e.StartTime, e.EndTime)
}

// DurationFormatted renders the entry's length as "2h 30m".
func (e *WorklogEntry) DurationFormatted() string {
	return timeutil.FormatMinutes(e.DurationMinutes())
}

// WorklogEntryCreate carries the client-supplied fields for a new entry.
type WorklogEntryCreate struct {
	Date        timeutil.Date      `json:"date"`
	IssueKey    string             `json:"issue_key"`
	StartTime   timeutil.TimeOfDay `json:"start_time"`
	EndTime     timeutil.TimeOfDay `json:"end_time"`
	Description string             `json:"description,omitempty"`
}

// Validate normalizes the issue key in place and checks the structural
// invariants. It returns a ValidationErrors value listing every violated
// field, or nil when the entry is acceptable.
func (c *WorklogEntryCreate) Validate() ValidationErrors {
	var errs ValidationErrors

	key, err := NormalizeIssueKey(c.IssueKey)
	if err != nil {
		errs = append(errs, FieldError{Field: "issue_key", Message: err.Error()})
	} else {
		c.IssueKey = key
	}

	if !c.EndTime.After(c.StartTime) {
		errs = append(errs, FieldError{Field: "end_time", Message: "end time must be after start time"})
	}

	if len(c.Description) > MaxDescriptionLen {
		errs = append(errs, FieldError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at most %d characters", MaxDescriptionLen),
		})
	}

	return errs
}

// NormalizeIssueKey trims and uppercases an issue key ("proj-1" -> "PROJ-1").
func NormalizeIssueKey(key string) (string, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return "", fmt.Errorf("issue key cannot be empty")
	}
	if len(key) > MaxIssueKeyLen {
		return "", fmt.Errorf("issue key must be at most %d characters", MaxIssueKeyLen)
	}
	return key, nil
}

// WorklogEntryUpdate is a partial update; nil fields are left untouched.
type WorklogEntryUpdate struct {
	IssueKey      *string             `json:"issue_key,omitempty"`
	StartTime     *timeutil.TimeOfDay `json:"start_time,omitempty"`
	EndTime       *timeutil.TimeOfDay `json:"end_time,omitempty"`
	Description   *string             `json:"description,omitempty"`
	LoggedToJira  *bool               `json:"logged_to_jira,omitempty"`
	JiraWorklogID *string             `json:"jira_worklog_id,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u *WorklogEntryUpdate) IsEmpty() bool {
	return u.IssueKey == nil && u.StartTime == nil && u.EndTime == nil &&
		u.Description == nil && u.LoggedToJira == nil && u.JiraWorklogID == nil
}

// Apply merges the update onto an entry and re-checks the invariants on the
// merged result, so a partial update can never break time ordering.
func (u *WorklogEntryUpdate) Apply(entry *WorklogEntry) ValidationErrors {
	var errs ValidationErrors

	if u.IssueKey != nil {
		key, err := NormalizeIssueKey(*u.IssueKey)
		if err != nil {
			errs = append(errs, FieldError{Field: "issue_key", Message: err.Error()})
		} else {
			entry.IssueKey = key
		}
	}
	if u.StartTime != nil {
		entry.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		entry.EndTime = *u.EndTime
	}
	if !entry.EndTime.After(entry.StartTime) {
		errs = append(errs, FieldError{Field: "end_time", Message: "end time must be after start time"})
	}
	if u.Description != nil {
		if len(*u.Description) > MaxDescriptionLen {
			errs = append(errs, FieldError{
				Field:   "description",
				Message: fmt.Sprintf("description must be at most %d characters", MaxDescriptionLen),
			})
		} else {
			entry.Description = *u.Description
		}
	}
	if u.LoggedToJira != nil {
		entry.LoggedToJira = *u.LoggedToJira
	}
	if u.JiraWorklogID != nil {
		entry.JiraWorklogID = *u.JiraWorklogID
	}

	return errs
}

// SaveWorklogRequest replaces all of a day's entries at once.
type SaveWorklogRequest struct {
	Entries []WorklogEntryCreate `json:"entries"`
}

// DayWorklog is the derived read-only view of one user's day: entries ordered
// by start time plus their summed duration. Recomputed on every read, never
// stored.
type DayWorklog struct {
	Date         timeutil.Date  `json:"date"`
	Entries      []WorklogEntry `json:"entries"`
	TotalMinutes int            `json:"total_minutes"`
}

// NewDayWorklog builds the day view from already-ordered entries.
func NewDayWorklog(date timeutil.Date, entries []WorklogEntry) DayWorklog {
	total := 0
	for i := range entries {
		total += entries[i].DurationMinutes()
	}
	if entries == nil {
		entries = []WorklogEntry{}
	}
	return DayWorklog{Date: date, Entries: entries, TotalMinutes: total}
}

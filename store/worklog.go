// Package store is the persistence layer for worklog entries and tracker
// credentials. Every query is scoped to the owning user: no operation can
// read or touch another user's rows.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"worklog/models"
	"worklog/timeutil"
)

// ErrNotFound marks an entry id that does not exist or belongs to another
// user; the two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("entry not found")

// WorklogStore performs owner-scoped CRUD over worklog entries.
type WorklogStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewWorklogStore(db *gorm.DB, log *zap.Logger) *WorklogStore {
	return &WorklogStore{db: db, log: log}
}

func (s *WorklogStore) scoped(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return s.db.WithContext(ctx).Where("user_id = ?", userID)
}

// DayView returns the derived day aggregate: the user's entries for the date
// ordered by start time, plus their summed minutes.
func (s *WorklogStore) DayView(ctx context.Context, userID uuid.UUID, date timeutil.Date) (models.DayWorklog, error) {
	var entries []models.WorklogEntry
	err := s.scoped(ctx, userID).
		Where("date = ?", date).
		Order("start_time").
		Find(&entries).Error
	if err != nil {
		return models.DayWorklog{}, err
	}
	return models.NewDayWorklog(date, entries), nil
}

// Create inserts one validated entry for the user.
func (s *WorklogStore) Create(ctx context.Context, userID uuid.UUID, create models.WorklogEntryCreate) (models.WorklogEntry, error) {
	entry := models.WorklogEntry{
		UserID:      userID,
		Date:        create.Date,
		IssueKey:    create.IssueKey,
		StartTime:   create.StartTime,
		EndTime:     create.EndTime,
		Description: create.Description,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return models.WorklogEntry{}, err
	}
	return entry, nil
}

// Get fetches one entry owned by the user.
func (s *WorklogStore) Get(ctx context.Context, userID uuid.UUID, id uint) (models.WorklogEntry, error) {
	var entry models.WorklogEntry
	err := s.scoped(ctx, userID).Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.WorklogEntry{}, ErrNotFound
	}
	if err != nil {
		return models.WorklogEntry{}, err
	}
	return entry, nil
}

// Update applies a partial update to an owned entry. The merged entry is
// re-validated, so the returned error may be a models.ValidationErrors.
func (s *WorklogStore) Update(ctx context.Context, userID uuid.UUID, id uint, update models.WorklogEntryUpdate) (models.WorklogEntry, error) {
	entry, err := s.Get(ctx, userID, id)
	if err != nil {
		return models.WorklogEntry{}, err
	}
	if update.IsEmpty() {
		return entry, nil
	}
	if errs := update.Apply(&entry); errs != nil {
		return models.WorklogEntry{}, errs
	}
	if err := s.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return models.WorklogEntry{}, err
	}
	return entry, nil
}

// Delete removes an owned entry.
func (s *WorklogStore) Delete(ctx context.Context, userID uuid.UUID, id uint) error {
	result := s.scoped(ctx, userID).Where("id = ?", id).Delete(&models.WorklogEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceDay swaps all of the user's entries for a date with the given set,
// atomically. Replaced entries start unsubmitted.
func (s *WorklogStore) ReplaceDay(ctx context.Context, userID uuid.UUID, date timeutil.Date, creates []models.WorklogEntryCreate) (models.DayWorklog, error) {
	var saved []models.WorklogEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND date = ?", userID, date).
			Delete(&models.WorklogEntry{}).Error; err != nil {
			return err
		}
		if len(creates) == 0 {
			return nil
		}
		saved = make([]models.WorklogEntry, len(creates))
		for i, c := range creates {
			saved[i] = models.WorklogEntry{
				UserID:      userID,
				Date:        date,
				IssueKey:    c.IssueKey,
				StartTime:   c.StartTime,
				EndTime:     c.EndTime,
				Description: c.Description,
			}
		}
		return tx.Create(&saved).Error
	})
	if err != nil {
		return models.DayWorklog{}, err
	}
	return models.NewDayWorklog(date, saved), nil
}

// Range returns the user's entries between two dates inclusive, ordered by
// date then start time.
func (s *WorklogStore) Range(ctx context.Context, userID uuid.UUID, start, end timeutil.Date) ([]models.WorklogEntry, error) {
	var entries []models.WorklogEntry
	err := s.scoped(ctx, userID).
		Where("date >= ? AND date <= ?", start, end).
		Order("date, start_time").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Unlogged returns the user's not-yet-submitted entries for a date, ordered
// by start time; this is the bulk submission's input.
func (s *WorklogStore) Unlogged(ctx context.Context, userID uuid.UUID, date timeutil.Date) ([]models.WorklogEntry, error) {
	var entries []models.WorklogEntry
	err := s.scoped(ctx, userID).
		Where("date = ? AND logged_to_jira = ?", date, false).
		Order("start_time").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkLogged records a successful submission on an owned entry. The
// transition is one-way; nothing ever clears the flag here.
func (s *WorklogStore) MarkLogged(ctx context.Context, userID uuid.UUID, id uint, jiraWorklogID string) error {
	result := s.scoped(ctx, userID).
		Model(&models.WorklogEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"logged_to_jira":  true,
			"jira_worklog_id": jiraWorklogID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

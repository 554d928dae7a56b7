package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"worklog/jira"
	"worklog/models"
	"worklog/secrets"
)

// JiraConfigStore keeps one tracker-credentials row per user. API tokens are
// sealed before they reach the row when a seal box is configured.
type JiraConfigStore struct {
	db  *gorm.DB
	box *secrets.Box
	log *zap.Logger
}

// NewJiraConfigStore builds the store; box may be nil, in which case tokens
// are stored as given.
func NewJiraConfigStore(db *gorm.DB, box *secrets.Box, log *zap.Logger) *JiraConfigStore {
	return &JiraConfigStore{db: db, box: box, log: log}
}

// Get reports the user's configuration status without exposing the token.
// A user with no stored row is simply unconfigured, not an error.
func (s *JiraConfigStore) Get(ctx context.Context, userID uuid.UUID) (models.JiraConfigResponse, error) {
	var cfg models.UserJiraConfig
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.JiraConfigResponse{}, nil
	}
	if err != nil {
		return models.JiraConfigResponse{}, err
	}
	return models.JiraConfigResponse{
		Configured: cfg.JiraBaseURL != "",
		BaseURL:    cfg.JiraBaseURL,
		HasToken:   cfg.JiraAPIToken != "",
		HasEmail:   cfg.JiraUserEmail != "",
	}, nil
}

// Update upserts the user's credentials row, only touching fields present in
// the update.
func (s *JiraConfigStore) Update(ctx context.Context, userID uuid.UUID, update models.JiraConfigUpdate) (models.JiraConfigResponse, error) {
	var cfg models.UserJiraConfig
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.UserJiraConfig{UserID: userID}
	} else if err != nil {
		return models.JiraConfigResponse{}, err
	}

	if update.JiraBaseURL != nil {
		cfg.JiraBaseURL = *update.JiraBaseURL
	}
	if update.JiraUserEmail != nil {
		cfg.JiraUserEmail = *update.JiraUserEmail
	}
	if update.JiraAPIToken != nil {
		token := *update.JiraAPIToken
		if s.box != nil && token != "" {
			sealed, err := s.box.Seal(token)
			if err != nil {
				return models.JiraConfigResponse{}, err
			}
			token = sealed
		}
		cfg.JiraAPIToken = token
	}

	if err := s.db.WithContext(ctx).Save(&cfg).Error; err != nil {
		return models.JiraConfigResponse{}, err
	}
	return models.JiraConfigResponse{
		Configured: cfg.JiraBaseURL != "",
		BaseURL:    cfg.JiraBaseURL,
		HasToken:   cfg.JiraAPIToken != "",
		HasEmail:   cfg.JiraUserEmail != "",
	}, nil
}

// Credentials implements jira.CredentialSource: it resolves and unseals the
// user's stored credentials. A missing row yields zero credentials.
func (s *JiraConfigStore) Credentials(ctx context.Context, userID uuid.UUID) (jira.Credentials, error) {
	var cfg models.UserJiraConfig
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jira.Credentials{}, nil
	}
	if err != nil {
		return jira.Credentials{}, err
	}

	token := cfg.JiraAPIToken
	if s.box != nil && token != "" {
		opened, err := s.box.Open(token)
		if err != nil {
			s.log.Error("unsealing stored tracker token",
				zap.String("user_id", userID.String()), zap.Error(err))
			return jira.Credentials{}, err
		}
		token = opened
	}
	return jira.Credentials{
		BaseURL:  cfg.JiraBaseURL,
		Email:    cfg.JiraUserEmail,
		APIToken: token,
	}, nil
}

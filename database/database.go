package database

import (
	"worklog/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the Postgres connection and migrates the schema. The returned
// handle is shared by every request; GORM pools connections underneath.
func Init(dsn string, verbose bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if verbose {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.WorklogEntry{}, &models.UserJiraConfig{}); err != nil {
		return nil, err
	}

	return db, nil
}

// Status reports whether the worklog tables exist.
func Status(db *gorm.DB) models.DbStatus {
	migrator := db.Migrator()
	if migrator.HasTable(&models.WorklogEntry{}) && migrator.HasTable(&models.UserJiraConfig{}) {
		return models.DbStatus{
			Initialized: true,
			TablesExist: true,
			Message:     "Database is initialized and ready",
		}
	}
	return models.DbStatus{
		Initialized: false,
		TablesExist: false,
		Message:     "Database tables not found. Run initialization.",
	}
}

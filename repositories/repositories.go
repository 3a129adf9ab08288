package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// Repositories struct holds all repository interfaces
type Repositories struct {
	Users      UserRepository
	Prompts    PromptRepository
	Settings   SettingsRepository
	Activity   ActivityRepository
	Exports    ExportRepository
	Blobs      BlobStore
	Dataset    DatasetRepository
	Deletions  DeletionRepository
	Webhooks   WebhookRepository
	Deliveries DeliveryRepository
}

// NewRepositories creates and initializes all repositories
func NewRepositories(db *sql.DB) *Repositories {
	xdb := sqlx.NewDb(db, "sqlite3")

	return &Repositories{
		Users:      NewUserRepository(xdb),
		Prompts:    NewPromptRepository(xdb),
		Settings:   NewSettingsRepository(xdb),
		Activity:   NewActivityRepository(xdb),
		Exports:    NewExportRepository(xdb),
		Blobs:      NewBlobStore(xdb),
		Dataset:    NewDatasetRepository(xdb),
		Deletions:  NewDeletionRepository(xdb),
		Webhooks:   NewWebhookRepository(xdb),
		Deliveries: NewDeliveryRepository(xdb),
	}
}

// getError maps a missing row to models.ErrNotFound
func getError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// requireAffected returns models.ErrNotFound when an update touched no row
func requireAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}

	return nil
}

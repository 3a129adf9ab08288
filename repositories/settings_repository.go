package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// SettingsRepository interface defines per-owner settings database operations
type SettingsRepository interface {
	GetAll(ctx context.Context, ownerID string) ([]models.Setting, error)
	Upsert(ctx context.Context, ownerID string, values map[string]string) error
}

type settingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// GetAll retrieves all settings of an owner ordered by key
func (r *settingsRepository) GetAll(ctx context.Context, ownerID string) ([]models.Setting, error) {
	query := `
		SELECT owner_id, key, value, updated_at
		FROM user_settings
		WHERE owner_id = ?
		ORDER BY key ASC
	`

	settings := []models.Setting{}
	if err := r.db.SelectContext(ctx, &settings, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	return settings, nil
}

// Upsert writes all values in one transaction
func (r *settingsRepository) Upsert(ctx context.Context, ownerID string, values map[string]string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO user_settings (owner_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := time.Now().UTC()
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, query, ownerID, key, values[key], now); err != nil {
			return fmt.Errorf("failed to update setting %s: %w", key, err)
		}
	}

	return tx.Commit()
}

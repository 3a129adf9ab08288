package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// ActivityRepository handles activity log persistence
type ActivityRepository interface {
	Create(ctx context.Context, entry *models.ActivityEntry) error
	ListByOwner(ctx context.Context, ownerID string, page models.Page) ([]models.ActivityEntry, error)
}

type activityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Create inserts a new activity log entry
func (r *activityRepository) Create(ctx context.Context, entry *models.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO activity_log (id, owner_id, action, method, path, details, ip_address, user_agent, created_at)
		VALUES (:id, :owner_id, :action, :method, :path, :details, :ip_address, :user_agent, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to create activity entry: %w", err)
	}

	return nil
}

// ListByOwner retrieves one page of an owner's activity, newest first
func (r *activityRepository) ListByOwner(ctx context.Context, ownerID string, page models.Page) ([]models.ActivityEntry, error) {
	page = page.Normalize()
	query := `
		SELECT id, owner_id, action, method, path, details, ip_address, user_agent, created_at
		FROM activity_log
		WHERE owner_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	entries := []models.ActivityEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, ownerID, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}

	return entries, nil
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// WebhookRepository interface defines webhook subscription database operations
type WebhookRepository interface {
	Create(ctx context.Context, webhook *models.Webhook) error
	GetByID(ctx context.Context, id string) (*models.Webhook, error)
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.Webhook, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Webhook, error)
	ListSubscribed(ctx context.Context, ownerID, event string) ([]models.Webhook, error)
	Update(ctx context.Context, webhook *models.Webhook) error
	Delete(ctx context.Context, id, ownerID string) error
}

type webhookRepository struct {
	db *sqlx.DB
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(db *sqlx.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

const webhookColumns = `id, owner_id, url, secret, event_types, enabled, description, created_at, updated_at`

// Create creates a new webhook
func (r *webhookRepository) Create(ctx context.Context, webhook *models.Webhook) error {
	if webhook.CreatedAt.IsZero() {
		webhook.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO webhooks (id, owner_id, url, secret, event_types, enabled, description, created_at)
		VALUES (:id, :owner_id, :url, :secret, :event_types, :enabled, :description, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, webhook); err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

// GetByID retrieves a webhook regardless of owner
func (r *webhookRepository) GetByID(ctx context.Context, id string) (*models.Webhook, error) {
	var webhook models.Webhook
	if err := r.db.GetContext(ctx, &webhook, `SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, id); err != nil {
		return nil, getError(err, "webhook "+id)
	}
	return &webhook, nil
}

// GetByIDForOwner retrieves a webhook; another owner's webhook is reported as not found
func (r *webhookRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.Webhook, error) {
	var webhook models.Webhook
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = ? AND owner_id = ?`
	if err := r.db.GetContext(ctx, &webhook, query, id, ownerID); err != nil {
		return nil, getError(err, "webhook "+id)
	}
	return &webhook, nil
}

// ListByOwner retrieves all webhooks of an owner, oldest first
func (r *webhookRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE owner_id = ? ORDER BY created_at, id`

	webhooks := []models.Webhook{}
	if err := r.db.SelectContext(ctx, &webhooks, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}

	return webhooks, nil
}

// ListSubscribed retrieves the owner's enabled webhooks subscribed to event
func (r *webhookRepository) ListSubscribed(ctx context.Context, ownerID, event string) ([]models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE owner_id = ? AND enabled = 1 ORDER BY created_at, id`

	var enabled []models.Webhook
	if err := r.db.SelectContext(ctx, &enabled, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}

	subscribed := []models.Webhook{}
	for _, webhook := range enabled {
		if webhook.Subscribed(event) {
			subscribed = append(subscribed, webhook)
		}
	}

	return subscribed, nil
}

// Update updates an existing webhook of the same owner
func (r *webhookRepository) Update(ctx context.Context, webhook *models.Webhook) error {
	now := time.Now().UTC()
	webhook.UpdatedAt = &now

	query := `
		UPDATE webhooks
		SET url = :url, event_types = :event_types, enabled = :enabled,
		    description = :description, updated_at = :updated_at
		WHERE id = :id AND owner_id = :owner_id
	`

	result, err := r.db.NamedExecContext(ctx, query, webhook)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}

	return requireAffected(result, "webhook "+webhook.ID)
}

// Delete removes a webhook and its delivery history
func (r *webhookRepository) Delete(ctx context.Context, id, ownerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM webhook_deliveries WHERE webhook_id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete webhook deliveries: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	if err := requireAffected(result, "webhook "+id); err != nil {
		return err
	}

	return tx.Commit()
}

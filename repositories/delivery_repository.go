package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// DeliveryRepository interface defines webhook delivery database operations
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *models.WebhookDelivery) error
	Update(ctx context.Context, delivery *models.WebhookDelivery) error
	ClaimAttempt(ctx context.Context, id string, attempt int) error
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.WebhookDelivery, error)
	ListByWebhook(ctx context.Context, webhookID string, limit int) ([]models.WebhookDelivery, error)
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]models.WebhookDelivery, error)
}

type deliveryRepository struct {
	db *sqlx.DB
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *sqlx.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

const deliveryColumns = `id, webhook_id, owner_id, event_type, payload, signature, attempt, status, response_status,
	error_message, is_test, next_retry_at, created_at, delivered_at`

// Create records a delivery attempt
func (r *deliveryRepository) Create(ctx context.Context, delivery *models.WebhookDelivery) error {
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO webhook_deliveries (` + deliveryColumns + `)
		VALUES (:id, :webhook_id, :owner_id, :event_type, :payload, :signature, :attempt, :status, :response_status,
			:error_message, :is_test, :next_retry_at, :created_at, :delivered_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, delivery); err != nil {
		return fmt.Errorf("failed to create webhook delivery: %w", err)
	}

	return nil
}

// Update stores the outcome of the latest attempt; the payload is immutable. The row must
// still be at delivery.Attempt, otherwise another sender has claimed it and ErrConflict is returned.
func (r *deliveryRepository) Update(ctx context.Context, delivery *models.WebhookDelivery) error {
	query := `
		UPDATE webhook_deliveries
		SET signature = :signature, status = :status, response_status = :response_status,
		    error_message = :error_message, next_retry_at = :next_retry_at, delivered_at = :delivered_at
		WHERE id = :id AND attempt = :attempt
	`

	result, err := r.db.NamedExecContext(ctx, query, delivery)
	if err != nil {
		return fmt.Errorf("failed to update webhook delivery: %w", err)
	}

	return requireClaimed(result, delivery.ID)
}

// ClaimAttempt moves a failed delivery from attempt to attempt+1 and takes it off the
// retry schedule. Only one caller can claim a given attempt; the others get ErrConflict.
func (r *deliveryRepository) ClaimAttempt(ctx context.Context, id string, attempt int) error {
	query := `
		UPDATE webhook_deliveries
		SET attempt = attempt + 1, next_retry_at = NULL
		WHERE id = ? AND attempt = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, id, attempt, models.DeliveryStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to claim webhook delivery: %w", err)
	}

	return requireClaimed(result, id)
}

func requireClaimed(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("webhook delivery %s was retried concurrently: %w", id, models.ErrConflict)
	}
	return nil
}

// GetByIDForOwner retrieves a delivery; another owner's delivery is reported as not found
func (r *deliveryRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.WebhookDelivery, error) {
	var delivery models.WebhookDelivery
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE id = ? AND owner_id = ?`
	if err := r.db.GetContext(ctx, &delivery, query, id, ownerID); err != nil {
		return nil, getError(err, "webhook delivery "+id)
	}
	return &delivery, nil
}

// ListByWebhook retrieves the most recent deliveries of a webhook, newest first
func (r *deliveryRepository) ListByWebhook(ctx context.Context, webhookID string, limit int) ([]models.WebhookDelivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE webhook_id = ? ORDER BY created_at DESC, id LIMIT ?`

	deliveries := []models.WebhookDelivery{}
	if err := r.db.SelectContext(ctx, &deliveries, query, webhookID, limit); err != nil {
		return nil, fmt.Errorf("failed to query webhook deliveries: %w", err)
	}

	return deliveries, nil
}

// ListDueRetries retrieves failed deliveries whose scheduled retry time has come
func (r *deliveryRepository) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]models.WebhookDelivery, error) {
	query := `
		SELECT ` + deliveryColumns + ` FROM webhook_deliveries
		WHERE status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?
		ORDER BY next_retry_at
		LIMIT ?
	`

	deliveries := []models.WebhookDelivery{}
	if err := r.db.SelectContext(ctx, &deliveries, query, models.DeliveryStatusFailed, now.UTC(), limit); err != nil {
		return nil, fmt.Errorf("failed to query due retries: %w", err)
	}

	return deliveries, nil
}

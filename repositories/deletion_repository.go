package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// DeletionRepository interface defines deletion request database operations
type DeletionRepository interface {
	Create(ctx context.Context, req *models.DeletionRequest) error
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.DeletionRequest, error)
	GetPendingForOwner(ctx context.Context, ownerID string, deletionType models.DeletionType) (*models.DeletionRequest, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.DeletionRequest, error)
	MarkProcessing(ctx context.Context, id string, at time.Time) error
	RecordStep(ctx context.Context, id string, step models.DeletionStep, deleted int64) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string, at time.Time) error
}

type deletionRepository struct {
	db *sqlx.DB
}

// NewDeletionRepository creates a new deletion repository
func NewDeletionRepository(db *sqlx.DB) DeletionRepository {
	return &deletionRepository{db: db}
}

const deletionColumns = `id, owner_id, deletion_type, status, confirmation_code, deleted_record_count, last_step,
	error_message, requested_at, confirmed_at, completed_at`

// Create creates a new deletion request
func (r *deletionRepository) Create(ctx context.Context, req *models.DeletionRequest) error {
	query := `
		INSERT INTO deletion_requests (` + deletionColumns + `)
		VALUES (:id, :owner_id, :deletion_type, :status, :confirmation_code, :deleted_record_count, :last_step,
			:error_message, :requested_at, :confirmed_at, :completed_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("failed to create deletion request: %w", err)
	}

	return nil
}

// GetByIDForOwner retrieves a deletion request; another owner's request is reported as not found
func (r *deletionRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.DeletionRequest, error) {
	var req models.DeletionRequest
	query := `SELECT ` + deletionColumns + ` FROM deletion_requests WHERE id = ? AND owner_id = ?`
	if err := r.db.GetContext(ctx, &req, query, id, ownerID); err != nil {
		return nil, getError(err, "deletion request "+id)
	}
	return &req, nil
}

// GetPendingForOwner retrieves the owner's unconfirmed request of the given type
func (r *deletionRepository) GetPendingForOwner(ctx context.Context, ownerID string, deletionType models.DeletionType) (*models.DeletionRequest, error) {
	var req models.DeletionRequest
	query := `
		SELECT ` + deletionColumns + ` FROM deletion_requests
		WHERE owner_id = ? AND deletion_type = ? AND status = ?
		ORDER BY requested_at DESC LIMIT 1
	`
	if err := r.db.GetContext(ctx, &req, query, ownerID, deletionType, models.DeletionStatusPending); err != nil {
		return nil, getError(err, "pending deletion request")
	}
	return &req, nil
}

// ListByOwner retrieves an owner's most recent deletion requests, newest first
func (r *deletionRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.DeletionRequest, error) {
	query := `SELECT ` + deletionColumns + ` FROM deletion_requests WHERE owner_id = ? ORDER BY requested_at DESC, id LIMIT ?`

	requests := []models.DeletionRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, ownerID, limit); err != nil {
		return nil, fmt.Errorf("failed to query deletion requests: %w", err)
	}

	return requests, nil
}

// MarkProcessing confirms a pending request. A request that already left pending
// yields models.ErrConflict so a code can only be redeemed once.
func (r *deletionRepository) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE deletion_requests SET status = ?, confirmed_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, models.DeletionStatusProcessing, at, id, models.DeletionStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark deletion processing: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deletion request %s is no longer pending: %w", id, models.ErrConflict)
	}

	return nil
}

// RecordStep adds the rows removed by a finished cascade step
func (r *deletionRepository) RecordStep(ctx context.Context, id string, step models.DeletionStep, deleted int64) error {
	query := `
		UPDATE deletion_requests
		SET deleted_record_count = deleted_record_count + ?, last_step = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, deleted, step, id); err != nil {
		return fmt.Errorf("failed to record deletion step: %w", err)
	}

	return nil
}

// MarkCompleted finishes a processing request
func (r *deletionRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE deletion_requests SET status = ?, completed_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, models.DeletionStatusCompleted, at, id, models.DeletionStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark deletion completed: %w", err)
	}

	return requireAffected(result, "processing deletion request "+id)
}

// MarkFailed records the failure of a processing request
func (r *deletionRepository) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	query := `UPDATE deletion_requests SET status = ?, error_message = ?, completed_at = ? WHERE id = ? AND status = ?`

	_, err := r.db.ExecContext(ctx, query, models.DeletionStatusFailed, message, at, id, models.DeletionStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark deletion failed: %w", err)
	}

	return nil
}

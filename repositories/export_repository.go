package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// ExportRepository interface defines export request database operations
type ExportRepository interface {
	Create(ctx context.Context, req *models.ExportRequest) error
	GetByID(ctx context.Context, id string) (*models.ExportRequest, error)
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.ExportRequest, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.ExportRequest, error)
	MarkProcessing(ctx context.Context, id string, at time.Time) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	MarkCompleted(ctx context.Context, id, fileURL string, size int64, at time.Time) error
	MarkFailed(ctx context.Context, id, message string, at time.Time) error
	MarkExpired(ctx context.Context, id string) error
	ListExpired(ctx context.Context, now time.Time) ([]models.ExportRequest, error)
}

type exportRepository struct {
	db *sqlx.DB
}

// NewExportRepository creates a new export repository
func NewExportRepository(db *sqlx.DB) ExportRepository {
	return &exportRepository{db: db}
}

const exportColumns = `id, owner_id, export_type, format, status, progress, file_url, file_size, encrypted,
	included_categories, error_message, requested_at, started_at, completed_at, expires_at`

// Create creates a new export request
func (r *exportRepository) Create(ctx context.Context, req *models.ExportRequest) error {
	query := `
		INSERT INTO export_requests (` + exportColumns + `)
		VALUES (:id, :owner_id, :export_type, :format, :status, :progress, :file_url, :file_size, :encrypted,
			:included_categories, :error_message, :requested_at, :started_at, :completed_at, :expires_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("failed to create export request: %w", err)
	}

	return nil
}

// GetByID retrieves an export request regardless of owner
func (r *exportRepository) GetByID(ctx context.Context, id string) (*models.ExportRequest, error) {
	var req models.ExportRequest
	if err := r.db.GetContext(ctx, &req, `SELECT `+exportColumns+` FROM export_requests WHERE id = ?`, id); err != nil {
		return nil, getError(err, "export "+id)
	}
	return &req, nil
}

// GetByIDForOwner retrieves an export request; another owner's request is reported as not found
func (r *exportRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.ExportRequest, error) {
	var req models.ExportRequest
	query := `SELECT ` + exportColumns + ` FROM export_requests WHERE id = ? AND owner_id = ?`
	if err := r.db.GetContext(ctx, &req, query, id, ownerID); err != nil {
		return nil, getError(err, "export "+id)
	}
	return &req, nil
}

// ListByOwner retrieves an owner's most recent export requests, newest first
func (r *exportRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.ExportRequest, error) {
	query := `SELECT ` + exportColumns + ` FROM export_requests WHERE owner_id = ? ORDER BY requested_at DESC, id LIMIT ?`

	requests := []models.ExportRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, ownerID, limit); err != nil {
		return nil, fmt.Errorf("failed to query export requests: %w", err)
	}

	return requests, nil
}

// MarkProcessing moves a pending request to processing
func (r *exportRepository) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE export_requests SET status = ?, started_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, models.ExportStatusProcessing, at, id, models.ExportStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark export processing: %w", err)
	}

	return requireAffected(result, "pending export "+id)
}

// UpdateProgress raises the progress of a processing request; it never goes backwards
func (r *exportRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	query := `UPDATE export_requests SET progress = MAX(progress, ?) WHERE id = ? AND status = ?`

	if _, err := r.db.ExecContext(ctx, query, progress, id, models.ExportStatusProcessing); err != nil {
		return fmt.Errorf("failed to update export progress: %w", err)
	}

	return nil
}

// MarkCompleted records the artifact and finishes the request at 100%
func (r *exportRepository) MarkCompleted(ctx context.Context, id, fileURL string, size int64, at time.Time) error {
	query := `
		UPDATE export_requests
		SET status = ?, progress = 100, file_url = ?, file_size = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, models.ExportStatusCompleted, fileURL, size, at, id, models.ExportStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark export completed: %w", err)
	}

	return requireAffected(result, "processing export "+id)
}

// MarkFailed records the failure of a request that has not finished yet
func (r *exportRepository) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	query := `
		UPDATE export_requests
		SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, models.ExportStatusFailed, message, at, id,
		models.ExportStatusPending, models.ExportStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark export failed: %w", err)
	}

	return nil
}

// MarkExpired moves a completed request to expired
func (r *exportRepository) MarkExpired(ctx context.Context, id string) error {
	query := `UPDATE export_requests SET status = ?, file_url = '' WHERE id = ? AND status = ?`

	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusExpired, id, models.ExportStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark export expired: %w", err)
	}

	return nil
}

// ListExpired retrieves completed requests whose expiry has passed
func (r *exportRepository) ListExpired(ctx context.Context, now time.Time) ([]models.ExportRequest, error) {
	query := `SELECT ` + exportColumns + ` FROM export_requests WHERE status = ? AND expires_at < ? ORDER BY expires_at`

	requests := []models.ExportRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, models.ExportStatusCompleted, now.UTC()); err != nil {
		return nil, fmt.Errorf("failed to query expired exports: %w", err)
	}

	return requests, nil
}

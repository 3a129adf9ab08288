package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// PromptRepository interface defines prompt, collection and evaluation database operations
type PromptRepository interface {
	ListByOwner(ctx context.Context, ownerID string, page models.Page) ([]models.Prompt, error)
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.Prompt, error)
	Create(ctx context.Context, prompt *models.Prompt) error
	Update(ctx context.Context, prompt *models.Prompt) error
	Delete(ctx context.Context, id, ownerID string) error
	Count(ctx context.Context, ownerID string) (int, error)

	CreateCollection(ctx context.Context, collection *models.Collection) error
	GetCollectionForOwner(ctx context.Context, id, ownerID string) (*models.Collection, error)
	AddToCollection(ctx context.Context, item *models.CollectionItem) error

	CreateEvaluation(ctx context.Context, evaluation *models.Evaluation) error
	ListEvaluations(ctx context.Context, promptID, ownerID string) ([]models.Evaluation, error)
}

type promptRepository struct {
	db *sqlx.DB
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(db *sqlx.DB) PromptRepository {
	return &promptRepository{db: db}
}

const promptColumns = `id, owner_id, title, content, description, model, tags, is_public, created_at, updated_at`

// ListByOwner retrieves one page of an owner's prompts, newest first
func (r *promptRepository) ListByOwner(ctx context.Context, ownerID string, page models.Page) ([]models.Prompt, error) {
	page = page.Normalize()
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE owner_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`

	prompts := []models.Prompt{}
	if err := r.db.SelectContext(ctx, &prompts, query, ownerID, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}

	return prompts, nil
}

// GetByIDForOwner retrieves a prompt; another owner's prompt is reported as not found
func (r *promptRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.Prompt, error) {
	var prompt models.Prompt
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = ? AND owner_id = ?`

	if err := r.db.GetContext(ctx, &prompt, query, id, ownerID); err != nil {
		return nil, getError(err, "prompt "+id)
	}

	return &prompt, nil
}

// Create creates a new prompt
func (r *promptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = time.Now().UTC()
	}
	if prompt.Tags == nil {
		prompt.Tags = models.StringList{}
	}

	query := `
		INSERT INTO prompts (id, owner_id, title, content, description, model, tags, is_public, created_at)
		VALUES (:id, :owner_id, :title, :content, :description, :model, :tags, :is_public, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, prompt); err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}

	return nil
}

// Update updates an existing prompt of the same owner
func (r *promptRepository) Update(ctx context.Context, prompt *models.Prompt) error {
	now := time.Now().UTC()
	prompt.UpdatedAt = &now

	query := `
		UPDATE prompts
		SET title = :title, content = :content, description = :description,
		    model = :model, tags = :tags, is_public = :is_public, updated_at = :updated_at
		WHERE id = :id AND owner_id = :owner_id
	`

	result, err := r.db.NamedExecContext(ctx, query, prompt)
	if err != nil {
		return fmt.Errorf("failed to update prompt: %w", err)
	}

	return requireAffected(result, "prompt "+prompt.ID)
}

// Delete removes a prompt together with its evaluations and collection memberships
func (r *promptRepository) Delete(ctx context.Context, id, ownerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM prompts WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("failed to check prompt: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("prompt %s: %w", id, models.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM evaluations WHERE prompt_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete evaluations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_items WHERE prompt_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete collection items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}

	return tx.Commit()
}

// Count returns the number of prompts an owner has
func (r *promptRepository) Count(ctx context.Context, ownerID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM prompts WHERE owner_id = ?`, ownerID); err != nil {
		return 0, fmt.Errorf("failed to count prompts: %w", err)
	}
	return count, nil
}

// CreateCollection creates a new collection
func (r *promptRepository) CreateCollection(ctx context.Context, collection *models.Collection) error {
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO collections (id, owner_id, name, description, created_at)
		VALUES (:id, :owner_id, :name, :description, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, collection); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// GetCollectionForOwner retrieves a collection with its prompt IDs
func (r *promptRepository) GetCollectionForOwner(ctx context.Context, id, ownerID string) (*models.Collection, error) {
	var collection models.Collection
	query := `SELECT id, owner_id, name, description, created_at FROM collections WHERE id = ? AND owner_id = ?`

	if err := r.db.GetContext(ctx, &collection, query, id, ownerID); err != nil {
		return nil, getError(err, "collection "+id)
	}

	collection.PromptIDs = []string{}
	query = `SELECT prompt_id FROM collection_items WHERE collection_id = ? ORDER BY added_at, prompt_id`
	if err := r.db.SelectContext(ctx, &collection.PromptIDs, query, id); err != nil {
		return nil, fmt.Errorf("failed to query collection items: %w", err)
	}

	return &collection, nil
}

// AddToCollection links a prompt into a collection; adding twice is a no-op
func (r *promptRepository) AddToCollection(ctx context.Context, item *models.CollectionItem) error {
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO collection_items (collection_id, prompt_id, added_at)
		VALUES (:collection_id, :prompt_id, :added_at)
		ON CONFLICT(collection_id, prompt_id) DO NOTHING
	`

	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("failed to add prompt to collection: %w", err)
	}

	return nil
}

// CreateEvaluation records an evaluation run of a prompt
func (r *promptRepository) CreateEvaluation(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.CreatedAt.IsZero() {
		evaluation.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO evaluations (id, owner_id, prompt_id, model, input, output, score, created_at)
		VALUES (:id, :owner_id, :prompt_id, :model, :input, :output, :score, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}

	return nil
}

// ListEvaluations retrieves the evaluations of one prompt, newest first
func (r *promptRepository) ListEvaluations(ctx context.Context, promptID, ownerID string) ([]models.Evaluation, error) {
	query := `
		SELECT id, owner_id, prompt_id, model, input, output, score, created_at
		FROM evaluations
		WHERE prompt_id = ? AND owner_id = ?
		ORDER BY created_at DESC, id
	`

	evaluations := []models.Evaluation{}
	if err := r.db.SelectContext(ctx, &evaluations, query, promptID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}

	return evaluations, nil
}

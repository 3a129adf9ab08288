package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// DatasetRepository reads and removes an owner's data one category or cascade step at a time
type DatasetRepository interface {
	Load(ctx context.Context, ownerID string, category models.Category) (*models.CategoryData, error)
	CountByCategory(ctx context.Context, ownerID string) (map[models.Category]int, error)
	DeleteStep(ctx context.Context, ownerID string, step models.DeletionStep) (int64, error)
}

type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

// Load reads every record of one category for the owner
func (r *datasetRepository) Load(ctx context.Context, ownerID string, category models.Category) (*models.CategoryData, error) {
	data := &models.CategoryData{Category: category}

	switch category {
	case models.CategoryPrompts:
		data.Prompts = []models.Prompt{}
		query := `SELECT ` + promptColumns + ` FROM prompts WHERE owner_id = ? ORDER BY created_at, id`
		if err := r.db.SelectContext(ctx, &data.Prompts, query, ownerID); err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}

	case models.CategoryCollections:
		collections, err := r.loadCollections(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		data.Collections = collections

	case models.CategoryEvaluations:
		data.Evaluations = []models.Evaluation{}
		query := `
			SELECT id, owner_id, prompt_id, model, input, output, score, created_at
			FROM evaluations WHERE owner_id = ? ORDER BY created_at, id
		`
		if err := r.db.SelectContext(ctx, &data.Evaluations, query, ownerID); err != nil {
			return nil, fmt.Errorf("failed to load evaluations: %w", err)
		}

	case models.CategorySettings:
		var settings []models.Setting
		query := `SELECT owner_id, key, value, updated_at FROM user_settings WHERE owner_id = ? ORDER BY key`
		if err := r.db.SelectContext(ctx, &settings, query, ownerID); err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		data.Settings = make(map[string]string, len(settings))
		for _, s := range settings {
			data.Settings[s.Key] = s.Value
		}

	case models.CategoryActivity:
		data.Activity = []models.ActivityEntry{}
		query := `
			SELECT id, owner_id, action, method, path, details, ip_address, user_agent, created_at
			FROM activity_log WHERE owner_id = ? ORDER BY created_at, id
		`
		if err := r.db.SelectContext(ctx, &data.Activity, query, ownerID); err != nil {
			return nil, fmt.Errorf("failed to load activity: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}

	return data, nil
}

func (r *datasetRepository) loadCollections(ctx context.Context, ownerID string) ([]models.Collection, error) {
	collections := []models.Collection{}
	query := `SELECT id, owner_id, name, description, created_at FROM collections WHERE owner_id = ? ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &collections, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}

	var items []models.CollectionItem
	query = `
		SELECT ci.collection_id, ci.prompt_id, ci.added_at
		FROM collection_items ci
		JOIN collections c ON c.id = ci.collection_id
		WHERE c.owner_id = ?
		ORDER BY ci.added_at, ci.prompt_id
	`
	if err := r.db.SelectContext(ctx, &items, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to load collection items: %w", err)
	}

	byCollection := make(map[string][]string, len(collections))
	for _, item := range items {
		byCollection[item.CollectionID] = append(byCollection[item.CollectionID], item.PromptID)
	}

	for i := range collections {
		collections[i].PromptIDs = byCollection[collections[i].ID]
		if collections[i].PromptIDs == nil {
			collections[i].PromptIDs = []string{}
		}
	}

	return collections, nil
}

// CountByCategory returns the number of records per category
func (r *datasetRepository) CountByCategory(ctx context.Context, ownerID string) (map[models.Category]int, error) {
	queries := map[models.Category]string{
		models.CategoryPrompts:     `SELECT COUNT(*) FROM prompts WHERE owner_id = ?`,
		models.CategoryCollections: `SELECT COUNT(*) FROM collections WHERE owner_id = ?`,
		models.CategoryEvaluations: `SELECT COUNT(*) FROM evaluations WHERE owner_id = ?`,
		models.CategorySettings:    `SELECT COUNT(*) FROM user_settings WHERE owner_id = ?`,
		models.CategoryActivity:    `SELECT COUNT(*) FROM activity_log WHERE owner_id = ?`,
	}

	counts := make(map[models.Category]int, len(queries))
	for _, category := range models.AllCategories {
		var count int
		if err := r.db.GetContext(ctx, &count, queries[category], ownerID); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", category, err)
		}
		counts[category] = count
	}

	return counts, nil
}

// deleteStatements maps each cascade step to the statements that remove the owner's rows
var deleteStatements = map[models.DeletionStep][]string{
	models.StepEvaluations: {`DELETE FROM evaluations WHERE owner_id = ?`},
	models.StepCollectionItems: {
		`DELETE FROM collection_items WHERE prompt_id IN (SELECT id FROM prompts WHERE owner_id = ?)`,
		`DELETE FROM collection_items WHERE collection_id IN (SELECT id FROM collections WHERE owner_id = ?)`,
	},
	models.StepPrompts:           {`DELETE FROM prompts WHERE owner_id = ?`},
	models.StepCollections:       {`DELETE FROM collections WHERE owner_id = ?`},
	models.StepWebhookDeliveries: {`DELETE FROM webhook_deliveries WHERE owner_id = ?`},
	models.StepWebhooks:          {`DELETE FROM webhooks WHERE owner_id = ?`},
	models.StepSettings:          {`DELETE FROM user_settings WHERE owner_id = ?`},
	models.StepActivity:          {`DELETE FROM activity_log WHERE owner_id = ?`},
	models.StepExportBlobs:       {`DELETE FROM export_blobs WHERE owner_id = ?`},
	models.StepExports:           {`DELETE FROM export_requests WHERE owner_id = ?`},
}

// DeleteStep removes the owner's rows for one cascade step in its own transaction
// and returns how many rows were removed
func (r *datasetRepository) DeleteStep(ctx context.Context, ownerID string, step models.DeletionStep) (int64, error) {
	statements, ok := deleteStatements[step]
	if !ok {
		return 0, fmt.Errorf("unknown deletion step %q", step)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deleted int64
	for _, statement := range statements {
		result, err := tx.ExecContext(ctx, statement, ownerID)
		if err != nil {
			return 0, fmt.Errorf("failed to delete %s: %w", step, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s deletion: %w", step, err)
	}

	return deleted, nil
}

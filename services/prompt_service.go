package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/userctx"
)

// PromptService interface defines prompt management business logic
type PromptService interface {
	ListPrompts(ctx context.Context, page models.Page) ([]models.Prompt, error)
	GetPrompt(ctx context.Context, id string) (*models.Prompt, error)
	CreatePrompt(ctx context.Context, form *models.PromptForm) (*models.Prompt, error)
	UpdatePrompt(ctx context.Context, id string, form *models.PromptForm) (*models.Prompt, error)
	DeletePrompt(ctx context.Context, id string) error
	CreateCollection(ctx context.Context, form *models.CollectionForm) (*models.Collection, error)
	AddToCollection(ctx context.Context, collectionID, promptID string) (*models.Collection, error)
	RecordEvaluation(ctx context.Context, promptID string, form *models.EvaluationForm) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, promptID string) ([]models.Evaluation, error)
}

// promptService implements PromptService interface
type promptService struct {
	promptRepo repositories.PromptRepository
	events     EventPublisher
}

// NewPromptService creates a new prompt service
func NewPromptService(promptRepo repositories.PromptRepository, events EventPublisher) PromptService {
	return &promptService{
		promptRepo: promptRepo,
		events:     events,
	}
}

// ListPrompts retrieves one page of the caller's prompts
func (s *promptService) ListPrompts(ctx context.Context, page models.Page) ([]models.Prompt, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.promptRepo.ListByOwner(ctx, ownerID, page)
}

// GetPrompt retrieves one of the caller's prompts
func (s *promptService) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.promptRepo.GetByIDForOwner(ctx, id, ownerID)
}

// CreatePrompt creates a new prompt with validation
func (s *promptService) CreatePrompt(ctx context.Context, form *models.PromptForm) (*models.Prompt, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	// Validate form
	if err := models.NewValidationError(form.Validate()); err != nil {
		return nil, err
	}

	prompt := &models.Prompt{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
	}
	applyPromptForm(prompt, form)
	prompt.CreatedAt = timeNow()

	if err := s.promptRepo.Create(ctx, prompt); err != nil {
		return nil, fmt.Errorf("failed to create prompt: %w", err)
	}

	s.events.Publish(ownerID, models.EventPromptCreated, map[string]interface{}{
		"prompt_id": prompt.ID,
		"title":     prompt.Title,
	})

	return prompt, nil
}

// UpdatePrompt updates an existing prompt
func (s *promptService) UpdatePrompt(ctx context.Context, id string, form *models.PromptForm) (*models.Prompt, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	// Validate form
	if err := models.NewValidationError(form.Validate()); err != nil {
		return nil, err
	}

	// Get existing prompt
	prompt, err := s.promptRepo.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	applyPromptForm(prompt, form)

	if err := s.promptRepo.Update(ctx, prompt); err != nil {
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}

	return prompt, nil
}

// DeletePrompt deletes a prompt with its evaluations
func (s *promptService) DeletePrompt(ctx context.Context, id string) error {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return err
	}

	if err := s.promptRepo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.events.Publish(ownerID, models.EventPromptDeleted, map[string]interface{}{
		"prompt_id": id,
	})

	return nil
}

// CreateCollection creates an empty collection
func (s *promptService) CreateCollection(ctx context.Context, form *models.CollectionForm) (*models.Collection, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := models.NewValidationError(form.Validate()); err != nil {
		return nil, err
	}

	collection := &models.Collection{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(form.Name),
		Description: strings.TrimSpace(form.Description),
		PromptIDs:   []string{},
		CreatedAt:   timeNow(),
	}

	if err := s.promptRepo.CreateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return collection, nil
}

// AddToCollection adds one of the caller's prompts to one of their collections
func (s *promptService) AddToCollection(ctx context.Context, collectionID, promptID string) (*models.Collection, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.promptRepo.GetCollectionForOwner(ctx, collectionID, ownerID); err != nil {
		return nil, err
	}
	if _, err := s.promptRepo.GetByIDForOwner(ctx, promptID, ownerID); err != nil {
		return nil, err
	}

	item := &models.CollectionItem{CollectionID: collectionID, PromptID: promptID, AddedAt: timeNow()}
	if err := s.promptRepo.AddToCollection(ctx, item); err != nil {
		return nil, err
	}

	return s.promptRepo.GetCollectionForOwner(ctx, collectionID, ownerID)
}

// RecordEvaluation stores an evaluation result for one of the caller's prompts
func (s *promptService) RecordEvaluation(ctx context.Context, promptID string, form *models.EvaluationForm) (*models.Evaluation, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := models.NewValidationError(form.Validate()); err != nil {
		return nil, err
	}

	if _, err := s.promptRepo.GetByIDForOwner(ctx, promptID, ownerID); err != nil {
		return nil, err
	}

	evaluation := &models.Evaluation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		PromptID:  promptID,
		Model:     strings.TrimSpace(form.Model),
		Input:     form.Input,
		Output:    form.Output,
		Score:     form.Score,
		CreatedAt: timeNow(),
	}

	if err := s.promptRepo.CreateEvaluation(ctx, evaluation); err != nil {
		return nil, fmt.Errorf("failed to record evaluation: %w", err)
	}

	return evaluation, nil
}

// ListEvaluations retrieves the evaluations of one of the caller's prompts
func (s *promptService) ListEvaluations(ctx context.Context, promptID string) ([]models.Evaluation, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.promptRepo.GetByIDForOwner(ctx, promptID, ownerID); err != nil {
		return nil, err
	}

	return s.promptRepo.ListEvaluations(ctx, promptID, ownerID)
}

func applyPromptForm(prompt *models.Prompt, form *models.PromptForm) {
	prompt.Title = strings.TrimSpace(form.Title)
	prompt.Content = form.Content
	prompt.Description = strings.TrimSpace(form.Description)
	prompt.Model = strings.TrimSpace(form.Model)
	prompt.Tags = models.Dedup(form.Tags)
	prompt.IsPublic = form.IsPublic
}

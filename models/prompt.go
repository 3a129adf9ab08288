package models

import (
	"strings"
	"time"
)

// Prompt is a stored AI prompt owned by a single user
type Prompt struct {
	ID          string     `json:"id" db:"id"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Content     string     `json:"content" db:"content"`
	Description string     `json:"description" db:"description"`
	Model       string     `json:"model" db:"model"`
	Tags        StringList `json:"tags" db:"tags"`
	IsPublic    bool       `json:"is_public" db:"is_public"`
	Timestamps
}

// Collection groups prompts
type Collection struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	PromptIDs   []string  `json:"prompt_ids" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CollectionItem links a prompt into a collection
type CollectionItem struct {
	CollectionID string    `json:"collection_id" db:"collection_id"`
	PromptID     string    `json:"prompt_id" db:"prompt_id"`
	AddedAt      time.Time `json:"added_at" db:"added_at"`
}

// Evaluation is a recorded run of a prompt against a model
type Evaluation struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	PromptID  string    `json:"prompt_id" db:"prompt_id"`
	Model     string    `json:"model" db:"model"`
	Input     string    `json:"input" db:"input"`
	Output    string    `json:"output" db:"output"`
	Score     float64   `json:"score" db:"score"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PromptForm represents form data for creating/updating prompts
type PromptForm struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Model       string   `json:"model"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"is_public"`
}

// Validate validates the prompt form data
func (f *PromptForm) Validate() []string {
	var errors []string

	if f.Title == "" {
		errors = append(errors, "Title is required")
	}

	if len(f.Title) > 200 {
		errors = append(errors, "Title must be less than 200 characters")
	}

	if f.Content == "" {
		errors = append(errors, "Content is required")
	}

	if len(f.Content) > 100000 {
		errors = append(errors, "Content must be less than 100000 characters")
	}

	if len(f.Tags) > 20 {
		errors = append(errors, "A prompt can have at most 20 tags")
	}

	for _, tag := range f.Tags {
		if len(tag) > 50 {
			errors = append(errors, "Tags must be less than 50 characters")
			break
		}
	}

	return errors
}

// CollectionForm represents a request to create a collection
type CollectionForm struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate validates the collection form data
func (f *CollectionForm) Validate() []string {
	var errors []string

	if strings.TrimSpace(f.Name) == "" {
		errors = append(errors, "Name is required")
	}

	if len(f.Name) > 100 {
		errors = append(errors, "Name must be less than 100 characters")
	}

	if len(f.Description) > 500 {
		errors = append(errors, "Description must be less than 500 characters")
	}

	return errors
}

// EvaluationForm records the outcome of running a prompt against a model
type EvaluationForm struct {
	Model  string  `json:"model"`
	Input  string  `json:"input"`
	Output string  `json:"output"`
	Score  float64 `json:"score"`
}

// Validate validates the evaluation form data
func (f *EvaluationForm) Validate() []string {
	var errors []string

	if strings.TrimSpace(f.Model) == "" {
		errors = append(errors, "Model is required")
	}

	if f.Score < 0 || f.Score > 1 {
		errors = append(errors, "Score must be between 0 and 1")
	}

	return errors
}

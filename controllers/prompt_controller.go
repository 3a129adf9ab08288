package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/services"
)

// PromptController handles prompt, collection and evaluation requests
type PromptController struct {
	services *services.Services
	logger   *zap.Logger
}

// NewPromptController creates a new prompt controller
func NewPromptController(services *services.Services, logger *zap.Logger) *PromptController {
	return &PromptController{
		services: services,
		logger:   logger,
	}
}

// Index handles GET /api/prompts
func (c *PromptController) Index(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	prompts, err := c.services.Prompts.ListPrompts(r.Context(), models.Page{Limit: limit, Offset: offset})
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, prompts)
}

// Show handles GET /api/prompts/{id}
func (c *PromptController) Show(w http.ResponseWriter, r *http.Request) {
	prompt, err := c.services.Prompts.GetPrompt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, prompt)
}

// Create handles POST /api/prompts
func (c *PromptController) Create(w http.ResponseWriter, r *http.Request) {
	var form models.PromptForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	prompt, err := c.services.Prompts.CreatePrompt(r.Context(), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, prompt)
}

// Update handles PUT /api/prompts/{id}
func (c *PromptController) Update(w http.ResponseWriter, r *http.Request) {
	var form models.PromptForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	prompt, err := c.services.Prompts.UpdatePrompt(r.Context(), chi.URLParam(r, "id"), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, prompt)
}

// Delete handles DELETE /api/prompts/{id}
func (c *PromptController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.services.Prompts.DeletePrompt(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Evaluations handles GET /api/prompts/{id}/evaluations
func (c *PromptController) Evaluations(w http.ResponseWriter, r *http.Request) {
	evaluations, err := c.services.Prompts.ListEvaluations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluations)
}

// CreateEvaluation handles POST /api/prompts/{id}/evaluations
func (c *PromptController) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var form models.EvaluationForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	evaluation, err := c.services.Prompts.RecordEvaluation(r.Context(), chi.URLParam(r, "id"), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, evaluation)
}

// CreateCollection handles POST /api/collections
func (c *PromptController) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var form models.CollectionForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	collection, err := c.services.Prompts.CreateCollection(r.Context(), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, collection)
}

// AddToCollection handles PUT /api/collections/{id}/prompts/{promptID}
func (c *PromptController) AddToCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := c.services.Prompts.AddToCollection(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "promptID"))
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, collection)
}

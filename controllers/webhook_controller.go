package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/services"
)

// WebhookController handles webhook management requests
type WebhookController struct {
	services *services.Services
	logger   *zap.Logger
}

// NewWebhookController creates a new webhook controller
func NewWebhookController(services *services.Services, logger *zap.Logger) *WebhookController {
	return &WebhookController{
		services: services,
		logger:   logger,
	}
}

// Index handles GET /api/webhooks
func (c *WebhookController) Index(w http.ResponseWriter, r *http.Request) {
	webhooks, err := c.services.Webhooks.ListWebhooks(r.Context())
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, webhooks)
}

// Create handles POST /api/webhooks; the response is the only one that carries the secret
func (c *WebhookController) Create(w http.ResponseWriter, r *http.Request) {
	var form models.WebhookForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	webhook, err := c.services.Webhooks.RegisterWebhook(r.Context(), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, webhook)
}

// Update handles PUT /api/webhooks/{id}
func (c *WebhookController) Update(w http.ResponseWriter, r *http.Request) {
	var form models.WebhookUpdateForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	webhook, err := c.services.Webhooks.UpdateWebhook(r.Context(), chi.URLParam(r, "id"), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, webhook)
}

// Delete handles DELETE /api/webhooks/{id}
func (c *WebhookController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.services.Webhooks.DeleteWebhook(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Test handles POST /api/webhooks/{id}/test
func (c *WebhookController) Test(w http.ResponseWriter, r *http.Request) {
	delivery, err := c.services.Webhooks.TestWebhook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, delivery)
}

// Deliveries handles GET /api/webhooks/{id}/deliveries
func (c *WebhookController) Deliveries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	deliveries, err := c.services.Webhooks.GetWebhookDeliveries(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, deliveries)
}

// Retry handles POST /api/webhook-deliveries/{id}/retry
func (c *WebhookController) Retry(w http.ResponseWriter, r *http.Request) {
	delivery, err := c.services.Webhooks.RetryDelivery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, delivery)
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/services"
)

// DeletionController handles data deletion requests
type DeletionController struct {
	services *services.Services
	logger   *zap.Logger
}

// NewDeletionController creates a new deletion controller
func NewDeletionController(services *services.Services, logger *zap.Logger) *DeletionController {
	return &DeletionController{
		services: services,
		logger:   logger,
	}
}

type deletionTicketResponse struct {
	Request          *models.DeletionRequest `json:"request"`
	ConfirmationCode string                  `json:"confirmation_code"`
}

// Index handles GET /api/deletions
func (c *DeletionController) Index(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	history, err := c.services.Deletions.GetDeletionHistory(r.Context(), limit)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// Create handles POST /api/deletions. The confirmation code is returned once.
func (c *DeletionController) Create(w http.ResponseWriter, r *http.Request) {
	var form models.DeletionForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	ticket, err := c.services.Deletions.RequestDeletion(r.Context(), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, deletionTicketResponse{
		Request:          ticket.Request,
		ConfirmationCode: ticket.ConfirmationCode,
	})
}

// Confirm handles POST /api/deletions/{id}/confirm
func (c *DeletionController) Confirm(w http.ResponseWriter, r *http.Request) {
	var form models.ConfirmDeletionForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	req, err := c.services.Deletions.ConfirmDeletion(r.Context(), chi.URLParam(r, "id"), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, req)
}

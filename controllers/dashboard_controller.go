package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/services"
	"github.com/blogem/promptforge/userctx"
)

// DashboardController handles dashboard-related requests
type DashboardController struct {
	services *services.Services
	logger   *zap.Logger
}

// NewDashboardController creates a new dashboard controller
func NewDashboardController(services *services.Services, logger *zap.Logger) *DashboardController {
	return &DashboardController{
		services: services,
		logger:   logger,
	}
}

type dashboardResponse struct {
	User    string                   `json:"user"`
	Summary *models.DataSummary      `json:"summary"`
	Exports []models.ExportRequest   `json:"recent_exports"`
	Deletes []models.DeletionRequest `json:"recent_deletions"`
}

// Index handles GET /api/dashboard
func (c *DashboardController) Index(w http.ResponseWriter, r *http.Request) {
	summary, err := c.services.Exports.GetDataSummary(r.Context())
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	exports, err := c.services.Exports.GetExportHistory(r.Context(), 5)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	deletions, err := c.services.Deletions.GetDeletionHistory(r.Context(), 5)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		User:    userctx.GetUserEmail(r.Context()),
		Summary: summary,
		Exports: exports,
		Deletes: deletions,
	})
}

// Health handles GET /health
func (c *DashboardController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "promptforge"})
}

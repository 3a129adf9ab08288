package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/services"
)

// SettingsController handles user settings requests
type SettingsController struct {
	services *services.Services
	logger   *zap.Logger
}

// NewSettingsController creates a new settings controller
func NewSettingsController(services *services.Services, logger *zap.Logger) *SettingsController {
	return &SettingsController{
		services: services,
		logger:   logger,
	}
}

type settingsResponse struct {
	Values map[string]string `json:"values"`
	Names  map[string]string `json:"names"`
}

// Index handles GET /api/settings
func (c *SettingsController) Index(w http.ResponseWriter, r *http.Request) {
	values, err := c.services.Settings.GetSettings(r.Context())
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{Values: values, Names: c.services.Settings.GetSettingNames()})
}

// Update handles PUT /api/settings
func (c *SettingsController) Update(w http.ResponseWriter, r *http.Request) {
	var form models.SettingsForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	values, err := c.services.Settings.UpdateSettings(r.Context(), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{Values: values, Names: c.services.Settings.GetSettingNames()})
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/userctx"
)

// SettingsService interface defines per-owner settings business logic
type SettingsService interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	UpdateSettings(ctx context.Context, form *models.SettingsForm) (map[string]string, error)
	GetSettingNames() map[string]string
}

// settingsService implements SettingsService interface
type settingsService struct {
	settingsRepo repositories.SettingsRepository
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingsRepo repositories.SettingsRepository) SettingsService {
	return &settingsService{
		settingsRepo: settingsRepo,
	}
}

// GetSettings returns the caller's settings as a key/value map
func (s *settingsService) GetSettings(ctx context.Context) (map[string]string, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := s.settingsRepo.GetAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(settings))
	for _, setting := range settings {
		values[setting.Key] = setting.Value
	}

	return values, nil
}

// UpdateSettings writes the submitted values and returns the full settings map
func (s *settingsService) UpdateSettings(ctx context.Context, form *models.SettingsForm) (map[string]string, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	// Validate form
	if err := models.NewValidationError(form.Validate()); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(form.Values))
	for key, value := range form.Values {
		values[key] = strings.TrimSpace(value)
	}

	if err := s.settingsRepo.Upsert(ctx, ownerID, values); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	return s.GetSettings(ctx)
}

// GetSettingNames returns the display names of the known setting keys
func (s *settingsService) GetSettingNames() map[string]string {
	return models.SettingKeys
}

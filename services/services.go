package services

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blogem/promptforge/jobs"
	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
)

// timeNow is replaced in tests to control expiry and retry scheduling
var timeNow = func() time.Time {
	return time.Now().UTC()
}

// Services holds all service instances
type Services struct {
	Prompts   PromptService
	Settings  SettingsService
	Exports   ExportService
	Deletions DeletionService
	Webhooks  WebhookService
}

// Options carries the collaborators and settings of the background-work services
type Options struct {
	Runner   jobs.Runner
	Logger   *zap.Logger
	Sender   Sender
	Exports  ExportSettings
	Webhooks WebhookSettings
}

// NewServices creates and initializes all service instances
func NewServices(repos *repositories.Repositories, opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sender := opts.Sender
	if sender == nil {
		sender = NewHTTPSender(opts.Webhooks.Timeout)
	}

	webhooks := NewWebhookService(repos.Webhooks, repos.Deliveries, sender, opts.Runner, opts.Webhooks, logger)

	return &Services{
		Prompts:   NewPromptService(repos.Prompts, webhooks),
		Settings:  NewSettingsService(repos.Settings),
		Exports:   NewExportService(repos.Exports, repos.Dataset, repos.Blobs, opts.Runner, webhooks, opts.Exports, logger),
		Deletions: NewDeletionService(repos.Deletions, repos.Dataset, opts.Runner, webhooks, logger),
		Webhooks:  webhooks,
	}
}

// scheduleError wraps a runner rejection; a full or stopping queue is reported as
// ErrUnavailable so the caller can try again later
func scheduleError(what string, err error) error {
	if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrQueueClosed) {
		return fmt.Errorf("failed to schedule %s: %w: %w", what, models.ErrUnavailable, err)
	}
	return fmt.Errorf("failed to schedule %s: %w", what, err)
}

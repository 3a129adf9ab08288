package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blogem/promptforge/jobs"
	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/signature"
	"github.com/blogem/promptforge/userctx"
)

const (
	secretPrefix       = "whsec_"
	maxConcurrentSends = 8
	retryBatchSize     = 50
)

// EventPublisher hands an event to webhook delivery without waiting for the outcome
type EventPublisher interface {
	Publish(ownerID, event string, data interface{})
}

// WebhookSettings configures delivery
type WebhookSettings struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     jobs.BackoffConfig
}

// WebhookService interface defines webhook management and delivery
type WebhookService interface {
	EventPublisher
	RegisterWebhook(ctx context.Context, form *models.WebhookForm) (*models.Webhook, error)
	ListWebhooks(ctx context.Context) ([]models.Webhook, error)
	UpdateWebhook(ctx context.Context, id string, form *models.WebhookUpdateForm) (*models.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
	TestWebhook(ctx context.Context, id string) (*models.WebhookDelivery, error)
	GetWebhookDeliveries(ctx context.Context, webhookID string, limit int) ([]models.WebhookDelivery, error)
	RetryDelivery(ctx context.Context, deliveryID string) (*models.WebhookDelivery, error)
	Trigger(ctx context.Context, ownerID, event string, data interface{}) []models.WebhookDelivery
	ProcessDueRetries(ctx context.Context) (int, error)
}

// webhookService implements WebhookService interface
type webhookService struct {
	webhookRepo  repositories.WebhookRepository
	deliveryRepo repositories.DeliveryRepository
	sender       Sender
	runner       jobs.Runner
	settings     WebhookSettings
	logger       *zap.Logger

	rngMu sync.Mutex
	rng   *mathrand.Rand
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	webhookRepo repositories.WebhookRepository,
	deliveryRepo repositories.DeliveryRepository,
	sender Sender,
	runner jobs.Runner,
	settings WebhookSettings,
	logger *zap.Logger,
) WebhookService {
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = 5
	}
	if settings.Backoff.BaseDelay <= 0 {
		settings.Backoff = jobs.DefaultBackoff()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &webhookService{
		webhookRepo:  webhookRepo,
		deliveryRepo: deliveryRepo,
		sender:       sender,
		runner:       runner,
		settings:     settings,
		logger:       logger,
		rng:          mathrand.New(mathrand.NewSource(timeNow().UnixNano())),
	}
}

// RegisterWebhook creates a subscription; the returned webhook is the only place the secret is shown
func (s *webhookService) RegisterWebhook(ctx context.Context, form *models.WebhookForm) (*models.Webhook, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := models.NewValidationError(form.Validate()); err != nil {
		return nil, err
	}

	secret, err := newWebhookSecret()
	if err != nil {
		return nil, err
	}

	webhook := &models.Webhook{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		URL:         strings.TrimSpace(form.URL),
		Secret:      secret,
		EventTypes:  models.Dedup(form.EventTypes),
		Enabled:     true,
		Description: strings.TrimSpace(form.Description),
	}
	webhook.CreatedAt = timeNow()

	if err := s.webhookRepo.Create(ctx, webhook); err != nil {
		return nil, fmt.Errorf("failed to register webhook: %w", err)
	}

	return webhook, nil
}

// ListWebhooks retrieves the caller's webhooks without their secrets
func (s *webhookService) ListWebhooks(ctx context.Context) ([]models.Webhook, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	webhooks, err := s.webhookRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for i := range webhooks {
		webhooks[i] = webhooks[i].Redacted()
	}

	return webhooks, nil
}

// UpdateWebhook changes the URL, subscriptions, enabled flag or description
func (s *webhookService) UpdateWebhook(ctx context.Context, id string, form *models.WebhookUpdateForm) (*models.Webhook, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := models.NewValidationError(form.Validate()); err != nil {
		return nil, err
	}

	webhook, err := s.webhookRepo.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if form.URL != nil {
		webhook.URL = strings.TrimSpace(*form.URL)
	}
	if form.EventTypes != nil {
		webhook.EventTypes = models.Dedup(*form.EventTypes)
	}
	if form.Enabled != nil {
		webhook.Enabled = *form.Enabled
	}
	if form.Description != nil {
		webhook.Description = strings.TrimSpace(*form.Description)
	}

	if err := s.webhookRepo.Update(ctx, webhook); err != nil {
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}

	redacted := webhook.Redacted()
	return &redacted, nil
}

// DeleteWebhook removes a webhook and its delivery history
func (s *webhookService) DeleteWebhook(ctx context.Context, id string) error {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return err
	}
	return s.webhookRepo.Delete(ctx, id, ownerID)
}

// TestWebhook sends a synthetic event to verify the endpoint configuration
func (s *webhookService) TestWebhook(ctx context.Context, id string) (*models.WebhookDelivery, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	webhook, err := s.webhookRepo.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	payload, err := newEventPayload(ownerID, models.EventWebhookTest, map[string]interface{}{
		"webhook_id": webhook.ID,
		"message":    "This is a test event from PromptForge",
	})
	if err != nil {
		return nil, err
	}

	delivery := s.newDelivery(webhook, models.EventWebhookTest, payload)
	delivery.IsTest = true
	s.attempt(ctx, webhook, delivery)

	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		return nil, fmt.Errorf("failed to record test delivery: %w", err)
	}

	return delivery, nil
}

// GetWebhookDeliveries retrieves the recent deliveries of one of the caller's webhooks
func (s *webhookService) GetWebhookDeliveries(ctx context.Context, webhookID string, limit int) ([]models.WebhookDelivery, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.webhookRepo.GetByIDForOwner(ctx, webhookID, ownerID); err != nil {
		return nil, err
	}

	return s.deliveryRepo.ListByWebhook(ctx, webhookID, clampLimit(limit, 50, 200))
}

// RetryDelivery re-sends the stored payload of a failed delivery. The signature is
// recomputed from the stored payload and the unchanged secret, so it is identical.
func (s *webhookService) RetryDelivery(ctx context.Context, deliveryID string) (*models.WebhookDelivery, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	delivery, err := s.deliveryRepo.GetByIDForOwner(ctx, deliveryID, ownerID)
	if err != nil {
		return nil, err
	}

	if delivery.Status == models.DeliveryStatusSuccess {
		return nil, fmt.Errorf("delivery %s already succeeded: %w", deliveryID, models.ErrConflict)
	}

	webhook, err := s.webhookRepo.GetByIDForOwner(ctx, delivery.WebhookID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.deliveryRepo.ClaimAttempt(ctx, delivery.ID, delivery.Attempt); err != nil {
		return nil, err
	}

	delivery.Attempt++
	s.attempt(ctx, webhook, delivery)

	if err := s.deliveryRepo.Update(ctx, delivery); err != nil {
		return nil, fmt.Errorf("failed to record retry: %w", err)
	}

	return delivery, nil
}

// Publish delivers the event on the job runner; failures are logged, never returned
func (s *webhookService) Publish(ownerID, event string, data interface{}) {
	if s.runner == nil {
		s.Trigger(context.Background(), ownerID, event, data)
		return
	}

	job := jobs.Job{
		Key: "webhook-event:" + uuid.NewString(),
		Run: func(ctx context.Context) error {
			s.Trigger(ctx, ownerID, event, data)
			return nil
		},
	}

	if err := s.runner.Submit(job); err != nil {
		s.logger.Warn("failed to queue webhook event",
			zap.String("owner_id", ownerID),
			zap.String("event", event),
			zap.Error(err))
	}
}

// Trigger sends event to every enabled webhook of the owner subscribed to it. Each
// matching webhook gets exactly one recorded delivery; outcomes never surface as errors.
func (s *webhookService) Trigger(ctx context.Context, ownerID, event string, data interface{}) []models.WebhookDelivery {
	webhooks, err := s.webhookRepo.ListSubscribed(ctx, ownerID, event)
	if err != nil {
		s.logger.Error("failed to look up webhooks", zap.String("owner_id", ownerID), zap.String("event", event), zap.Error(err))
		return nil
	}

	if len(webhooks) == 0 {
		return nil
	}

	payload, err := newEventPayload(ownerID, event, data)
	if err != nil {
		s.logger.Error("failed to encode webhook payload", zap.String("event", event), zap.Error(err))
		return nil
	}

	deliveries := make([]*models.WebhookDelivery, len(webhooks))

	var g errgroup.Group
	g.SetLimit(maxConcurrentSends)
	for i := range webhooks {
		webhook := &webhooks[i]
		delivery := s.newDelivery(webhook, event, payload)
		deliveries[i] = delivery

		g.Go(func() error {
			s.attempt(ctx, webhook, delivery)
			return nil
		})
	}
	_ = g.Wait()

	recorded := make([]models.WebhookDelivery, 0, len(deliveries))
	for _, delivery := range deliveries {
		if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
			s.logger.Error("failed to record webhook delivery",
				zap.String("webhook_id", delivery.WebhookID),
				zap.String("event", event),
				zap.Error(err))
			continue
		}
		recorded = append(recorded, *delivery)
	}

	return recorded
}

// ProcessDueRetries re-sends failed deliveries whose backoff has elapsed and returns how
// many it handled. A delivery claimed concurrently by a manual retry is skipped.
func (s *webhookService) ProcessDueRetries(ctx context.Context) (int, error) {
	due, err := s.deliveryRepo.ListDueRetries(ctx, timeNow(), retryBatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range due {
		delivery := &due[i]

		webhook, err := s.webhookRepo.GetByID(ctx, delivery.WebhookID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			delivery.NextRetryAt = nil
			delivery.ErrorMessage = "webhook no longer exists"
		case err != nil:
			return processed, err
		case !webhook.Enabled:
			delivery.NextRetryAt = nil
			delivery.ErrorMessage = "webhook is disabled"
		default:
			err = s.deliveryRepo.ClaimAttempt(ctx, delivery.ID, delivery.Attempt)
			if errors.Is(err, models.ErrConflict) {
				continue
			}
			if err != nil {
				return processed, err
			}
			delivery.Attempt++
			s.attempt(ctx, webhook, delivery)
		}

		err = s.deliveryRepo.Update(ctx, delivery)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			return processed, fmt.Errorf("failed to record retry: %w", err)
		}
		processed++
	}

	return processed, nil
}

func (s *webhookService) newDelivery(webhook *models.Webhook, event string, payload []byte) *models.WebhookDelivery {
	return &models.WebhookDelivery{
		ID:        uuid.NewString(),
		WebhookID: webhook.ID,
		OwnerID:   webhook.OwnerID,
		EventType: event,
		Payload:   payload,
		Attempt:   1,
		CreatedAt: timeNow(),
	}
}

// attempt signs and sends the delivery's payload and records the outcome on it
func (s *webhookService) attempt(ctx context.Context, webhook *models.Webhook, delivery *models.WebhookDelivery) {
	delivery.Signature = signature.Sign(webhook.Secret, delivery.Payload)

	status, err := s.sender.Send(ctx, &OutboundRequest{
		URL:  webhook.URL,
		Body: delivery.Payload,
		Headers: map[string]string{
			signature.HeaderSignature: delivery.Signature,
			signature.HeaderEvent:     delivery.EventType,
			signature.HeaderDelivery:  delivery.ID,
		},
	})

	now := timeNow()
	delivery.ResponseStatus = status

	if err == nil {
		delivery.Status = models.DeliveryStatusSuccess
		delivery.ErrorMessage = ""
		delivery.NextRetryAt = nil
		delivery.DeliveredAt = &now
		return
	}

	delivery.Status = models.DeliveryStatusFailed
	delivery.ErrorMessage = err.Error()
	delivery.NextRetryAt = nil

	if !delivery.IsTest && delivery.Attempt < s.settings.MaxAttempts {
		s.rngMu.Lock()
		next := jobs.NextRetryAt(now, delivery.Attempt, s.settings.Backoff, s.rng)
		s.rngMu.Unlock()
		delivery.NextRetryAt = &next
	}

	s.logger.Warn("webhook delivery failed",
		zap.String("webhook_id", webhook.ID),
		zap.String("delivery_id", delivery.ID),
		zap.String("event", delivery.EventType),
		zap.Int("attempt", delivery.Attempt),
		zap.Error(err))
}

func newEventPayload(ownerID, event string, data interface{}) ([]byte, error) {
	envelope := models.EventEnvelope{
		ID:        uuid.NewString(),
		Event:     event,
		Timestamp: timeNow(),
		OwnerID:   ownerID,
		Data:      data,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}

	return payload, nil
}

func newWebhookSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate webhook secret: %w", err)
	}
	return secretPrefix + hex.EncodeToString(b), nil
}

func clampLimit(limit, fallback, maxLimit int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

package models

import (
	"net/url"
	"strings"
	"time"
)

// Events a webhook can subscribe to
const (
	EventExportCompleted   = "export.completed"
	EventExportFailed      = "export.failed"
	EventDeletionCompleted = "deletion.completed"
	EventDeletionFailed    = "deletion.failed"
	EventPromptCreated     = "prompt.created"
	EventPromptDeleted     = "prompt.deleted"
	EventWebhookTest       = "webhook.test"
)

// SubscribableEvents lists the events accepted at registration
var SubscribableEvents = []string{
	EventExportCompleted,
	EventExportFailed,
	EventDeletionCompleted,
	EventDeletionFailed,
	EventPromptCreated,
	EventPromptDeleted,
}

// IsSubscribableEvent reports whether a webhook may subscribe to event
func IsSubscribableEvent(event string) bool {
	for _, e := range SubscribableEvents {
		if e == event {
			return true
		}
	}
	return false
}

// DeliveryStatus is the outcome of one delivery attempt chain
type DeliveryStatus string

const (
	DeliveryStatusSuccess DeliveryStatus = "success"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// Webhook is a tenant-registered endpoint receiving signed event notifications
type Webhook struct {
	ID          string     `json:"id" db:"id"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	URL         string     `json:"url" db:"url"`
	Secret      string     `json:"secret,omitempty" db:"secret"`
	EventTypes  StringList `json:"event_types" db:"event_types"`
	Enabled     bool       `json:"enabled" db:"enabled"`
	Description string     `json:"description" db:"description"`
	Timestamps
}

// Redacted hides the signing secret; it is only shown once, at registration
func (w Webhook) Redacted() Webhook {
	w.Secret = ""
	return w
}

// Subscribed reports whether the webhook should receive event
func (w *Webhook) Subscribed(event string) bool {
	return w.Enabled && w.EventTypes.Contains(event)
}

// WebhookDelivery records one event sent to one webhook
type WebhookDelivery struct {
	ID             string         `json:"id" db:"id"`
	WebhookID      string         `json:"webhook_id" db:"webhook_id"`
	OwnerID        string         `json:"-" db:"owner_id"`
	EventType      string         `json:"event_type" db:"event_type"`
	Payload        []byte         `json:"-" db:"payload"`
	Signature      string         `json:"signature" db:"signature"`
	Attempt        int            `json:"attempt" db:"attempt"`
	Status         DeliveryStatus `json:"status" db:"status"`
	ResponseStatus int            `json:"response_status" db:"response_status"`
	ErrorMessage   string         `json:"error_message,omitempty" db:"error_message"`
	IsTest         bool           `json:"is_test" db:"is_test"`
	NextRetryAt    *time.Time     `json:"next_retry_at,omitempty" db:"next_retry_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty" db:"delivered_at"`
}

// EventEnvelope is the JSON body posted to webhook endpoints
type EventEnvelope struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	OwnerID   string      `json:"owner_id"`
	Data      interface{} `json:"data"`
}

// WebhookForm represents form data for registering a webhook
type WebhookForm struct {
	URL         string   `json:"url"`
	EventTypes  []string `json:"event_types"`
	Description string   `json:"description"`
}

// Validate validates the webhook form data
func (f *WebhookForm) Validate() []string {
	var errors []string

	if msg := validateWebhookURL(f.URL); msg != "" {
		errors = append(errors, msg)
	}

	errors = append(errors, validateEventTypes(f.EventTypes)...)

	if len(f.Description) > 500 {
		errors = append(errors, "Description must be less than 500 characters")
	}

	return errors
}

// WebhookUpdateForm is a partial update; nil fields are left unchanged
type WebhookUpdateForm struct {
	URL         *string   `json:"url,omitempty"`
	EventTypes  *[]string `json:"event_types,omitempty"`
	Enabled     *bool     `json:"enabled,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// Validate validates the webhook update form data
func (f *WebhookUpdateForm) Validate() []string {
	var errors []string

	if f.URL == nil && f.EventTypes == nil && f.Enabled == nil && f.Description == nil {
		errors = append(errors, "Nothing to update")
	}

	if f.URL != nil {
		if msg := validateWebhookURL(*f.URL); msg != "" {
			errors = append(errors, msg)
		}
	}

	if f.EventTypes != nil {
		errors = append(errors, validateEventTypes(*f.EventTypes)...)
	}

	if f.Description != nil && len(*f.Description) > 500 {
		errors = append(errors, "Description must be less than 500 characters")
	}

	return errors
}

func validateWebhookURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "URL is required"
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "URL must be an absolute http(s) URL"
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return "URL must use http or https"
	}

	return ""
}

func validateEventTypes(events []string) []string {
	var errors []string

	if len(Dedup(events)) == 0 {
		errors = append(errors, "At least one event type is required")
	}

	for _, e := range events {
		if !IsSubscribableEvent(strings.TrimSpace(e)) {
			errors = append(errors, "Unknown event type: "+e)
		}
	}

	return errors
}

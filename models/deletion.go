package models

import "time"

// DeletionType scopes what a deletion request removes
type DeletionType string

const (
	DeletionTypeFull        DeletionType = "full"
	DeletionTypePrompts     DeletionType = "prompts"
	DeletionTypeEvaluations DeletionType = "evaluations"
	DeletionTypeSettings    DeletionType = "settings"
	DeletionTypeActivity    DeletionType = "activity"
)

// DeletionStatus tracks the deletion lifecycle; transitions only move forward
type DeletionStatus string

const (
	DeletionStatusPending    DeletionStatus = "pending"
	DeletionStatusProcessing DeletionStatus = "processing"
	DeletionStatusCompleted  DeletionStatus = "completed"
	DeletionStatusFailed     DeletionStatus = "failed"
)

// IsTerminal reports whether the request can no longer change
func (s DeletionStatus) IsTerminal() bool {
	return s == DeletionStatusCompleted || s == DeletionStatusFailed
}

// DeletionStep is one table-level delete in a cascade
type DeletionStep string

const (
	StepEvaluations       DeletionStep = "evaluations"
	StepCollectionItems   DeletionStep = "collection_items"
	StepPrompts           DeletionStep = "prompts"
	StepCollections       DeletionStep = "collections"
	StepWebhookDeliveries DeletionStep = "webhook_deliveries"
	StepWebhooks          DeletionStep = "webhooks"
	StepSettings          DeletionStep = "settings"
	StepActivity          DeletionStep = "activity"
	StepExportBlobs       DeletionStep = "export_blobs"
	StepExports           DeletionStep = "exports"
)

// IsValid reports whether t is a known deletion type
func (t DeletionType) IsValid() bool {
	return len(t.Steps()) > 0
}

// Steps returns the cascade for the deletion type, children before parents
func (t DeletionType) Steps() []DeletionStep {
	switch t {
	case DeletionTypeFull:
		return []DeletionStep{
			StepEvaluations,
			StepCollectionItems,
			StepPrompts,
			StepCollections,
			StepWebhookDeliveries,
			StepWebhooks,
			StepSettings,
			StepActivity,
			StepExportBlobs,
			StepExports,
		}
	case DeletionTypePrompts:
		return []DeletionStep{StepEvaluations, StepCollectionItems, StepPrompts}
	case DeletionTypeEvaluations:
		return []DeletionStep{StepEvaluations}
	case DeletionTypeSettings:
		return []DeletionStep{StepSettings}
	case DeletionTypeActivity:
		return []DeletionStep{StepActivity}
	}
	return nil
}

// Covers reports whether the cascade of t includes step
func (t DeletionType) Covers(step DeletionStep) bool {
	for _, s := range t.Steps() {
		if s == step {
			return true
		}
	}
	return false
}

// DeletionRequest is a confirmed, irreversible removal of a subset of a tenant's data
type DeletionRequest struct {
	ID                 string         `json:"id" db:"id"`
	OwnerID            string         `json:"owner_id" db:"owner_id"`
	DeletionType       DeletionType   `json:"deletion_type" db:"deletion_type"`
	Status             DeletionStatus `json:"status" db:"status"`
	ConfirmationCode   string         `json:"-" db:"confirmation_code"`
	DeletedRecordCount int64          `json:"deleted_record_count" db:"deleted_record_count"`
	LastStep           string         `json:"last_step,omitempty" db:"last_step"`
	ErrorMessage       string         `json:"error_message,omitempty" db:"error_message"`
	RequestedAt        time.Time      `json:"requested_at" db:"requested_at"`
	ConfirmedAt        *time.Time     `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// DeletionForm represents a request to delete data
type DeletionForm struct {
	DeletionType DeletionType `json:"deletion_type"`
}

// Validate validates the deletion form data
func (f *DeletionForm) Validate() []string {
	var errors []string

	if !f.DeletionType.IsValid() {
		errors = append(errors, "Deletion type must be one of full, prompts, evaluations, settings, activity")
	}

	return errors
}

// ConfirmDeletionForm carries the out-of-band confirmation code
type ConfirmDeletionForm struct {
	Code string `json:"code"`
}

// Validate validates the confirmation form data
func (f *ConfirmDeletionForm) Validate() []string {
	var errors []string

	if f.Code == "" {
		errors = append(errors, "Confirmation code is required")
	}

	return errors
}

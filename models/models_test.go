package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// Test PromptForm validation
func TestPromptFormValidation(t *testing.T) {
	validForm := PromptForm{
		Title:   "Summarize",
		Content: "Summarize {{text}}",
		Tags:    []string{"writing"},
	}
	errors := validForm.Validate()
	if len(errors) != 0 {
		t.Errorf("Expected no errors for valid form, got: %v", errors)
	}

	invalidForm := PromptForm{
		Title: strings.Repeat("x", 201),
		Tags:  []string{strings.Repeat("t", 51)},
	}
	errors = invalidForm.Validate()
	if len(errors) != 3 {
		t.Errorf("Expected 3 errors for invalid form, got: %v", errors)
	}
}

// Test CollectionForm and EvaluationForm validation
func TestCollectionAndEvaluationFormValidation(t *testing.T) {
	if errors := (&CollectionForm{Name: "Favorites"}).Validate(); len(errors) != 0 {
		t.Errorf("Expected no errors for valid collection, got: %v", errors)
	}
	if errors := (&CollectionForm{Name: "   "}).Validate(); len(errors) != 1 {
		t.Errorf("Expected 1 error for blank collection name, got: %v", errors)
	}

	if errors := (&EvaluationForm{Model: "gpt-4o", Score: 1}).Validate(); len(errors) != 0 {
		t.Errorf("Expected no errors for valid evaluation, got: %v", errors)
	}
	if errors := (&EvaluationForm{Score: -0.1}).Validate(); len(errors) != 2 {
		t.Errorf("Expected 2 errors for invalid evaluation, got: %v", errors)
	}
}

// Test ExportForm, DeletionForm and webhook form validation
func TestPortabilityFormValidation(t *testing.T) {
	if errors := (&ExportForm{ExportType: ExportTypeFull, Format: ExportFormatZIP}).Validate(); len(errors) != 0 {
		t.Errorf("Expected no errors for valid export, got: %v", errors)
	}
	if errors := (&ExportForm{ExportType: "users", Format: "xml"}).Validate(); len(errors) != 2 {
		t.Errorf("Expected 2 errors for invalid export, got: %v", errors)
	}

	if errors := (&DeletionForm{DeletionType: DeletionTypeEvaluations}).Validate(); len(errors) != 0 {
		t.Errorf("Expected no errors for valid deletion, got: %v", errors)
	}
	if errors := (&DeletionForm{DeletionType: "collections"}).Validate(); len(errors) != 1 {
		t.Errorf("Expected 1 error for unknown deletion type, got: %v", errors)
	}

	valid := WebhookForm{URL: "https://hooks.example.com/pf", EventTypes: []string{EventExportCompleted}}
	if errors := valid.Validate(); len(errors) != 0 {
		t.Errorf("Expected no errors for valid webhook, got: %v", errors)
	}

	invalid := WebhookForm{URL: "example.com", EventTypes: []string{EventWebhookTest}}
	if errors := invalid.Validate(); len(errors) != 2 {
		t.Errorf("Expected 2 errors for invalid webhook, got: %v", errors)
	}

	if errors := (&WebhookUpdateForm{}).Validate(); len(errors) != 1 {
		t.Errorf("Expected an empty update to be rejected, got: %v", errors)
	}
}

// Test the categories and cascades behind each type
func TestCategoriesAndSteps(t *testing.T) {
	if got := ExportTypeFull.Categories(); len(got) != len(AllCategories) {
		t.Errorf("Expected full export to include every category, got: %v", got)
	}
	if got := ExportTypePrompts.Categories(); len(got) != 1 || got[0] != CategoryPrompts {
		t.Errorf("Expected prompts export to include prompts only, got: %v", got)
	}
	if got := ExportType("bogus").Categories(); got != nil {
		t.Errorf("Expected no categories for unknown type, got: %v", got)
	}

	// Children are removed before the rows they reference
	steps := DeletionTypePrompts.Steps()
	position := map[DeletionStep]int{}
	for i, step := range steps {
		position[step] = i
	}
	if position[StepEvaluations] > position[StepPrompts] || position[StepCollectionItems] > position[StepPrompts] {
		t.Errorf("Expected evaluations and collection items before prompts, got: %v", steps)
	}

	full := DeletionTypeFull.Steps()
	if full[len(full)-1] != StepExports {
		t.Errorf("Expected export requests to be removed last, got: %v", full)
	}
}

// Test the export document only carries the included sections
func TestExportDocumentMarshal(t *testing.T) {
	doc := ExportDocument{
		Metadata: ExportMetadata{
			ExportDate:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			ExportType:   ExportTypePrompts,
			Format:       ExportFormatJSON,
			IncludedData: []Category{CategoryPrompts, CategorySettings},
			OwnerID:      "owner-1",
			Version:      1,
		},
		Evaluations: []Evaluation{{ID: "ev-1"}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal document: %v", err)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Failed to unmarshal document: %v", err)
	}

	if len(out) != 3 {
		t.Errorf("Expected metadata plus 2 sections, got keys: %v", out)
	}
	if string(out["prompts"]) != "[]" {
		t.Errorf("Expected empty prompts array, got: %s", out["prompts"])
	}
	if string(out["settings"]) != "{}" {
		t.Errorf("Expected empty settings object, got: %s", out["settings"])
	}
	if _, ok := out["evaluations"]; ok {
		t.Error("Expected evaluations to be left out when not included")
	}

	doc.Metadata.IncludedData = []Category{"unknown"}
	if _, err := json.Marshal(doc); err == nil {
		t.Error("Expected an error for an unknown category")
	}
}

// Test adding loaded sections
func TestExportDocumentAdd(t *testing.T) {
	doc := &ExportDocument{}
	data := &CategoryData{Category: CategorySettings, Settings: map[string]string{"theme": "dark"}}

	if err := doc.Add(data); err != nil {
		t.Fatalf("Failed to add section: %v", err)
	}
	if data.Len() != 1 || doc.Settings["theme"] != "dark" {
		t.Errorf("Expected settings section to be set, got: %v", doc.Settings)
	}
	if err := doc.Add(&CategoryData{Category: "unknown"}); err == nil {
		t.Error("Expected an error for an unknown category")
	}
}

// Test export request helpers
func TestExportRequestHelpers(t *testing.T) {
	requested := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := ExportRequest{
		ID:          "exp-1",
		OwnerID:     "owner-1",
		ExportType:  ExportTypeFull,
		Format:      ExportFormatZIP,
		Encrypted:   true,
		RequestedAt: requested,
		ExpiresAt:   requested.Add(ExportTTL),
	}

	if got := req.BlobKey(); got != "owner-1/exp-1" {
		t.Errorf("Expected blob key owner-1/exp-1, got: %s", got)
	}
	if got := req.FileName(); got != "promptforge-full-20260301.zip.enc" {
		t.Errorf("Unexpected file name: %s", got)
	}
	if req.IsExpired(requested.Add(ExportTTL)) {
		t.Error("Expected export to still be valid at its expiry instant")
	}
	if !req.IsExpired(requested.Add(ExportTTL + time.Second)) {
		t.Error("Expected export to be expired after its expiry")
	}
}

// Test StringList database round trip and helpers
func TestStringList(t *testing.T) {
	value, err := StringList(nil).Value()
	if err != nil || value != "[]" {
		t.Errorf("Expected nil list to store as [], got: %v (%v)", value, err)
	}

	var list StringList
	if err := list.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("Failed to scan list: %v", err)
	}
	if !list.Contains("b") || list.Contains("c") {
		t.Errorf("Unexpected contents: %v", list)
	}

	if err := list.Scan(nil); err != nil || len(list) != 0 {
		t.Errorf("Expected NULL to scan as empty list, got: %v (%v)", list, err)
	}
	if err := list.Scan(42); err == nil {
		t.Error("Expected an error for an unsupported source type")
	}

	deduped := Dedup([]string{" a", "b", "a", "", "b "})
	if len(deduped) != 2 || deduped[0] != "a" || deduped[1] != "b" {
		t.Errorf("Expected [a b], got: %v", deduped)
	}
}

// Test webhook subscription and redaction
func TestWebhookHelpers(t *testing.T) {
	webhook := Webhook{Secret: "whsec_x", Enabled: true, EventTypes: StringList{EventExportCompleted}}

	if !webhook.Subscribed(EventExportCompleted) || webhook.Subscribed(EventExportFailed) {
		t.Error("Unexpected subscription result")
	}

	webhook.Enabled = false
	if webhook.Subscribed(EventExportCompleted) {
		t.Error("Expected a disabled webhook not to be subscribed")
	}

	if redacted := webhook.Redacted(); redacted.Secret != "" || webhook.Secret == "" {
		t.Error("Expected Redacted to clear the secret on a copy only")
	}
}

// Test validation errors match ErrValidation
func TestValidationErrors(t *testing.T) {
	if err := NewValidationError(nil); err != nil {
		t.Errorf("Expected nil for no messages, got: %v", err)
	}

	err := fmt.Errorf("create prompt: %w", NewValidationError([]string{"Title is required"}))
	if !errors.Is(err, ErrValidation) {
		t.Error("Expected errors.Is to match ErrValidation")
	}
	if !strings.Contains(err.Error(), "Title is required") {
		t.Errorf("Expected message in error text, got: %s", err)
	}
}

// Test page normalization
func TestPageNormalize(t *testing.T) {
	if p := (Page{}).Normalize(); p.Limit != 50 {
		t.Errorf("Expected default limit 50, got: %d", p.Limit)
	}
	if p := (Page{Limit: 1000, Offset: -1}).Normalize(); p.Limit != 200 || p.Offset != 0 {
		t.Errorf("Expected clamped page, got: %+v", p)
	}
}

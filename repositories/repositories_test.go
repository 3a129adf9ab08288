package repositories

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/blogem/promptforge/database"
	"github.com/blogem/promptforge/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	// Create a temporary database for testing
	dbPath := filepath.Join(t.TempDir(), "test.db")

	// Initialize test database using the actual migration system
	if err := database.InitializeDatabase(dbPath, nil); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	t.Cleanup(func() {
		database.CloseDB()
	})

	return database.GetDB()
}

func newPrompt(owner, title string) *models.Prompt {
	return &models.Prompt{
		ID:      uuid.NewString(),
		OwnerID: owner,
		Title:   title,
		Content: "Summarize {{input}}",
		Tags:    models.StringList{"summary"},
	}
}

func TestPromptRepository(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	repo := repos.Prompts
	ctx := context.Background()

	// Test Create
	prompt := newPrompt("owner-1", "Summarizer")
	if err := repo.Create(ctx, prompt); err != nil {
		t.Fatalf("Failed to create prompt: %v", err)
	}

	// Test GetByIDForOwner
	retrieved, err := repo.GetByIDForOwner(ctx, prompt.ID, "owner-1")
	if err != nil {
		t.Fatalf("Failed to get prompt: %v", err)
	}

	if retrieved.Title != "Summarizer" {
		t.Errorf("Expected title Summarizer, got %s", retrieved.Title)
	}

	if !retrieved.Tags.Contains("summary") {
		t.Errorf("Expected tags to round trip, got %v", retrieved.Tags)
	}

	// Another owner must not see it
	if _, err := repo.GetByIDForOwner(ctx, prompt.ID, "owner-2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign owner, got %v", err)
	}

	// Test Update
	prompt.Title = "Updated"
	if err := repo.Update(ctx, prompt); err != nil {
		t.Fatalf("Failed to update prompt: %v", err)
	}

	updated, err := repo.GetByIDForOwner(ctx, prompt.ID, "owner-1")
	if err != nil {
		t.Fatalf("Failed to get updated prompt: %v", err)
	}

	if updated.Title != "Updated" || updated.UpdatedAt == nil {
		t.Errorf("Expected updated title and timestamp, got %s %v", updated.Title, updated.UpdatedAt)
	}

	foreign := *prompt
	foreign.OwnerID = "owner-2"
	if err := repo.Update(ctx, &foreign); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating foreign prompt, got %v", err)
	}

	// Test Count and ListByOwner
	if err := repo.Create(ctx, newPrompt("owner-1", "Second")); err != nil {
		t.Fatalf("Failed to create prompt: %v", err)
	}

	count, err := repo.Count(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Failed to count prompts: %v", err)
	}

	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}

	prompts, err := repo.ListByOwner(ctx, "owner-1", models.Page{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to list prompts: %v", err)
	}

	if len(prompts) != 1 {
		t.Errorf("Expected 1 prompt in page, got %d", len(prompts))
	}

	// Test Delete cascades to evaluations
	evaluation := &models.Evaluation{ID: uuid.NewString(), OwnerID: "owner-1", PromptID: prompt.ID, Score: 0.5}
	if err := repo.CreateEvaluation(ctx, evaluation); err != nil {
		t.Fatalf("Failed to create evaluation: %v", err)
	}

	if err := repo.Delete(ctx, prompt.ID, "owner-2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting foreign prompt, got %v", err)
	}

	if err := repo.Delete(ctx, prompt.ID, "owner-1"); err != nil {
		t.Fatalf("Failed to delete prompt: %v", err)
	}

	evaluations, err := repo.ListEvaluations(ctx, prompt.ID, "owner-1")
	if err != nil {
		t.Fatalf("Failed to list evaluations: %v", err)
	}

	if len(evaluations) != 0 {
		t.Errorf("Expected evaluations to be removed with the prompt, got %d", len(evaluations))
	}
}

func TestCollections(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	ctx := context.Background()

	prompt := newPrompt("owner-1", "Translator")
	if err := repos.Prompts.Create(ctx, prompt); err != nil {
		t.Fatalf("Failed to create prompt: %v", err)
	}

	collection := &models.Collection{ID: uuid.NewString(), OwnerID: "owner-1", Name: "Favourites"}
	if err := repos.Prompts.CreateCollection(ctx, collection); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}

	item := &models.CollectionItem{CollectionID: collection.ID, PromptID: prompt.ID}
	for i := 0; i < 2; i++ {
		if err := repos.Prompts.AddToCollection(ctx, item); err != nil {
			t.Fatalf("Failed to add to collection: %v", err)
		}
	}

	retrieved, err := repos.Prompts.GetCollectionForOwner(ctx, collection.ID, "owner-1")
	if err != nil {
		t.Fatalf("Failed to get collection: %v", err)
	}

	if len(retrieved.PromptIDs) != 1 || retrieved.PromptIDs[0] != prompt.ID {
		t.Errorf("Expected collection to hold the prompt once, got %v", retrieved.PromptIDs)
	}
}

func TestSettingsRepository(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	ctx := context.Background()

	if err := repos.Settings.Upsert(ctx, "owner-1", map[string]string{"theme": "dark", "language": "en"}); err != nil {
		t.Fatalf("Failed to upsert settings: %v", err)
	}

	if err := repos.Settings.Upsert(ctx, "owner-1", map[string]string{"theme": "light"}); err != nil {
		t.Fatalf("Failed to upsert settings: %v", err)
	}

	settings, err := repos.Settings.GetAll(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Failed to get settings: %v", err)
	}

	if len(settings) != 2 {
		t.Fatalf("Expected 2 settings, got %d", len(settings))
	}

	if settings[1].Key != "theme" || settings[1].Value != "light" {
		t.Errorf("Expected theme=light, got %s=%s", settings[1].Key, settings[1].Value)
	}

	other, err := repos.Settings.GetAll(ctx, "owner-2")
	if err != nil {
		t.Fatalf("Failed to get settings: %v", err)
	}

	if len(other) != 0 {
		t.Errorf("Expected no settings for another owner, got %d", len(other))
	}
}

func newExport(owner string, requestedAt time.Time) *models.ExportRequest {
	return &models.ExportRequest{
		ID:                 uuid.NewString(),
		OwnerID:            owner,
		ExportType:         models.ExportTypeFull,
		Format:             models.ExportFormatJSON,
		Status:             models.ExportStatusPending,
		IncludedCategories: models.StringList{"prompts"},
		RequestedAt:        requestedAt,
		ExpiresAt:          requestedAt.Add(models.ExportTTL),
	}
}

func TestExportRepository_Lifecycle(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	repo := repos.Exports
	ctx := context.Background()
	now := time.Now().UTC()

	req := newExport("owner-1", now)
	if err := repo.Create(ctx, req); err != nil {
		t.Fatalf("Failed to create export: %v", err)
	}

	if err := repo.MarkProcessing(ctx, req.ID, now); err != nil {
		t.Fatalf("Failed to mark processing: %v", err)
	}

	// Marking twice is rejected
	if err := repo.MarkProcessing(ctx, req.ID, now); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected second MarkProcessing to fail, got %v", err)
	}

	for _, progress := range []int{40, 20, 60} {
		if err := repo.UpdateProgress(ctx, req.ID, progress); err != nil {
			t.Fatalf("Failed to update progress: %v", err)
		}
	}

	got, err := repo.GetByIDForOwner(ctx, req.ID, "owner-1")
	if err != nil {
		t.Fatalf("Failed to get export: %v", err)
	}

	if got.Progress != 60 {
		t.Errorf("Expected progress to stay at its maximum 60, got %d", got.Progress)
	}

	if got.StartedAt == nil {
		t.Error("Expected started_at to be set")
	}

	if err := repo.MarkCompleted(ctx, req.ID, "/downloads/x", 42, now); err != nil {
		t.Fatalf("Failed to mark completed: %v", err)
	}

	// Late failures do not overwrite a completed export
	if err := repo.MarkFailed(ctx, req.ID, "boom", now); err != nil {
		t.Fatalf("Failed to call MarkFailed: %v", err)
	}

	got, err = repo.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("Failed to get export: %v", err)
	}

	if got.Status != models.ExportStatusCompleted || got.Progress != 100 || got.FileSize != 42 {
		t.Errorf("Expected completed at 100%% with size 42, got %s %d %d", got.Status, got.Progress, got.FileSize)
	}

	if _, err := repo.GetByIDForOwner(ctx, req.ID, "owner-2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestExportRepository_ListExpired(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	repo := repos.Exports
	ctx := context.Background()
	now := time.Now().UTC()

	old := newExport("owner-1", now.Add(-8*24*time.Hour))
	fresh := newExport("owner-1", now)
	for _, req := range []*models.ExportRequest{old, fresh} {
		if err := repo.Create(ctx, req); err != nil {
			t.Fatalf("Failed to create export: %v", err)
		}
		if err := repo.MarkProcessing(ctx, req.ID, req.RequestedAt); err != nil {
			t.Fatalf("Failed to mark processing: %v", err)
		}
		if err := repo.MarkCompleted(ctx, req.ID, "", 1, req.RequestedAt); err != nil {
			t.Fatalf("Failed to mark completed: %v", err)
		}
	}

	expired, err := repo.ListExpired(ctx, now)
	if err != nil {
		t.Fatalf("Failed to list expired: %v", err)
	}

	if len(expired) != 1 || expired[0].ID != old.ID {
		t.Fatalf("Expected only the old export to be expired, got %d", len(expired))
	}

	if err := repo.MarkExpired(ctx, old.ID); err != nil {
		t.Fatalf("Failed to mark expired: %v", err)
	}

	history, err := repo.ListByOwner(ctx, "owner-1", 10)
	if err != nil {
		t.Fatalf("Failed to list history: %v", err)
	}

	if len(history) != 2 || history[0].ID != fresh.ID {
		t.Errorf("Expected newest export first, got %d entries", len(history))
	}

	if history[1].Status != models.ExportStatusExpired {
		t.Errorf("Expected old export to be expired, got %s", history[1].Status)
	}
}

func TestBlobStore(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	ctx := context.Background()

	blob := &models.ExportBlob{Key: "owner-1/req-1", OwnerID: "owner-1", ContentType: "application/json", Content: []byte(`{}`)}
	if err := repos.Blobs.Put(ctx, blob); err != nil {
		t.Fatalf("Failed to put blob: %v", err)
	}

	got, err := repos.Blobs.Get(ctx, "owner-1/req-1")
	if err != nil {
		t.Fatalf("Failed to get blob: %v", err)
	}

	if string(got.Content) != `{}` || got.Size != 2 {
		t.Errorf("Unexpected blob content %q size %d", got.Content, got.Size)
	}

	if err := repos.Blobs.Delete(ctx, "owner-1/req-1"); err != nil {
		t.Fatalf("Failed to delete blob: %v", err)
	}

	if _, err := repos.Blobs.Get(ctx, "owner-1/req-1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func seedOwner(t *testing.T, repos *Repositories, owner string) {
	t.Helper()
	ctx := context.Background()

	prompt := newPrompt(owner, "Seed")
	if err := repos.Prompts.Create(ctx, prompt); err != nil {
		t.Fatalf("Failed to create prompt: %v", err)
	}
	collection := &models.Collection{ID: uuid.NewString(), OwnerID: owner, Name: "Seed"}
	if err := repos.Prompts.CreateCollection(ctx, collection); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}
	if err := repos.Prompts.AddToCollection(ctx, &models.CollectionItem{CollectionID: collection.ID, PromptID: prompt.ID}); err != nil {
		t.Fatalf("Failed to add to collection: %v", err)
	}
	if err := repos.Prompts.CreateEvaluation(ctx, &models.Evaluation{ID: uuid.NewString(), OwnerID: owner, PromptID: prompt.ID}); err != nil {
		t.Fatalf("Failed to create evaluation: %v", err)
	}
	if err := repos.Settings.Upsert(ctx, owner, map[string]string{"theme": "dark"}); err != nil {
		t.Fatalf("Failed to upsert settings: %v", err)
	}
	if err := repos.Activity.Create(ctx, &models.ActivityEntry{OwnerID: owner, Action: "prompt.create"}); err != nil {
		t.Fatalf("Failed to create activity: %v", err)
	}
}

func TestDatasetRepository_LoadAndCount(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	ctx := context.Background()
	seedOwner(t, repos, "owner-1")
	seedOwner(t, repos, "owner-2")

	counts, err := repos.Dataset.CountByCategory(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}

	for _, category := range models.AllCategories {
		if counts[category] != 1 {
			t.Errorf("Expected 1 %s record, got %d", category, counts[category])
		}
	}

	data, err := repos.Dataset.Load(ctx, "owner-1", models.CategoryCollections)
	if err != nil {
		t.Fatalf("Failed to load collections: %v", err)
	}

	if len(data.Collections) != 1 || len(data.Collections[0].PromptIDs) != 1 {
		t.Errorf("Expected one collection with one prompt, got %+v", data.Collections)
	}

	data, err = repos.Dataset.Load(ctx, "owner-1", models.CategorySettings)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if data.Settings["theme"] != "dark" {
		t.Errorf("Expected theme=dark, got %v", data.Settings)
	}
}

func TestDatasetRepository_DeleteStepsFullCascade(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	ctx := context.Background()
	seedOwner(t, repos, "owner-1")
	seedOwner(t, repos, "owner-2")

	var total int64
	for _, step := range models.DeletionTypeFull.Steps() {
		n, err := repos.Dataset.DeleteStep(ctx, "owner-1", step)
		if err != nil {
			t.Fatalf("Failed to delete step %s: %v", step, err)
		}
		total += n
	}

	// prompt, collection, item, evaluation, setting, activity
	if total != 6 {
		t.Errorf("Expected 6 deleted rows, got %d", total)
	}

	counts, err := repos.Dataset.CountByCategory(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}

	for category, count := range counts {
		if count != 0 {
			t.Errorf("Expected no %s left, got %d", category, count)
		}
	}

	other, err := repos.Dataset.CountByCategory(ctx, "owner-2")
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}

	if other[models.CategoryPrompts] != 1 {
		t.Errorf("Expected other owner's data untouched, got %v", other)
	}
}

func TestDeletionRepository(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	repo := repos.Deletions
	ctx := context.Background()
	now := time.Now().UTC()

	req := &models.DeletionRequest{
		ID:               uuid.NewString(),
		OwnerID:          "owner-1",
		DeletionType:     models.DeletionTypePrompts,
		Status:           models.DeletionStatusPending,
		ConfirmationCode: "ABC123",
		RequestedAt:      now,
	}
	if err := repo.Create(ctx, req); err != nil {
		t.Fatalf("Failed to create deletion request: %v", err)
	}

	pending, err := repo.GetPendingForOwner(ctx, "owner-1", models.DeletionTypePrompts)
	if err != nil {
		t.Fatalf("Failed to get pending request: %v", err)
	}

	if pending.ID != req.ID || pending.ConfirmationCode != "ABC123" {
		t.Errorf("Unexpected pending request %+v", pending)
	}

	if err := repo.MarkProcessing(ctx, req.ID, now); err != nil {
		t.Fatalf("Failed to mark processing: %v", err)
	}

	if err := repo.MarkProcessing(ctx, req.ID, now); !errors.Is(err, models.ErrConflict) {
		t.Errorf("Expected ErrConflict on second confirmation, got %v", err)
	}

	if err := repo.RecordStep(ctx, req.ID, models.StepEvaluations, 2); err != nil {
		t.Fatalf("Failed to record step: %v", err)
	}
	if err := repo.RecordStep(ctx, req.ID, models.StepPrompts, 3); err != nil {
		t.Fatalf("Failed to record step: %v", err)
	}
	if err := repo.MarkCompleted(ctx, req.ID, now); err != nil {
		t.Fatalf("Failed to mark completed: %v", err)
	}

	got, err := repo.GetByIDForOwner(ctx, req.ID, "owner-1")
	if err != nil {
		t.Fatalf("Failed to get deletion request: %v", err)
	}

	if got.Status != models.DeletionStatusCompleted || got.DeletedRecordCount != 5 || got.LastStep != string(models.StepPrompts) {
		t.Errorf("Unexpected final state %+v", got)
	}

	if _, err := repo.GetPendingForOwner(ctx, "owner-1", models.DeletionTypePrompts); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected no pending request left, got %v", err)
	}
}

func TestWebhookAndDeliveryRepositories(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	webhook := &models.Webhook{
		ID:         uuid.NewString(),
		OwnerID:    "owner-1",
		URL:        "https://example.com/hook",
		Secret:     "whsec_test",
		EventTypes: models.StringList{models.EventExportCompleted},
		Enabled:    true,
	}
	if err := repos.Webhooks.Create(ctx, webhook); err != nil {
		t.Fatalf("Failed to create webhook: %v", err)
	}

	subscribed, err := repos.Webhooks.ListSubscribed(ctx, "owner-1", models.EventExportCompleted)
	if err != nil {
		t.Fatalf("Failed to list subscribed: %v", err)
	}

	if len(subscribed) != 1 {
		t.Errorf("Expected 1 subscribed webhook, got %d", len(subscribed))
	}

	none, err := repos.Webhooks.ListSubscribed(ctx, "owner-1", models.EventDeletionCompleted)
	if err != nil {
		t.Fatalf("Failed to list subscribed: %v", err)
	}

	if len(none) != 0 {
		t.Errorf("Expected no webhook for unsubscribed event, got %d", len(none))
	}

	retryAt := now.Add(-time.Minute)
	delivery := &models.WebhookDelivery{
		ID:          uuid.NewString(),
		WebhookID:   webhook.ID,
		OwnerID:     "owner-1",
		EventType:   models.EventExportCompleted,
		Payload:     []byte(`{"event":"export.completed"}`),
		Signature:   "sha256=00",
		Attempt:     1,
		Status:      models.DeliveryStatusFailed,
		NextRetryAt: &retryAt,
	}
	if err := repos.Deliveries.Create(ctx, delivery); err != nil {
		t.Fatalf("Failed to create delivery: %v", err)
	}

	due, err := repos.Deliveries.ListDueRetries(ctx, now, 10)
	if err != nil {
		t.Fatalf("Failed to list due retries: %v", err)
	}

	if len(due) != 1 || string(due[0].Payload) != string(delivery.Payload) {
		t.Fatalf("Expected the delivery to be due with its payload, got %d", len(due))
	}

	if err := repos.Deliveries.ClaimAttempt(ctx, delivery.ID, 1); err != nil {
		t.Fatalf("Failed to claim delivery: %v", err)
	}

	if err := repos.Deliveries.ClaimAttempt(ctx, delivery.ID, 1); !errors.Is(err, models.ErrConflict) {
		t.Errorf("Expected ErrConflict claiming the same attempt twice, got %v", err)
	}

	due, err = repos.Deliveries.ListDueRetries(ctx, now, 10)
	if err != nil {
		t.Fatalf("Failed to list due retries: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("Expected a claimed delivery to leave the retry schedule, got %d", len(due))
	}

	stale := *delivery
	stale.ErrorMessage = "stale outcome"
	if err := repos.Deliveries.Update(ctx, &stale); !errors.Is(err, models.ErrConflict) {
		t.Errorf("Expected ErrConflict updating with a stale attempt, got %v", err)
	}

	delivery.Status = models.DeliveryStatusSuccess
	delivery.Attempt = 2
	delivery.NextRetryAt = nil
	delivery.DeliveredAt = &now
	if err := repos.Deliveries.Update(ctx, delivery); err != nil {
		t.Fatalf("Failed to update delivery: %v", err)
	}

	if err := repos.Deliveries.ClaimAttempt(ctx, delivery.ID, 2); !errors.Is(err, models.ErrConflict) {
		t.Errorf("Expected ErrConflict claiming a delivered delivery, got %v", err)
	}

	if _, err := repos.Deliveries.GetByIDForOwner(ctx, delivery.ID, "owner-2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign delivery, got %v", err)
	}

	if err := repos.Webhooks.Delete(ctx, webhook.ID, "owner-2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting foreign webhook, got %v", err)
	}

	if err := repos.Webhooks.Delete(ctx, webhook.ID, "owner-1"); err != nil {
		t.Fatalf("Failed to delete webhook: %v", err)
	}

	deliveries, err := repos.Deliveries.ListByWebhook(ctx, webhook.ID, 10)
	if err != nil {
		t.Fatalf("Failed to list deliveries: %v", err)
	}

	if len(deliveries) != 0 {
		t.Errorf("Expected deliveries to be removed with the webhook, got %d", len(deliveries))
	}
}

func TestUserRepository_Upsert(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	ctx := context.Background()

	user := &models.User{ID: "sub-1", Email: "old@example.com", Name: "Old"}
	if err := repos.Users.Upsert(ctx, user); err != nil {
		t.Fatalf("Failed to upsert user: %v", err)
	}

	user.Email = "new@example.com"
	if err := repos.Users.Upsert(ctx, user); err != nil {
		t.Fatalf("Failed to upsert user: %v", err)
	}

	got, err := repos.Users.GetByID(ctx, "sub-1")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}

	if got.Email != "new@example.com" {
		t.Errorf("Expected refreshed email, got %s", got.Email)
	}
}

package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/jobs"
	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/userctx"
)

const (
	confirmationCodeLength   = 8
	confirmationCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// DeletionTicket is returned once when a deletion is requested; the code is not stored in clear
type DeletionTicket struct {
	Request          *models.DeletionRequest `json:"request"`
	ConfirmationCode string                  `json:"confirmation_code"`
}

// DeletionService interface defines the two-step deletion workflow
type DeletionService interface {
	RequestDeletion(ctx context.Context, form *models.DeletionForm) (*DeletionTicket, error)
	ConfirmDeletion(ctx context.Context, id string, form *models.ConfirmDeletionForm) (*models.DeletionRequest, error)
	GetDeletionHistory(ctx context.Context, limit int) ([]models.DeletionRequest, error)
}

// deletionService implements DeletionService interface
type deletionService struct {
	deletionRepo repositories.DeletionRepository
	datasetRepo  repositories.DatasetRepository
	runner       jobs.Runner
	events       EventPublisher
	logger       *zap.Logger
}

// NewDeletionService creates a new deletion service
func NewDeletionService(
	deletionRepo repositories.DeletionRepository,
	datasetRepo repositories.DatasetRepository,
	runner jobs.Runner,
	events EventPublisher,
	logger *zap.Logger,
) DeletionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &deletionService{
		deletionRepo: deletionRepo,
		datasetRepo:  datasetRepo,
		runner:       runner,
		events:       events,
		logger:       logger,
	}
}

// RequestDeletion creates a pending request and returns its confirmation code. Only
// one pending request per deletion type may exist for an owner.
func (s *deletionService) RequestDeletion(ctx context.Context, form *models.DeletionForm) (*DeletionTicket, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := models.NewValidationError(form.Validate()); err != nil {
		return nil, err
	}

	_, err = s.deletionRepo.GetPendingForOwner(ctx, ownerID, form.DeletionType)
	switch {
	case err == nil:
		return nil, fmt.Errorf("a %s deletion is already awaiting confirmation: %w", form.DeletionType, models.ErrConflict)
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	code, err := newConfirmationCode()
	if err != nil {
		return nil, err
	}

	req := &models.DeletionRequest{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		DeletionType:     form.DeletionType,
		Status:           models.DeletionStatusPending,
		ConfirmationCode: hashConfirmationCode(code),
		RequestedAt:      timeNow(),
	}

	if err := s.deletionRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create deletion request: %w", err)
	}

	return &DeletionTicket{Request: req, ConfirmationCode: code}, nil
}

// ConfirmDeletion checks the code and starts the cascade. A wrong code leaves the
// request pending so the caller can retry.
func (s *deletionService) ConfirmDeletion(ctx context.Context, id string, form *models.ConfirmDeletionForm) (*models.DeletionRequest, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := models.NewValidationError(form.Validate()); err != nil {
		return nil, err
	}

	req, err := s.deletionRepo.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if req.Status != models.DeletionStatusPending {
		return nil, fmt.Errorf("pending deletion request %s: %w", id, models.ErrNotFound)
	}

	provided := hashConfirmationCode(form.Code)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(req.ConfirmationCode)) != 1 {
		return nil, models.ErrInvalidCode
	}

	if err := s.deletionRepo.MarkProcessing(ctx, req.ID, timeNow()); err != nil {
		return nil, err
	}

	// the confirming request itself must not outlive an activity wipe
	if req.DeletionType.Covers(models.StepActivity) {
		userctx.SkipActivity(ctx)
	}

	job := jobs.Job{
		Key: req.ID,
		Run: func(jobCtx context.Context) error {
			return s.runCascade(jobCtx, req)
		},
		OnDone: func(err error) {
			s.finishDeletion(req, err)
		},
	}

	if err := s.runner.Submit(job); err != nil {
		_ = s.deletionRepo.MarkFailed(ctx, req.ID, "failed to schedule deletion: "+err.Error(), timeNow())
		return nil, scheduleError("deletion", err)
	}

	return s.deletionRepo.GetByIDForOwner(ctx, req.ID, ownerID)
}

// runCascade deletes children before parents. Each step commits on its own; a failure
// leaves earlier steps applied.
func (s *deletionService) runCascade(ctx context.Context, req *models.DeletionRequest) error {
	s.logger.Info("deletion started",
		zap.String("request_id", req.ID),
		zap.String("owner_id", req.OwnerID),
		zap.String("deletion_type", string(req.DeletionType)))

	for _, step := range req.DeletionType.Steps() {
		deleted, err := s.datasetRepo.DeleteStep(ctx, req.OwnerID, step)
		if err != nil {
			return fmt.Errorf("deletion stopped at step %s: %w", step, err)
		}

		req.DeletedRecordCount += deleted
		req.LastStep = string(step)

		if err := s.deletionRepo.RecordStep(ctx, req.ID, step, deleted); err != nil {
			s.logger.Warn("failed to record deletion step", zap.String("request_id", req.ID), zap.String("step", string(step)), zap.Error(err))
		}
	}

	return nil
}

// finishDeletion is the job's completion callback
func (s *deletionService) finishDeletion(req *models.DeletionRequest, err error) {
	ctx := context.Background()
	now := timeNow()

	data := map[string]interface{}{
		"deletion_id":          req.ID,
		"deletion_type":        req.DeletionType,
		"deleted_record_count": req.DeletedRecordCount,
	}

	if err != nil {
		s.logger.Error("deletion failed", zap.String("request_id", req.ID), zap.String("last_step", req.LastStep), zap.Error(err))

		if markErr := s.deletionRepo.MarkFailed(ctx, req.ID, err.Error(), now); markErr != nil {
			s.logger.Error("failed to mark deletion failed", zap.String("request_id", req.ID), zap.Error(markErr))
		}

		data["error"] = err.Error()
		s.events.Publish(req.OwnerID, models.EventDeletionFailed, data)
		return
	}

	if markErr := s.deletionRepo.MarkCompleted(ctx, req.ID, now); markErr != nil {
		s.logger.Error("failed to mark deletion completed", zap.String("request_id", req.ID), zap.Error(markErr))
	}

	s.logger.Info("deletion completed", zap.String("request_id", req.ID), zap.Int64("deleted_record_count", req.DeletedRecordCount))
	s.events.Publish(req.OwnerID, models.EventDeletionCompleted, data)
}

// GetDeletionHistory retrieves the caller's most recent deletion requests
func (s *deletionService) GetDeletionHistory(ctx context.Context, limit int) ([]models.DeletionRequest, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.deletionRepo.ListByOwner(ctx, ownerID, clampLimit(limit, 10, 100))
}

func newConfirmationCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(confirmationCodeAlphabet)))
	for i := 0; i < confirmationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate confirmation code: %w", err)
		}
		b.WriteByte(confirmationCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// hashConfirmationCode normalizes case and whitespace before hashing
func hashConfirmationCode(code string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(strings.TrimSpace(code))))
	return hex.EncodeToString(sum[:])
}

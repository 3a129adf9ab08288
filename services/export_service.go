package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/encryption"
	"github.com/blogem/promptforge/jobs"
	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/signature"
	"github.com/blogem/promptforge/userctx"
)

const (
	exportDocumentVersion = 1
	defaultLinkTTL        = 15 * time.Minute

	// progress checkpoints; category loading is spread between them
	progressStarted    = 5
	progressLoaded     = 80
	progressSerialized = 90
	progressEncrypted  = 95
)

// ExportSettings configures download links
type ExportSettings struct {
	SigningKey string
	BaseURL    string
	LinkTTL    time.Duration
}

// DownloadLink is a signed, time-limited URL for a completed export
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Download is an export artifact ready to be served
type Download struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService interface defines the export orchestrator
type ExportService interface {
	CreateExport(ctx context.Context, form *models.ExportForm) (*models.ExportRequest, error)
	GetExportStatus(ctx context.Context, id string) (*models.ExportRequest, error)
	GetExportHistory(ctx context.Context, limit int) ([]models.ExportRequest, error)
	GetDownloadURL(ctx context.Context, id string) (*DownloadLink, error)
	OpenDownload(ctx context.Context, id, expires, sig string) (*Download, error)
	GetDataSummary(ctx context.Context) (*models.DataSummary, error)
	SweepExpired(ctx context.Context) (int, error)
}

// exportService implements ExportService interface
type exportService struct {
	exportRepo  repositories.ExportRepository
	datasetRepo repositories.DatasetRepository
	blobs       repositories.BlobStore
	runner      jobs.Runner
	events      EventPublisher
	settings    ExportSettings
	logger      *zap.Logger
}

// NewExportService creates a new export service
func NewExportService(
	exportRepo repositories.ExportRepository,
	datasetRepo repositories.DatasetRepository,
	blobs repositories.BlobStore,
	runner jobs.Runner,
	events EventPublisher,
	settings ExportSettings,
	logger *zap.Logger,
) ExportService {
	if settings.LinkTTL <= 0 {
		settings.LinkTTL = defaultLinkTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &exportService{
		exportRepo:  exportRepo,
		datasetRepo: datasetRepo,
		blobs:       blobs,
		runner:      runner,
		events:      events,
		settings:    settings,
		logger:      logger,
	}
}

// CreateExport records a pending export and submits the job that builds it. The
// password, when given, only lives in the job closure and is never stored.
func (s *exportService) CreateExport(ctx context.Context, form *models.ExportForm) (*models.ExportRequest, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	messages := form.Validate()
	if form.Password != "" {
		if strength := encryption.PasswordStrength(form.Password); !strength.IsStrong {
			messages = append(messages, "Password is too weak: "+strings.Join(strength.Feedback, "; "))
		}
	}
	if err := models.NewValidationError(messages); err != nil {
		return nil, err
	}

	now := timeNow()
	categories := form.ExportType.Categories()
	included := make(models.StringList, len(categories))
	for i, c := range categories {
		included[i] = string(c)
	}

	req := &models.ExportRequest{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		ExportType:         form.ExportType,
		Format:             form.Format,
		Status:             models.ExportStatusPending,
		Encrypted:          form.Password != "",
		IncludedCategories: included,
		RequestedAt:        now,
		ExpiresAt:          now.Add(models.ExportTTL),
	}

	if err := s.exportRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create export: %w", err)
	}

	password := form.Password
	job := jobs.Job{
		Key: req.ID,
		Run: func(jobCtx context.Context) error {
			return s.runExport(jobCtx, req, password)
		},
		OnDone: func(err error) {
			s.finishExport(req, err)
		},
	}

	if err := s.runner.Submit(job); err != nil {
		_ = s.exportRepo.MarkFailed(ctx, req.ID, "failed to schedule export: "+err.Error(), timeNow())
		return nil, scheduleError("export", err)
	}

	return s.exportRepo.GetByIDForOwner(ctx, req.ID, ownerID)
}

// runExport builds the artifact and writes it to the blob store exactly once
func (s *exportService) runExport(ctx context.Context, req *models.ExportRequest, password string) error {
	if err := s.exportRepo.MarkProcessing(ctx, req.ID, timeNow()); err != nil {
		return err
	}

	s.logger.Info("export started",
		zap.String("request_id", req.ID),
		zap.String("owner_id", req.OwnerID),
		zap.String("export_type", string(req.ExportType)))

	s.progress(ctx, req.ID, progressStarted)

	categories := req.ExportType.Categories()
	doc := &models.ExportDocument{
		Metadata: models.ExportMetadata{
			ExportDate:   timeNow(),
			ExportType:   req.ExportType,
			Format:       req.Format,
			IncludedData: categories,
			OwnerID:      req.OwnerID,
			Version:      exportDocumentVersion,
		},
	}

	for i, category := range categories {
		data, err := s.datasetRepo.Load(ctx, req.OwnerID, category)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", category, err)
		}
		if err := doc.Add(data); err != nil {
			return err
		}
		s.progress(ctx, req.ID, progressStarted+(progressLoaded-progressStarted)*(i+1)/len(categories))
	}

	content, err := serializeExport(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize export: %w", err)
	}
	contentType := req.Format.ContentType()
	s.progress(ctx, req.ID, progressSerialized)

	if password != "" {
		content, err = encryption.EncryptBytes(content, password)
		if err != nil {
			return fmt.Errorf("failed to encrypt export: %w", err)
		}
		contentType = "application/json"
		s.progress(ctx, req.ID, progressEncrypted)
	}

	blob := &models.ExportBlob{
		Key:         req.BlobKey(),
		OwnerID:     req.OwnerID,
		ContentType: contentType,
		Content:     content,
		CreatedAt:   timeNow(),
	}
	if err := s.blobs.Put(ctx, blob); err != nil {
		return fmt.Errorf("%w: failed to store export: %v", models.ErrUpstream, err)
	}

	if err := s.exportRepo.MarkCompleted(ctx, req.ID, blob.Key, blob.Size, timeNow()); err != nil {
		// an artifact is only published together with the completed status
		if delErr := s.blobs.Delete(ctx, blob.Key); delErr != nil {
			s.logger.Error("failed to remove unpublished export blob", zap.String("request_id", req.ID), zap.Error(delErr))
		}
		return err
	}

	req.FileSize = blob.Size
	return nil
}

// progress records a checkpoint; a failed write only costs diagnostics
func (s *exportService) progress(ctx context.Context, id string, value int) {
	if err := s.exportRepo.UpdateProgress(ctx, id, value); err != nil {
		s.logger.Warn("failed to update export progress", zap.String("request_id", id), zap.Error(err))
	}
}

// finishExport is the job's completion callback
func (s *exportService) finishExport(req *models.ExportRequest, err error) {
	ctx := context.Background()

	if err != nil {
		s.logger.Error("export failed", zap.String("request_id", req.ID), zap.Error(err))

		if markErr := s.exportRepo.MarkFailed(ctx, req.ID, err.Error(), timeNow()); markErr != nil {
			s.logger.Error("failed to mark export failed", zap.String("request_id", req.ID), zap.Error(markErr))
		}

		s.events.Publish(req.OwnerID, models.EventExportFailed, map[string]interface{}{
			"export_id":   req.ID,
			"export_type": req.ExportType,
			"error":       err.Error(),
		})
		return
	}

	s.logger.Info("export completed", zap.String("request_id", req.ID), zap.Int64("file_size", req.FileSize))

	s.events.Publish(req.OwnerID, models.EventExportCompleted, map[string]interface{}{
		"export_id":     req.ID,
		"export_type":   req.ExportType,
		"format":        req.Format,
		"encrypted":     req.Encrypted,
		"included_data": req.IncludedCategories,
		"file_size":     req.FileSize,
		"expires_at":    req.ExpiresAt,
	})
}

// GetExportStatus retrieves one of the caller's export requests
func (s *exportService) GetExportStatus(ctx context.Context, id string) (*models.ExportRequest, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.exportRepo.GetByIDForOwner(ctx, id, ownerID)
}

// GetExportHistory retrieves the caller's most recent export requests
func (s *exportService) GetExportHistory(ctx context.Context, limit int) ([]models.ExportRequest, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.exportRepo.ListByOwner(ctx, ownerID, clampLimit(limit, 10, 100))
}

// GetDownloadURL signs a download link for a completed export. Past the export's expiry
// the request becomes expired and no link is returned.
func (s *exportService) GetDownloadURL(ctx context.Context, id string) (*DownloadLink, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, err := s.exportRepo.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	if err := s.checkDownloadable(ctx, req, now); err != nil {
		return nil, err
	}

	expires := now.Add(s.settings.LinkTTL)
	if expires.After(req.ExpiresAt) {
		expires = req.ExpiresAt
	}

	query := url.Values{}
	query.Set("expires", fmt.Sprintf("%d", expires.Unix()))
	query.Set("sig", signature.SignDownload(s.settings.SigningKey, req.ID, expires))

	link := strings.TrimRight(s.settings.BaseURL, "/") + "/downloads/" + url.PathEscape(req.ID) + "?" + query.Encode()

	return &DownloadLink{URL: link, ExpiresAt: time.Unix(expires.Unix(), 0).UTC()}, nil
}

// OpenDownload serves the artifact behind a signed link
func (s *exportService) OpenDownload(ctx context.Context, id, expires, sig string) (*Download, error) {
	now := timeNow()

	if err := signature.VerifyDownload(s.settings.SigningKey, id, expires, sig, now); err != nil {
		if errors.Is(err, signature.ErrLinkExpired) {
			return nil, fmt.Errorf("download link: %w", models.ErrExportExpired)
		}
		return nil, fmt.Errorf("download link: %w", models.ErrNotFound)
	}

	req, err := s.exportRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkDownloadable(ctx, req, now); err != nil {
		return nil, err
	}

	blob, err := s.blobs.Get(ctx, req.BlobKey())
	if err != nil {
		return nil, err
	}

	return &Download{
		FileName:    req.FileName(),
		ContentType: blob.ContentType,
		Content:     blob.Content,
	}, nil
}

// checkDownloadable enforces completed status and the fixed expiry
func (s *exportService) checkDownloadable(ctx context.Context, req *models.ExportRequest, now time.Time) error {
	switch req.Status {
	case models.ExportStatusExpired:
		return fmt.Errorf("export %s: %w", req.ID, models.ErrExportExpired)
	case models.ExportStatusCompleted:
	default:
		return fmt.Errorf("export %s is %s: %w", req.ID, req.Status, models.ErrConflict)
	}

	if req.IsExpired(now) {
		s.expire(ctx, req)
		return fmt.Errorf("export %s: %w", req.ID, models.ErrExportExpired)
	}

	return nil
}

// expire marks the request expired and removes its artifact
func (s *exportService) expire(ctx context.Context, req *models.ExportRequest) {
	if err := s.exportRepo.MarkExpired(ctx, req.ID); err != nil {
		s.logger.Error("failed to mark export expired", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	req.Status = models.ExportStatusExpired

	if err := s.blobs.Delete(ctx, req.BlobKey()); err != nil {
		s.logger.Warn("failed to delete expired export blob", zap.String("request_id", req.ID), zap.Error(err))
	}
}

// GetDataSummary counts the caller's records per category
func (s *exportService) GetDataSummary(ctx context.Context) (*models.DataSummary, error) {
	ownerID, err := userctx.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.datasetRepo.CountByCategory(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	summary := &models.DataSummary{Counts: counts}
	for _, count := range counts {
		summary.Total += count
	}

	return summary, nil
}

// SweepExpired expires every completed export past its expiry and returns how many it expired
func (s *exportService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.exportRepo.ListExpired(ctx, timeNow())
	if err != nil {
		return 0, err
	}

	for i := range expired {
		s.expire(ctx, &expired[i])
	}

	if len(expired) > 0 {
		s.logger.Info("expired exports swept", zap.Int("count", len(expired)))
	}

	return len(expired), nil
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blogem/promptforge/models"
)

// BlobStore keeps export artifacts keyed by "{ownerId}/{requestId}"
type BlobStore interface {
	Put(ctx context.Context, blob *models.ExportBlob) error
	Get(ctx context.Context, key string) (*models.ExportBlob, error)
	Delete(ctx context.Context, key string) error
}

type sqliteBlobStore struct {
	db *sqlx.DB
}

// NewBlobStore creates a blob store backed by the export_blobs table
func NewBlobStore(db *sqlx.DB) BlobStore {
	return &sqliteBlobStore{db: db}
}

// Put writes the blob, replacing any previous content under the key
func (s *sqliteBlobStore) Put(ctx context.Context, blob *models.ExportBlob) error {
	blob.Size = int64(len(blob.Content))
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO export_blobs (key, owner_id, content_type, content, size, created_at)
		VALUES (:key, :owner_id, :content_type, :content, :size, :created_at)
		ON CONFLICT(key) DO UPDATE SET content_type = excluded.content_type, content = excluded.content,
			size = excluded.size, created_at = excluded.created_at
	`

	if _, err := s.db.NamedExecContext(ctx, query, blob); err != nil {
		return fmt.Errorf("failed to store blob %s: %w", blob.Key, err)
	}

	return nil
}

// Get reads the blob stored under key
func (s *sqliteBlobStore) Get(ctx context.Context, key string) (*models.ExportBlob, error) {
	var blob models.ExportBlob
	query := `SELECT key, owner_id, content_type, content, size, created_at FROM export_blobs WHERE key = ?`
	if err := s.db.GetContext(ctx, &blob, query, key); err != nil {
		return nil, getError(err, "blob "+key)
	}
	return &blob, nil
}

// Delete removes the blob; a missing key is not an error
func (s *sqliteBlobStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM export_blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

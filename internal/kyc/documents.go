package kyc

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-scout/expert-portal/expert-portal-backend/pkg/storage"
)

// allowedContentTypes is the upload policy for verification documents.
var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

const presignedURLTTL = 15 * time.Minute

// DocumentUpload is an incoming file for a named slot
type DocumentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// DocumentManager stores uploaded documents in object storage and keeps the
// record's slot references consistent: one active reference per slot, with
// the replaced object deleted upstream so orphans do not accumulate.
type DocumentManager struct {
	repo     Repository
	store    storage.S3Client
	bucket   string
	maxBytes int64
	logger   *zap.Logger
}

func NewDocumentManager(repo Repository, store storage.S3Client, bucket string, maxBytes int64, logger *zap.Logger) *DocumentManager {
	return &DocumentManager{
		repo:     repo,
		store:    store,
		bucket:   bucket,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (m *DocumentManager) storageKey(expertID uuid.UUID, slot DocumentSlot, fileName string) string {
	return fmt.Sprintf("experts/%s/verification/%s/%s%s", expertID, slot, uuid.New(), path.Ext(fileName))
}

// Attach uploads a file into a slot and swaps the slot's reference. On any
// failure the previous reference is left untouched. The replaced object is
// deleted from storage after the new reference is committed.
func (m *DocumentManager) Attach(ctx context.Context, rec *Record, slot DocumentSlot, upload DocumentUpload) (*DocumentRef, error) {
	if !ValidSlot(slot) {
		return nil, &UploadRejectedError{Reason: fmt.Sprintf("unknown document slot %q", slot)}
	}
	if !allowedContentTypes[upload.ContentType] {
		return nil, &UploadRejectedError{Reason: fmt.Sprintf("unsupported content type %q", upload.ContentType)}
	}
	if m.maxBytes > 0 && upload.Size > m.maxBytes {
		return nil, &UploadRejectedError{Reason: fmt.Sprintf("file exceeds %d byte limit", m.maxBytes)}
	}

	key := m.storageKey(rec.ExpertID, slot, upload.FileName)
	if err := m.store.Upload(ctx, m.bucket, key, upload.Content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	url, err := m.store.GetPresignedURL(ctx, m.bucket, key, presignedURLTTL)
	if err != nil {
		// The object landed but cannot be referenced; remove it again.
		m.deleteObject(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	previous := rec.Document(slot)
	ref := &DocumentRef{
		ID:          uuid.New(),
		RecordID:    rec.ID,
		Slot:        slot,
		StorageKey:  key,
		URL:         url,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		FileSize:    upload.Size,
		UploadedAt:  time.Now(),
	}
	if err := m.repo.UpsertDocument(ctx, ref); err != nil {
		m.deleteObject(ctx, key)
		return nil, err
	}

	if previous != nil {
		m.deleteObject(ctx, previous.StorageKey)
	}

	rec.Documents[slot] = ref
	return ref, nil
}

// Remove clears a slot's reference and deletes the stored object.
func (m *DocumentManager) Remove(ctx context.Context, rec *Record, slot DocumentSlot) error {
	if !ValidSlot(slot) {
		return &UploadRejectedError{Reason: fmt.Sprintf("unknown document slot %q", slot)}
	}
	ref := rec.Document(slot)
	if ref == nil {
		return nil
	}
	if err := m.repo.DeleteDocument(ctx, rec.ID, slot); err != nil {
		return err
	}
	m.deleteObject(ctx, ref.StorageKey)
	delete(rec.Documents, slot)
	return nil
}

// RefreshURL re-derives a retrievable URL for an existing reference.
func (m *DocumentManager) RefreshURL(ctx context.Context, ref *DocumentRef) (string, error) {
	url, err := m.store.GetPresignedURL(ctx, m.bucket, ref.StorageKey, presignedURLTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return url, nil
}

func (m *DocumentManager) deleteObject(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, m.bucket, key); err != nil {
		m.logger.Error("Failed to delete stored document object",
			zap.String("key", key), zap.Error(err))
	}
}

// Package documents stores the files owners attach to their profiles and the
// admin review of those files.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	documentRepo "venuebook/database/repository/document"
	"venuebook/models"
	"venuebook/services/storage"
	"venuebook/utils"
	"venuebook/utils/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxFileSize is the largest upload accepted.
const MaxFileSize = 10 << 20

var allowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/png":  true,
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Upload is one file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CleanupReport summarises one maintenance sweep.
type CleanupReport struct {
	DeletionsFinished int `json:"deletions_finished"`
	OrphansRemoved    int `json:"orphans_removed"`
	Failures          int `json:"failures"`
}

// DocumentService manages document blobs and their metadata rows.
type DocumentService struct {
	Repo    documentRepo.DocumentRepository
	Storage storage.StorageService
	Logger  *zap.Logger
	Now     func() time.Time
	// Grace keeps the sweep away from uploads and deletions still in flight.
	Grace time.Duration
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(repo documentRepo.DocumentRepository, store storage.StorageService, logger *zap.Logger) *DocumentService {
	return &DocumentService{Repo: repo, Storage: store, Logger: logger, Now: time.Now, Grace: 15 * time.Minute}
}

func (s *DocumentService) now() time.Time { return s.Now().UTC() }

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if len(name) > 120 {
		name = name[len(name)-120:]
	}
	return name
}

// Upload stores the blob first and then its metadata. A failed metadata
// insert removes the blob again.
func (s *DocumentService) Upload(ctx context.Context, owner utils.Session, docType models.DocumentType, f Upload) (*models.Document, error) {
	if owner.UserID == "" {
		return nil, apperr.ErrForbidden
	}
	if !docType.Valid() {
		return nil, apperr.Validation("document_type", "must be cv, resume, certificate or portfolio")
	}
	if f.Size <= 0 {
		return nil, apperr.Validation("file", "empty file")
	}
	if f.Size > MaxFileSize {
		return nil, apperr.Validation("file", "larger than 10 MB")
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(f.ContentType, ";")[0]))
	if !allowedContentTypes[contentType] {
		return nil, apperr.Validation("content_type", "unsupported file type "+contentType)
	}
	fileName := sanitizeFileName(f.FileName)
	if fileName == "" {
		return nil, apperr.Validation("file_name", "required")
	}

	id := uuid.New().String()
	doc := &models.Document{
		ID:          id,
		UserID:      owner.UserID,
		Type:        docType,
		FileName:    fileName,
		StoragePath: fmt.Sprintf("%s/%s-%s", owner.UserID, id, fileName),
		ContentType: contentType,
		Size:        f.Size,
		IsPublic:    docType.PublicByDefault(),
		CreatedAt:   s.now(),
	}

	if err := s.Storage.Upload(ctx, storage.Object{
		Path:        doc.StoragePath,
		ContentType: contentType,
		Size:        f.Size,
		Body:        io.LimitReader(f.Body, MaxFileSize),
	}); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Storage.Delete(ctx, doc.StoragePath); delErr != nil {
			s.Logger.Error("failed to remove blob after metadata insert failed",
				zap.String("path", doc.StoragePath), zap.Error(delErr))
		}
		return nil, err
	}
	s.Logger.Info("document uploaded", zap.String("documentId", id), zap.String("userId", owner.UserID))
	return doc, nil
}

// Review records an admin decision. A refusal needs notes.
func (s *DocumentService) Review(ctx context.Context, admin utils.Session, docID string, verified bool, notes string) (*models.Document, error) {
	if !admin.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	notes = strings.TrimSpace(notes)
	if !verified && notes == "" {
		return nil, apperr.Validation("notes", "explain why the document was not accepted")
	}
	return s.Repo.SetReview(ctx, docID, documentRepo.Review{
		Verified:   verified,
		Notes:      notes,
		ReviewedBy: admin.UserID,
		At:         s.now(),
	})
}

// SignedURL returns a short-lived download link. Owners and admins can fetch
// any of their documents; everyone else only public ones.
func (s *DocumentService) SignedURL(ctx context.Context, requester *utils.Session, docID string, expires time.Duration) (string, error) {
	doc, err := s.Repo.GetByID(ctx, docID)
	if err != nil {
		return "", err
	}
	if doc.DeletingAt != nil {
		return "", fmt.Errorf("document %s: %w", docID, apperr.ErrNotFound)
	}
	allowed := doc.IsPublic || (requester != nil && (requester.UserID == doc.UserID || requester.IsAdmin()))
	if !allowed {
		return "", fmt.Errorf("document %s: %w", docID, apperr.ErrForbidden)
	}
	return s.Storage.SignedURL(ctx, doc.StoragePath, storage.ClampExpiry(expires))
}

// Delete removes a document. Deleting a missing document succeeds. When the
// blob cannot be removed the document stays hidden behind its tombstone and
// CleanupOrphans finishes the job.
func (s *DocumentService) Delete(ctx context.Context, requester utils.Session, docID string) error {
	doc, err := s.Repo.GetByID(ctx, docID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if doc.UserID != requester.UserID && !requester.IsAdmin() {
		return fmt.Errorf("document %s: %w", docID, apperr.ErrForbidden)
	}

	doc, err = s.Repo.MarkDeleting(ctx, docID, s.now())
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.Storage.Delete(ctx, doc.StoragePath); err != nil {
		s.Logger.Warn("blob delete failed, left for cleanup", zap.String("documentId", docID), zap.Error(err))
		return nil
	}
	if err := s.Repo.Delete(ctx, docID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	s.Logger.Info("document deleted", zap.String("documentId", docID))
	return nil
}

// List returns the caller's live documents.
func (s *DocumentService) List(ctx context.Context, owner utils.Session) ([]models.Document, error) {
	return s.Repo.ListByUser(ctx, owner.UserID)
}

// CleanupOrphans finishes interrupted deletions and, on backends that can
// list their contents, removes blobs no metadata row points at.
func (s *DocumentService) CleanupOrphans(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport
	cutoff := s.now().Add(-s.Grace)

	stale, err := s.Repo.ListDeleting(ctx, cutoff)
	if err != nil {
		return report, err
	}
	for _, doc := range stale {
		if err := s.Storage.Delete(ctx, doc.StoragePath); err != nil {
			report.Failures++
			s.Logger.Warn("cleanup: blob delete failed", zap.String("documentId", doc.ID), zap.Error(err))
			continue
		}
		if err := s.Repo.Delete(ctx, doc.ID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			report.Failures++
			continue
		}
		report.DeletionsFinished++
	}

	lister, ok := s.Storage.(storage.Lister)
	if !ok {
		return report, nil
	}
	objects, err := lister.List(ctx, "")
	if err != nil {
		return report, err
	}
	for _, obj := range objects {
		if obj.ModifiedAt.After(cutoff) {
			continue
		}
		exists, err := s.Repo.ExistsByPath(ctx, obj.Path)
		if err != nil {
			report.Failures++
			continue
		}
		if exists {
			continue
		}
		if err := s.Storage.Delete(ctx, obj.Path); err != nil {
			report.Failures++
			continue
		}
		report.OrphansRemoved++
	}
	s.Logger.Info("document cleanup finished",
		zap.Int("deletionsFinished", report.DeletionsFinished),
		zap.Int("orphansRemoved", report.OrphansRemoved),
		zap.Int("failures", report.Failures),
	)
	return report, nil
}

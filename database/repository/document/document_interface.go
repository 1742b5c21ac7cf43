package documentRepo

import (
	"context"
	"time"

	"venuebook/models"
)

// Review is an admin decision on a document.
type Review struct {
	Verified   bool
	Notes      string
	ReviewedBy string
	At         time.Time
}

// DocumentRepository defines methods for document metadata access.
type DocumentRepository interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	SetReview(ctx context.Context, id string, review Review) (*models.Document, error)
	// MarkDeleting sets the deletion tombstone. It is a no-op on a document
	// already marked.
	MarkDeleting(ctx context.Context, id string, at time.Time) (*models.Document, error)
	Delete(ctx context.Context, id string) error
	// ListDeleting returns tombstoned documents marked before cutoff.
	ListDeleting(ctx context.Context, cutoff time.Time) ([]models.Document, error)
	ExistsByPath(ctx context.Context, storagePath string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.Document, error)
}

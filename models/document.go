package models

import "time"

// DocumentType classifies an uploaded document.
type DocumentType string

const (
	DocumentCV          DocumentType = "cv"
	DocumentResume      DocumentType = "resume"
	DocumentCertificate DocumentType = "certificate"
	DocumentPortfolio   DocumentType = "portfolio"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentCV, DocumentResume, DocumentCertificate, DocumentPortfolio:
		return true
	}
	return false
}

// PublicByDefault reports whether documents of this type are public on upload.
func (t DocumentType) PublicByDefault() bool {
	return t == DocumentCV || t == DocumentResume
}

// Document is the metadata row of a stored file.
type Document struct {
	ID              string       `bson:"id" json:"id"`
	UserID          string       `bson:"user_id" json:"user_id"`
	Type            DocumentType `bson:"document_type" json:"document_type"`
	FileName        string       `bson:"file_name" json:"file_name"`
	StoragePath     string       `bson:"storage_path" json:"-"`
	ContentType     string       `bson:"content_type" json:"content_type"`
	Size            int64        `bson:"size" json:"size"`
	IsPublic        bool         `bson:"is_public" json:"is_public"`
	VerifiedByAdmin bool         `bson:"verified_by_admin" json:"verified_by_admin"`
	AdminNotes      string       `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	VerifiedAt      *time.Time   `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	ReviewedBy      string       `bson:"reviewed_by,omitempty" json:"-"`
	CreatedAt       time.Time    `bson:"created_at" json:"created_at"`
	// DeletingAt marks a deletion in progress; the row is gone once the blob is.
	DeletingAt *time.Time `bson:"deleting_at,omitempty" json:"-"`
}

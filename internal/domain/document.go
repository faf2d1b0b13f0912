package domain

import (
	"context"
	"time"
)

// DocumentKind identifies a user document slot.
type DocumentKind string

const (
	KindPassport DocumentKind = "passport"
	KindVisa     DocumentKind = "visa"
)

// Valid reports whether the kind names a real slot.
func (k DocumentKind) Valid() bool {
	return k == KindPassport || k == KindVisa
}

// DocumentStatus is the review state of an uploaded document.
type DocumentStatus string

const (
	StatusPending  DocumentStatus = "pending"
	StatusApproved DocumentStatus = "approved"
	StatusRejected DocumentStatus = "rejected"
)

// DocumentReference pairs the two identifiers that make up one logical
// uploaded document: the reference-store media file (public display) and the
// blob-store object (private backup). A slot with only one of the two set is
// degraded but still treated as present.
type DocumentReference struct {
	ReferenceFileID string
	BlobObjectID    string
	FileName        string
	DisplayURL      string
	UploadedAt      time.Time
	Status          DocumentStatus
}

// Degraded reports whether only one of the two backing identifiers is set.
func (r *DocumentReference) Degraded() bool {
	if r == nil {
		return false
	}
	return (r.ReferenceFileID == "") != (r.BlobObjectID == "")
}

// User is the identity record owned by the reference store. This service
// never caches it beyond a single request.
type User struct {
	ID          string
	Username    string
	Email       string
	Nationality string
	Phone       string
	Passport    *DocumentReference
	Visa        *DocumentReference
}

// Slot returns the document reference for the given kind.
func (u *User) Slot(kind DocumentKind) *DocumentReference {
	switch kind {
	case KindPassport:
		return u.Passport
	case KindVisa:
		return u.Visa
	default:
		return nil
	}
}

// BlobUploadResult is returned by a private blob upload.
type BlobUploadResult struct {
	ObjectID  string
	SecureURL string
}

// BlobStore abstracts the object-storage service holding raw document bytes.
type BlobStore interface {
	UploadPrivate(ctx context.Context, data []byte, fileName string, kind DocumentKind, ownerID string) (*BlobUploadResult, error)
	DeleteObject(ctx context.Context, objectID string) error
	BuildAccessURL(objectID string) string
	FetchObject(ctx context.Context, objectID string) (data []byte, contentType string, err error)
}

// UserStore is the reference-store surface for user records and their
// document slots.
type UserStore interface {
	GetUser(ctx context.Context, token string) (*User, error)
	// SetDocumentSlot writes both identifiers of a slot. A nil ref clears
	// the slot (both identifiers null).
	SetDocumentSlot(ctx context.Context, token, userID string, kind DocumentKind, ref *DocumentReference) error
}

// MediaStore is the reference-store media library.
type MediaStore interface {
	UploadMedia(ctx context.Context, token string, data []byte, fileName, mimeType string) (fileID, url string, err error)
	DeleteMediaFile(ctx context.Context, token, fileID string) error
}

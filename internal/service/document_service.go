package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/events"
	"github.com/yourorg/tourbook/internal/observability/metrics"
	"github.com/yourorg/tourbook/pkg/config"
)

// StepError is a fatal failure of one named step of a lifecycle operation.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// CleanupFailure records a best-effort step that failed but did not abort
// the operation. The slot state is still what the caller asked for; only
// residual bytes may linger in a backing store.
type CleanupFailure struct {
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

// DocumentService orchestrates the dual-write document lifecycle across the
// blob store and the reference store.
type DocumentService struct {
	blob    domain.BlobStore
	users   domain.UserStore
	media   domain.MediaStore
	intents domain.IntentRepository
	hub     *events.Hub
	logger  *slog.Logger
	config  *config.Config
}

// NewDocumentService creates a new document lifecycle service. intents and
// hub may be nil; the journal and the event stream are both advisory.
func NewDocumentService(
	blob domain.BlobStore,
	users domain.UserStore,
	media domain.MediaStore,
	intents domain.IntentRepository,
	hub *events.Hub,
	logger *slog.Logger,
	cfg *config.Config,
) *DocumentService {
	return &DocumentService{
		blob:    blob,
		users:   users,
		media:   media,
		intents: intents,
		hub:     hub,
		logger:  logger,
		config:  cfg,
	}
}

// UploadInput is a validated upload request.
type UploadInput struct {
	Token          string
	OwnerID        string
	Kind           domain.DocumentKind
	Data           []byte
	FileName       string
	MimeType       string
	ReplacesFileID string
}

// Validate checks the input shape without touching any remote store.
func (in *UploadInput) Validate(cfg *config.Config) *domain.ValidationError {
	var fields []domain.FieldError
	if in.OwnerID == "" {
		fields = append(fields, domain.FieldError{Field: "ownerId", Message: "required"})
	}
	if !in.Kind.Valid() {
		fields = append(fields, domain.FieldError{Field: "documentType", Message: "must be passport or visa"})
	}
	if len(in.Data) == 0 {
		fields = append(fields, domain.FieldError{Field: "file", Message: "required"})
	}
	if int64(len(in.Data)) > cfg.MaxUploadBytes {
		fields = append(fields, domain.FieldError{
			Field:   "file",
			Message: fmt.Sprintf("exceeds maximum size of %d bytes", cfg.MaxUploadBytes),
		})
	}
	if !cfg.MimeAllowed(in.MimeType) {
		fields = append(fields, domain.FieldError{Field: "mimeType", Message: "must be pdf, jpeg, png or jpg"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

// UploadResult carries the two identifiers of the written slot plus any
// residual cleanup debt from best-effort steps.
type UploadResult struct {
	FileID       string
	BlobObjectID string
	DisplayURL   string
	CleanupDebt  []CleanupFailure
}

// Upload runs the dual-write: blob store first, then the reference store
// media library, then the user record's slot. The steps are sequential and
// not transactional. If the slot update succeeds the slot is fully
// consistent; if the blob upload succeeds but a later step fails, the
// pending upload intent lets the sweeper remove the orphaned blob.
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	start := time.Now()
	if verr := in.Validate(s.config); verr != nil {
		metrics.ObserveDocumentOperation("upload", "invalid", time.Since(start))
		return nil, verr
	}

	result := &UploadResult{}

	if in.ReplacesFileID != "" {
		if err := s.media.DeleteMediaFile(ctx, in.Token, in.ReplacesFileID); err != nil {
			s.logger.Warn("prior media file delete failed, continuing",
				slog.String("owner_id", in.OwnerID),
				slog.String("file_id", in.ReplacesFileID),
				slog.String("error", err.Error()),
			)
			metrics.ObserveCleanupDebt("upload", "delete_prior_media")
			result.CleanupDebt = append(result.CleanupDebt, CleanupFailure{
				Step: "delete_prior_media", Reason: err.Error(),
			})
		}
	}

	blobResult, err := s.blob.UploadPrivate(ctx, in.Data, in.FileName, in.Kind, in.OwnerID)
	if err != nil {
		metrics.ObserveDocumentOperation("upload", "error", time.Since(start))
		return nil, &StepError{Step: "blob_upload", Err: err}
	}
	result.BlobObjectID = blobResult.ObjectID

	intentID := s.journalPending(in.OwnerID, in.Kind, blobResult.ObjectID)

	fileID, url, err := s.media.UploadMedia(ctx, in.Token, in.Data, in.FileName, in.MimeType)
	if err != nil {
		s.logger.Error("media upload failed after blob upload, orphaned blob recorded",
			slog.String("owner_id", in.OwnerID),
			slog.String("blob_object_id", blobResult.ObjectID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveDocumentOperation("upload", "error", time.Since(start))
		return nil, &StepError{Step: "media_upload", Err: err}
	}
	result.FileID = fileID
	result.DisplayURL = url

	ref := &domain.DocumentReference{
		ReferenceFileID: fileID,
		BlobObjectID:    blobResult.ObjectID,
		FileName:        in.FileName,
		DisplayURL:      url,
		UploadedAt:      time.Now(),
		Status:          domain.StatusPending,
	}
	if err := s.users.SetDocumentSlot(ctx, in.Token, in.OwnerID, in.Kind, ref); err != nil {
		s.logger.Error("slot update failed after both uploads, orphaned blob recorded",
			slog.String("owner_id", in.OwnerID),
			slog.String("blob_object_id", blobResult.ObjectID),
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveDocumentOperation("upload", "error", time.Since(start))
		return nil, &StepError{Step: "slot_update", Err: err}
	}

	s.journalCommitted(intentID)

	metrics.ObserveDocumentOperation("upload", "success", time.Since(start))
	if s.hub != nil {
		s.hub.Publish(events.Event{
			Type:     events.TypeDocumentUploaded,
			OwnerID:  in.OwnerID,
			Kind:     string(in.Kind),
			ObjectID: blobResult.ObjectID,
		})
	}
	s.logger.Info("document uploaded",
		slog.String("owner_id", in.OwnerID),
		slog.String("kind", string(in.Kind)),
		slog.String("blob_object_id", blobResult.ObjectID),
		slog.String("file_id", fileID),
	)
	return result, nil
}

// View builds a direct access URL for a blob object. It does not verify
// ownership; the API layer resolves that against the caller's user record.
func (s *DocumentService) View(ownerID, objectID string) (string, error) {
	if ownerID == "" {
		return "", domain.NewValidationError(domain.FieldError{Field: "ownerId", Message: "required"})
	}
	if objectID == "" {
		return "", domain.NewValidationError(domain.FieldError{Field: "publicId", Message: "required"})
	}
	return s.blob.BuildAccessURL(objectID), nil
}

// DeleteResult reports a cleared slot plus any residual cleanup debt.
type DeleteResult struct {
	CleanupDebt []CleanupFailure
}

// Delete clears a document slot. The backing-store deletions are best
// effort; only the slot update itself can fail the operation.
func (s *DocumentService) Delete(ctx context.Context, token, ownerID string, kind domain.DocumentKind) (*DeleteResult, error) {
	start := time.Now()
	if ownerID == "" {
		metrics.ObserveDocumentOperation("delete", "invalid", time.Since(start))
		return nil, domain.NewValidationError(domain.FieldError{Field: "ownerId", Message: "required"})
	}
	if !kind.Valid() {
		metrics.ObserveDocumentOperation("delete", "invalid", time.Since(start))
		return nil, domain.NewValidationError(domain.FieldError{Field: "documentType", Message: "must be passport or visa"})
	}

	user, err := s.users.GetUser(ctx, token)
	if err != nil {
		metrics.ObserveDocumentOperation("delete", "error", time.Since(start))
		return nil, &StepError{Step: "user_lookup", Err: err}
	}
	slot := user.Slot(kind)
	if slot == nil || (slot.ReferenceFileID == "" && slot.BlobObjectID == "") {
		metrics.ObserveDocumentOperation("delete", "not_found", time.Since(start))
		return nil, fmt.Errorf("no %s document on record: %w", kind, domain.ErrNotFound)
	}

	result := &DeleteResult{}

	if slot.BlobObjectID != "" && !strings.HasPrefix(slot.BlobObjectID, "http") {
		if err := s.blob.DeleteObject(ctx, slot.BlobObjectID); err != nil {
			s.logger.Warn("blob delete failed, continuing",
				slog.String("owner_id", ownerID),
				slog.String("blob_object_id", slot.BlobObjectID),
				slog.String("error", err.Error()),
			)
			metrics.ObserveCleanupDebt("delete", "blob_delete")
			result.CleanupDebt = append(result.CleanupDebt, CleanupFailure{
				Step: "blob_delete", Reason: err.Error(),
			})
		}
	} else if slot.BlobObjectID != "" {
		s.logger.Warn("blob object id looks like a raw URL, skipping blob delete",
			slog.String("owner_id", ownerID),
			slog.String("blob_object_id", slot.BlobObjectID),
		)
	}

	if slot.ReferenceFileID != "" {
		if err := s.media.DeleteMediaFile(ctx, token, slot.ReferenceFileID); err != nil {
			s.logger.Warn("media file delete failed, continuing",
				slog.String("owner_id", ownerID),
				slog.String("file_id", slot.ReferenceFileID),
				slog.String("error", err.Error()),
			)
			metrics.ObserveCleanupDebt("delete", "media_delete")
			result.CleanupDebt = append(result.CleanupDebt, CleanupFailure{
				Step: "media_delete", Reason: err.Error(),
			})
		}
	}

	if err := s.users.SetDocumentSlot(ctx, token, ownerID, kind, nil); err != nil {
		metrics.ObserveDocumentOperation("delete", "error", time.Since(start))
		return nil, &StepError{Step: "slot_update", Err: err}
	}

	metrics.ObserveDocumentOperation("delete", "success", time.Since(start))
	if s.hub != nil {
		s.hub.Publish(events.Event{
			Type:     events.TypeDocumentDeleted,
			OwnerID:  ownerID,
			Kind:     string(kind),
			ObjectID: slot.BlobObjectID,
		})
	}
	s.logger.Info("document deleted",
		slog.String("owner_id", ownerID),
		slog.String("kind", string(kind)),
		slog.Int("cleanup_debt", len(result.CleanupDebt)),
	)
	return result, nil
}

// DocumentSlot is one shaped slot in a listing, nil when empty.
type DocumentSlot struct {
	Kind      domain.DocumentKind
	Reference *domain.DocumentReference
}

// List reads the caller's user record and shapes both document slots.
// Degraded slots (one identifier missing) are returned as-is.
func (s *DocumentService) List(ctx context.Context, token string) ([]DocumentSlot, error) {
	start := time.Now()
	user, err := s.users.GetUser(ctx, token)
	if err != nil {
		metrics.ObserveDocumentOperation("list", "error", time.Since(start))
		return nil, &StepError{Step: "user_lookup", Err: err}
	}

	slots := []DocumentSlot{
		{Kind: domain.KindPassport, Reference: presentSlot(user.Passport)},
		{Kind: domain.KindVisa, Reference: presentSlot(user.Visa)},
	}
	metrics.ObserveDocumentOperation("list", "success", time.Since(start))
	return slots, nil
}

// Owner returns the caller's user record for ownership checks at the API
// layer. Never cached.
func (s *DocumentService) Owner(ctx context.Context, token string) (*domain.User, error) {
	return s.users.GetUser(ctx, token)
}

// Proxy fetches blob bytes for relay to the caller.
func (s *DocumentService) Proxy(ctx context.Context, objectID string) ([]byte, string, error) {
	if objectID == "" {
		return nil, "", domain.NewValidationError(domain.FieldError{Field: "publicId", Message: "required"})
	}
	return s.blob.FetchObject(ctx, objectID)
}

func presentSlot(ref *domain.DocumentReference) *domain.DocumentReference {
	if ref == nil || (ref.ReferenceFileID == "" && ref.BlobObjectID == "") {
		return nil
	}
	if ref.Status == "" {
		ref.Status = domain.StatusPending
	}
	return ref
}

// journalPending records an upload intent. Journal failures are logged and
// swallowed; the journal only feeds the orphan sweeper.
func (s *DocumentService) journalPending(ownerID string, kind domain.DocumentKind, objectID string) string {
	if s.intents == nil {
		return ""
	}
	intent := &domain.UploadIntent{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Kind:         kind,
		BlobObjectID: objectID,
		State:        domain.IntentPending,
	}
	if err := s.intents.Create(intent); err != nil {
		s.logger.Warn("upload intent journal write failed",
			slog.String("owner_id", ownerID),
			slog.String("blob_object_id", objectID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return intent.ID
}

func (s *DocumentService) journalCommitted(intentID string) {
	if s.intents == nil || intentID == "" {
		return
	}
	if err := s.intents.MarkCommitted(intentID); err != nil {
		s.logger.Warn("upload intent commit mark failed",
			slog.String("intent_id", intentID),
			slog.String("error", err.Error()),
		)
	}
}

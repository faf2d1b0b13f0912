package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger writes the security audit trail on top of the application logger.
// Every successful or denied document operation leaves a line here.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID := ctx.Value("request_id"); reqID != nil {
		requestID = reqID.(string)
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

// LogDocumentUpload records a completed document upload.
func (al *Logger) LogDocumentUpload(ctx context.Context, userID, kind, objectID string) {
	al.LogAction(ctx, userID, "document_upload", "document", objectID, "success", kind)
}

// LogDocumentDelete records a completed document delete.
func (al *Logger) LogDocumentDelete(ctx context.Context, userID, kind string) {
	al.LogAction(ctx, userID, "document_delete", "document", "", "success", kind)
}

// LogDocumentAccess records a view or proxy access to a document.
func (al *Logger) LogDocumentAccess(ctx context.Context, userID, objectID string) {
	al.LogAction(ctx, userID, "document_access", "document", objectID, "success", "")
}

// LogDenied records a rejected access attempt.
func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}

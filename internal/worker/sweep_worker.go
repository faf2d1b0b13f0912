package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/events"
	"github.com/yourorg/tourbook/internal/observability/metrics"
)

// SweepWorker periodically reconciles the upload-intent journal: a pending
// intent older than the staleness threshold means a blob was uploaded but
// the user record was never updated, leaving an orphaned private object.
// The worker best-effort deletes the blob and marks the intent reconciled.
type SweepWorker struct {
	intents   domain.IntentRepository
	blob      domain.BlobStore
	hub       *events.Hub
	logger    *slog.Logger
	interval  time.Duration
	staleness time.Duration
}

func NewSweepWorker(
	intents domain.IntentRepository,
	blob domain.BlobStore,
	hub *events.Hub,
	logger *slog.Logger,
	interval time.Duration,
	staleness time.Duration,
) *SweepWorker {
	return &SweepWorker{
		intents:   intents,
		blob:      blob,
		hub:       hub,
		logger:    logger,
		interval:  interval,
		staleness: staleness,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (w *SweepWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("orphan sweep worker started",
		slog.Duration("interval", w.interval),
		slog.Duration("staleness", w.staleness),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("orphan sweep worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass and returns the number of intents
// reconciled.
func (w *SweepWorker) Sweep(ctx context.Context) int {
	cutoff := time.Now().Add(-w.staleness)
	stale, err := w.intents.ListStalePending(cutoff)
	if err != nil {
		w.logger.Error("failed to list stale intents", slog.String("error", err.Error()))
		metrics.ObserveOrphanSweep("list_error")
		return 0
	}

	if pending, err := w.intents.CountByState(domain.IntentPending); err == nil {
		metrics.SetPendingIntents(pending)
	}

	reconciled := 0
	for _, intent := range stale {
		if err := w.blob.DeleteObject(ctx, intent.BlobObjectID); err != nil {
			w.logger.Warn("orphaned blob delete failed, marking reconciled anyway",
				slog.String("intent_id", intent.ID),
				slog.String("blob_object_id", intent.BlobObjectID),
				slog.String("error", err.Error()),
			)
			metrics.ObserveOrphanSweep("delete_error")
		} else {
			metrics.ObserveOrphanSweep("deleted")
		}

		if err := w.intents.MarkReconciled(intent.ID); err != nil {
			w.logger.Error("failed to mark intent reconciled",
				slog.String("intent_id", intent.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		reconciled++

		if w.hub != nil {
			w.hub.Publish(events.Event{
				Type:     events.TypeOrphanSwept,
				OwnerID:  intent.OwnerID,
				Kind:     string(intent.Kind),
				ObjectID: intent.BlobObjectID,
			})
		}
		w.logger.Info("orphaned upload reconciled",
			slog.String("intent_id", intent.ID),
			slog.String("owner_id", intent.OwnerID),
			slog.String("blob_object_id", intent.BlobObjectID),
		)
	}
	return reconciled
}

package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TijaraHub/tijara_api/internal/service"
)

// ReconcileWorker resolves pending payment transactions whose webhook never
// arrived by polling the gateway for their charge status.
type ReconcileWorker struct {
	subService *service.SubscriptionService
	interval   time.Duration
	olderThan  time.Duration
	batchSize  int
}

// NewReconcileWorker constructs a ReconcileWorker.
func NewReconcileWorker(subService *service.SubscriptionService, interval, olderThan time.Duration, batchSize int) *ReconcileWorker {
	return &ReconcileWorker{
		subService: subService,
		interval:   interval,
		olderThan:  olderThan,
		batchSize:  batchSize,
	}
}

// Start begins the reconcile loop and listens for context cancellation.
func (w *ReconcileWorker) Start(ctx context.Context) {
	log.Info().
		Dur("interval", w.interval).
		Dur("older_than", w.olderThan).
		Int("batch_size", w.batchSize).
		Msg("Starting payment reconcile worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Payment reconcile worker stopped")
			return
		}
	}
}

func (w *ReconcileWorker) run(ctx context.Context) {
	n, err := w.subService.ReconcileStalePending(ctx, w.olderThan, w.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reconcile stale pending transactions")
		return
	}
	if n > 0 {
		log.Info().Int("resolved", n).Msg("Reconciled stale pending transactions")
	}
}

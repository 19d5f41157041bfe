package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TijaraHub/tijara_api/internal/service"
)

// ExpiryWorker sweeps past-due active subscriptions on a fixed interval.
type ExpiryWorker struct {
	subService *service.SubscriptionService
	interval   time.Duration
}

// NewExpiryWorker constructs an ExpiryWorker.
func NewExpiryWorker(subService *service.SubscriptionService, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		subService: subService,
		interval:   interval,
	}
}

// Start begins the sweep loop and listens for context cancellation.
func (w *ExpiryWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting subscription expiry worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Subscription expiry worker stopped")
			return
		}
	}
}

func (w *ExpiryWorker) run(ctx context.Context) {
	n, err := w.subService.UpdateExpiredSubscriptions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to expire overdue subscriptions")
		return
	}
	if n > 0 {
		log.Info().Int("expired", n).Msg("Expired overdue subscriptions")
	}
}

package service

import (
	"context"
	"sync"
	"time"

	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/gateway"
)

// ResyncWorker periodically pushes locally committed fallback writes back to
// the primary store.
type ResyncWorker struct {
	gateway  gateway.SubscriptionGateway
	interval time.Duration
	logger   logger.ILogger

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewResyncWorker(gw gateway.SubscriptionGateway, interval time.Duration, log logger.ILogger) *ResyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ResyncWorker{
		gateway:  gw,
		interval: interval,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

func (w *ResyncWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopChan:
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

func (w *ResyncWorker) RunOnce(ctx context.Context) {
	if w.gateway.PendingCount() == 0 {
		return
	}
	n, err := w.gateway.Resync(ctx)
	if err != nil {
		w.logger.Warn("SUBSCRIPTION_GATEWAY", "Resync incomplete", map[string]interface{}{
			"synced":  n,
			"pending": w.gateway.PendingCount(),
			"error":   err.Error(),
		})
		return
	}
	if n > 0 {
		w.logger.Info("SUBSCRIPTION_GATEWAY", "Local writes resynced", map[string]interface{}{"synced": n})
	}
}

func (w *ResyncWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

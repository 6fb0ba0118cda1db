package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/pkg/calendar"
	"meal-subscription-be/pkg/events"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Notifier delivers acknowledgment prompts. Delivery is fire-and-forget:
// callers never wait for, or learn about, the outcome.
type Notifier interface {
	SendPrompt(ctx context.Context, customerId uuid.UUID, kind entity.PromptKind, subscriptionId uuid.UUID, date calendar.Day)
}

type PromptDispatcherConfig struct {
	Workers       int
	QueueSize     int
	RatePerSecond float64
	SendTimeout   time.Duration
}

// PromptDispatcher queues prompts and publishes them from a small worker
// pool, throttled so a large sweep cannot flood the event bus.
type PromptDispatcher struct {
	publisher events.Publisher
	clock     clock.Clock
	logger    logger.ILogger
	limiter   *rate.Limiter
	timeout   time.Duration

	queue     chan func(context.Context)
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewPromptDispatcher(publisher events.Publisher, clk clock.Clock, log logger.ILogger, cfg PromptDispatcherConfig) (*PromptDispatcher, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("prompt workers must be greater than 0, got %d", cfg.Workers)
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("prompt queue size must be greater than 0, got %d", cfg.QueueSize)
	}
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &PromptDispatcher{
		publisher: publisher,
		clock:     clk,
		logger:    log,
		limiter:   rate.NewLimiter(limit, burst),
		timeout:   cfg.SendTimeout,
		queue:     make(chan func(context.Context), cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	d.startWorkers(cfg.Workers)
	return d, nil
}

func (d *PromptDispatcher) startWorkers(n int) {
	d.wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer d.wg.Done()
			for task := range d.queue {
				if err := d.limiter.Wait(d.ctx); err != nil {
					return
				}
				task(d.ctx)
			}
		}()
	}
}

// SendPrompt enqueues the prompt. A full queue drops it with a warning; the
// sweep keeps the protocol moving regardless.
func (d *PromptDispatcher) SendPrompt(ctx context.Context, customerId uuid.UUID, kind entity.PromptKind, subscriptionId uuid.UUID, date calendar.Day) {
	event := events.New(events.DeliveryAckPrompt, d.clock.Now(), map[string]interface{}{
		"user_id":         customerId.String(),
		"subscription_id": subscriptionId.String(),
		"date":            date.String(),
		"prompt":          string(kind),
		"entity_type":     "subscription",
		"entity_id":       subscriptionId.String(),
	})

	task := func(ctx context.Context) {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		if err := d.publisher.Publish(sendCtx, event); err != nil {
			d.logger.Warn("PROMPT", "Failed to send acknowledgment prompt", map[string]interface{}{
				"subscription_id": subscriptionId.String(),
				"date":            date.String(),
				"prompt":          string(kind),
				"error":           err.Error(),
			})
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("PROMPT", "Dispatcher closed, prompt dropped", map[string]interface{}{"subscription_id": subscriptionId.String()})
		return
	}
	select {
	case d.queue <- task:
	default:
		d.logger.Warn("PROMPT", "Prompt queue full, prompt dropped", map[string]interface{}{
			"subscription_id": subscriptionId.String(),
			"date":            date.String(),
			"prompt":          string(kind),
		})
	}
}

// Close stops accepting prompts and waits for queued ones to go out.
func (d *PromptDispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		d.wg.Wait()
		d.cancel()
	})
}

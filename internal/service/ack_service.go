package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/contract"
	"meal-subscription-be/internal/repository/gateway"
	"meal-subscription-be/internal/repository/unitofwork"
	"meal-subscription-be/pkg/calendar"
	"meal-subscription-be/pkg/events"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const closeAckMaxTries = 3

type AckServiceConfig struct {
	SweepInterval  time.Duration
	PromptInterval time.Duration
	BatchSize      int
}

// AckSweepResult counts what one sweep did.
type AckSweepResult struct {
	Scanned       int
	Escalated     int
	AutoConfirmed int
	Closed        int
	Failed        int
}

type AckService interface {
	// Begin opens the protocol for a completed delivery and sends the first
	// prompt. Calling it again for the same day is a no-op.
	Begin(ctx context.Context, subscriptionId uuid.UUID, date calendar.Day, completedBy uuid.UUID) error
	Acknowledge(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day) (*dto.AcknowledgeResponse, error)
	Sweep(ctx context.Context) (AckSweepResult, error)
	Start(ctx context.Context)
	Stop()
	Stats(ctx context.Context) dto.SweeperStatsResponse
}

type ackService struct {
	uowFactory unitofwork.RepositoryFactory
	gateway    gateway.SubscriptionGateway
	mutator    *SubscriptionMutator
	notifier   Notifier
	publisher  events.Publisher
	clock      clock.Clock
	config     AckServiceConfig
	logger     logger.ILogger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	lastSweepAt   atomic.Int64
	sweeps        atomic.Int64
	escalated     atomic.Int64
	autoConfirmed atomic.Int64
	closed        atomic.Int64
	failed        atomic.Int64
}

func NewAckService(
	uowFactory unitofwork.RepositoryFactory,
	gw gateway.SubscriptionGateway,
	mutator *SubscriptionMutator,
	notifier Notifier,
	publisher events.Publisher,
	clk clock.Clock,
	cfg AckServiceConfig,
	log logger.ILogger,
) AckService {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.PromptInterval <= 0 {
		cfg.PromptInterval = 60 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &ackService{
		uowFactory: uowFactory,
		gateway:    gw,
		mutator:    mutator,
		notifier:   notifier,
		publisher:  publisher,
		clock:      clk,
		config:     cfg,
		logger:     log,
		stopChan:   make(chan struct{}),
	}
}

func (s *ackService) Begin(ctx context.Context, subscriptionId uuid.UUID, date calendar.Day, completedBy uuid.UUID) error {
	sub, err := s.gateway.Read(ctx, subscriptionId)
	if err != nil {
		return err
	}
	if !sub.IsAssignedTo(completedBy) {
		return entity.ErrNotAssignee
	}
	if sub.IsAcknowledged(date) {
		return nil
	}
	if !sub.IsDelivered(date) {
		return entity.ErrDeliveryNotCompleted
	}

	repo := s.uowFactory.NewUnitOfWork(ctx).DeliveryAckRepository()
	open, err := repo.FindOpen(ctx, subscriptionId, date)
	if err != nil {
		return err
	}
	if open != nil {
		return nil
	}

	ack := entity.NewDeliveryAck(subscriptionId, sub.CustomerId, date, s.clock.Now(), s.config.PromptInterval)
	created, err := repo.Create(ctx, ack)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	s.logger.Info("DELIVERY_ACK", "Acknowledgment protocol started", map[string]interface{}{
		"subscription_id": subscriptionId.String(),
		"date":            date.String(),
		"next_action_at":  ack.NextActionAt,
	})
	s.notifier.SendPrompt(ctx, sub.CustomerId, entity.PromptFirstAck, subscriptionId, date)
	return nil
}

// Acknowledge records an explicit acknowledgment and closes any open
// protocol for the day, which stops further prompts. Repeating it is safe.
func (s *ackService) Acknowledge(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day) (*dto.AcknowledgeResponse, error) {
	now := s.clock.Now()
	already := false
	updated, err := s.mutator.Mutate(ctx, subscriptionId, func(current *entity.Subscription) (*entity.SubscriptionPatch, error) {
		if !current.OwnedBy(customerId) {
			return nil, entity.ErrForbidden
		}
		patch, err := current.RecordAck(date, entity.AckModeExplicit, now)
		already = err == nil && patch == nil
		return patch, err
	})
	if err != nil {
		return nil, err
	}

	if err := s.closeOpenAck(ctx, subscriptionId, date, entity.AckModeExplicit, now); err != nil {
		// the sweep closes it later: it sees the subscription already acknowledged
		s.logger.Warn("DELIVERY_ACK", "Failed to close open acknowledgment", map[string]interface{}{
			"subscription_id": subscriptionId.String(),
			"date":            date.String(),
			"error":           err.Error(),
		})
	}

	record := updated.DeliveryAckByDate[date]
	if !already {
		publishEvent(ctx, s.publisher, s.logger, events.New(events.DeliveryAcknowledged, now, map[string]interface{}{
			"user_id":         customerId.String(),
			"subscription_id": subscriptionId.String(),
			"date":            date.String(),
			"mode":            string(record.Mode),
			"entity_type":     "subscription",
			"entity_id":       subscriptionId.String(),
		}))
	}

	return &dto.AcknowledgeResponse{
		SubscriptionId:      subscriptionId,
		Date:                date.String(),
		Mode:                string(record.Mode),
		AcknowledgedAt:      record.At,
		AlreadyAcknowledged: already,
	}, nil
}

// closeOpenAck moves the open ack of a day to done, re-reading when a
// concurrent sweep changed its state first.
func (s *ackService) closeOpenAck(ctx context.Context, subscriptionId uuid.UUID, date calendar.Day, mode entity.AckMode, now time.Time) error {
	repo := s.uowFactory.NewUnitOfWork(ctx).DeliveryAckRepository()
	for i := 0; i < closeAckMaxTries; i++ {
		ack, err := repo.FindOpen(ctx, subscriptionId, date)
		if err != nil {
			return err
		}
		if ack == nil {
			return nil
		}
		expected := ack.State
		if err := ack.Complete(mode, now); err != nil {
			return err
		}
		ok, err := repo.CompareAndSet(ctx, ack, expected)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return entity.ErrConcurrentUpdate
}

// Sweep advances every open ack whose next action is due. Records are
// selected by next_action_at <= now, so anything missed by an earlier sweep
// is picked up here. A record that fails is left for the next sweep.
func (s *ackService) Sweep(ctx context.Context) (AckSweepResult, error) {
	ctx, span := otel.Tracer("ack-service").Start(ctx, "Sweep")
	defer span.End()

	var res AckSweepResult
	now := s.clock.Now()
	repo := s.uowFactory.NewUnitOfWork(ctx).DeliveryAckRepository()

	due, err := repo.FindDue(ctx, now, s.config.BatchSize)
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	res.Scanned = len(due)

	for _, ack := range due {
		if ctx.Err() != nil {
			break
		}
		outcome, err := s.advance(ctx, ack, now)
		if err != nil {
			res.Failed++
			s.logger.Warn("DELIVERY_ACK", "Failed to advance acknowledgment, retrying next sweep", map[string]interface{}{
				"ack_id":          ack.Id.String(),
				"subscription_id": ack.SubscriptionId.String(),
				"date":            ack.Date.String(),
				"state":           string(ack.State),
				"error":           err.Error(),
			})
			continue
		}
		switch outcome {
		case sweepEscalated:
			res.Escalated++
		case sweepAutoConfirmed:
			res.AutoConfirmed++
		case sweepClosed:
			res.Closed++
		}
	}

	s.escalated.Add(int64(res.Escalated))
	s.autoConfirmed.Add(int64(res.AutoConfirmed))
	s.closed.Add(int64(res.Closed))
	s.failed.Add(int64(res.Failed))
	s.lastSweepAt.Store(now.UnixNano())
	s.sweeps.Add(1)

	span.SetAttributes(
		attribute.Int("sweep.scanned", res.Scanned),
		attribute.Int("sweep.escalated", res.Escalated),
		attribute.Int("sweep.auto_confirmed", res.AutoConfirmed),
		attribute.Int("sweep.failed", res.Failed),
	)
	if res.Scanned > 0 {
		s.logger.Info("DELIVERY_ACK", "Sweep finished", map[string]interface{}{
			"scanned":        res.Scanned,
			"escalated":      res.Escalated,
			"auto_confirmed": res.AutoConfirmed,
			"closed":         res.Closed,
			"failed":         res.Failed,
		})
	}
	return res, nil
}

type sweepOutcome int

const (
	sweepNone sweepOutcome = iota
	sweepEscalated
	sweepAutoConfirmed
	sweepClosed
)

func (s *ackService) advance(ctx context.Context, ack *entity.DeliveryAck, now time.Time) (sweepOutcome, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).DeliveryAckRepository()
	expected := ack.State

	sub, err := s.gateway.Read(ctx, ack.SubscriptionId)
	if errors.Is(err, entity.ErrSubscriptionNotFound) {
		if err := ack.Transition(entity.AckStateDone, now); err != nil {
			return sweepNone, err
		}
		ack.CompletedAt = &now
		return s.store(ctx, repo, ack, expected, sweepClosed)
	}
	if err != nil {
		return sweepNone, err
	}

	if record, ok := sub.DeliveryAckByDate[ack.Date]; ok {
		if err := ack.Complete(record.Mode, now); err != nil {
			return sweepNone, err
		}
		return s.store(ctx, repo, ack, expected, sweepClosed)
	}

	switch ack.State {
	case entity.AckStatePendingSecond:
		if err := ack.Escalate(now, s.config.PromptInterval); err != nil {
			return sweepNone, err
		}
		outcome, err := s.store(ctx, repo, ack, expected, sweepEscalated)
		if err != nil || outcome != sweepEscalated {
			return outcome, err
		}
		s.notifier.SendPrompt(ctx, ack.CustomerId, entity.PromptSecondAck, ack.SubscriptionId, ack.Date)
		return outcome, nil

	case entity.AckStatePendingAuto:
		updated, err := s.mutator.Mutate(ctx, ack.SubscriptionId, func(current *entity.Subscription) (*entity.SubscriptionPatch, error) {
			return current.RecordAck(ack.Date, entity.AckModeAuto, now)
		})
		if err != nil {
			return sweepNone, err
		}
		// an explicit acknowledgment may have landed in between; it stays
		mode := updated.DeliveryAckByDate[ack.Date].Mode
		if err := ack.Complete(mode, now); err != nil {
			return sweepNone, err
		}
		if mode == entity.AckModeAuto {
			return s.store(ctx, repo, ack, expected, sweepAutoConfirmed)
		}
		return s.store(ctx, repo, ack, expected, sweepClosed)
	}

	return sweepNone, nil
}

// store writes ack only if nobody moved it since it was read. Losing that
// race is not an error: the winner already did the work.
func (s *ackService) store(ctx context.Context, repo contract.DeliveryAckRepository, ack *entity.DeliveryAck, expected entity.AckState, outcome sweepOutcome) (sweepOutcome, error) {
	ok, err := repo.CompareAndSet(ctx, ack, expected)
	if err != nil {
		return sweepNone, err
	}
	if !ok {
		return sweepNone, nil
	}
	return outcome, nil
}

// Start runs an immediate sweep, then one per SweepInterval until Stop or
// ctx is done.
func (s *ackService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("DELIVERY_ACK", "Acknowledgment sweeper started", map[string]interface{}{
		"interval":   s.config.SweepInterval.String(),
		"batch_size": s.config.BatchSize,
	})
}

func (s *ackService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("DELIVERY_ACK", "Acknowledgment sweeper stopped", nil)
}

func (s *ackService) run(ctx context.Context) {
	defer s.wg.Done()

	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *ackService) sweepOnce(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("DELIVERY_ACK", "Sweep failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *ackService) Stats(ctx context.Context) dto.SweeperStatsResponse {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	stats := dto.SweeperStatsResponse{
		Running:       running,
		Sweeps:        s.sweeps.Load(),
		Escalated:     s.escalated.Load(),
		AutoConfirmed: s.autoConfirmed.Load(),
		Closed:        s.closed.Load(),
		Failed:        s.failed.Load(),
		OpenAcks:      -1,
		PendingSync:   s.gateway.PendingCount(),
	}
	if ns := s.lastSweepAt.Load(); ns > 0 {
		stats.LastSweepAt = time.Unix(0, ns).In(s.clock.Now().Location())
	}
	if open, err := s.uowFactory.NewUnitOfWork(ctx).DeliveryAckRepository().CountOpen(ctx); err == nil {
		stats.OpenAcks = open
	}
	return stats
}

package service

import (
	"context"
	"errors"
	"time"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/lock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/gateway"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

const (
	conflictMaxTries    = 3
	lockAcquireMaxTries = 5
)

// mutateFunc derives a patch from the freshly read subscription. A nil patch
// means there is nothing to write.
type mutateFunc func(sub *entity.Subscription) (*entity.SubscriptionPatch, error)

// SubscriptionMutator serializes read-modify-write cycles per subscription:
// a Redis lock around the cycle plus a version-guarded write that is retried
// on conflict.
type SubscriptionMutator struct {
	gateway gateway.SubscriptionGateway
	locker  lock.Locker
	lockTTL time.Duration
	logger  logger.ILogger

	retryInterval time.Duration
}

func NewSubscriptionMutator(gw gateway.SubscriptionGateway, locker lock.Locker, lockTTL time.Duration, log logger.ILogger) *SubscriptionMutator {
	if locker == nil {
		locker = lock.NopLocker{}
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &SubscriptionMutator{
		gateway:       gw,
		locker:        locker,
		lockTTL:       lockTTL,
		logger:        log,
		retryInterval: 25 * time.Millisecond,
	}
}

func lockKey(id uuid.UUID) string {
	return "subscription:" + id.String()
}

// WithLock runs fn while holding the subscription lock. Redis being down is
// not fatal; the version guard on every write still protects the row.
func (m *SubscriptionMutator) WithLock(ctx context.Context, id uuid.UUID, fn func() error) error {
	acquire := func() (lock.ReleaseFunc, error) {
		release, err := m.locker.Acquire(ctx, lockKey(id), m.lockTTL)
		if err != nil && !errors.Is(err, lock.ErrNotAcquired) {
			return nil, backoff.Permanent(err)
		}
		return release, err
	}

	release, err := backoff.Retry(ctx, acquire,
		backoff.WithBackOff(backoff.NewConstantBackOff(50*time.Millisecond)),
		backoff.WithMaxTries(lockAcquireMaxTries),
	)
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		return entity.ErrSubscriptionLocked
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warn("SUBSCRIPTION_LOCK", "Lock backend unavailable, continuing without lock", map[string]interface{}{
			"subscription_id": id.String(),
			"error":           err.Error(),
		})
		release = nil
	}

	if release != nil {
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				m.logger.Warn("SUBSCRIPTION_LOCK", "Failed to release lock", map[string]interface{}{
					"subscription_id": id.String(),
					"error":           relErr.Error(),
				})
			}
		}()
	}

	return fn()
}

// Apply reads, derives and writes without taking the lock. Version conflicts
// are retried with exponential backoff; everything else is returned as is.
func (m *SubscriptionMutator) Apply(ctx context.Context, id uuid.UUID, fn mutateFunc) (*entity.Subscription, error) {
	op := func() (*entity.Subscription, error) {
		sub, err := m.gateway.Read(ctx, id)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		patch, err := fn(sub)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if patch == nil || patch.IsEmpty() {
			return sub, nil
		}
		updated, err := m.gateway.Write(ctx, id, sub.Version, patch)
		if err != nil {
			if errors.Is(err, entity.ErrConcurrentUpdate) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return updated, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.retryInterval
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(conflictMaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.logger.Debug("SUBSCRIPTION_MUTATOR", "Version conflict, retrying", map[string]interface{}{
				"subscription_id": id.String(),
				"retry_in":        next.String(),
			})
		}),
	)
}

// Mutate is Apply under the subscription lock.
func (m *SubscriptionMutator) Mutate(ctx context.Context, id uuid.UUID, fn mutateFunc) (*entity.Subscription, error) {
	var out *entity.Subscription
	err := m.WithLock(ctx, id, func() error {
		var err error
		out, err = m.Apply(ctx, id, fn)
		return err
	})
	return out, err
}

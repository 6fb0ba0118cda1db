// Package gateway is the single persistence entry point for subscriptions.
// Writes go to the primary store; when it is unreachable they are applied to
// the local store and replayed later by Resync.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/contract"
	"meal-subscription-be/internal/repository/memory"
	"meal-subscription-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SubscriptionGateway interface {
	Create(ctx context.Context, sub *entity.Subscription) error
	Read(ctx context.Context, id uuid.UUID) (*entity.Subscription, error)
	// Write persists every field of patch or none of them. It fails with
	// entity.ErrConcurrentUpdate when expectedVersion is stale.
	Write(ctx context.Context, id uuid.UUID, expectedVersion int, patch *entity.SubscriptionPatch) (*entity.Subscription, error)
	// Resync pushes locally committed writes to the primary store.
	Resync(ctx context.Context) (int, error)
	PendingCount() int
}

type subscriptionGateway struct {
	primary contract.SubscriptionRepository
	local   *memory.SubscriptionStore
	clock   clock.Clock
	logger  logger.ILogger
}

func NewSubscriptionGateway(primary contract.SubscriptionRepository, local *memory.SubscriptionStore, clk clock.Clock, log logger.ILogger) SubscriptionGateway {
	return &subscriptionGateway{
		primary: primary,
		local:   local,
		clock:   clk,
		logger:  log,
	}
}

func (g *subscriptionGateway) Create(ctx context.Context, sub *entity.Subscription) error {
	if err := g.primary.Create(ctx, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	g.local.Save(sub, false)
	return nil
}

func (g *subscriptionGateway) Read(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	sub, err := g.primary.FindOne(ctx, specification.ByID{ID: id})
	if err == nil {
		if sub == nil {
			return nil, entity.ErrSubscriptionNotFound
		}
		// an unsynced local write is newer than what the primary holds
		if local, pending, ok := g.local.Get(id); ok && pending {
			return local, nil
		}
		g.local.Save(sub, false)
		return sub, nil
	}

	if !isInfrastructureError(err) {
		return nil, err
	}
	local, _, ok := g.local.Get(id)
	if !ok {
		return nil, fmt.Errorf("read subscription %s: %w", id, err)
	}
	g.logger.Warn("SUBSCRIPTION_GATEWAY", "Primary read failed, serving local copy", map[string]interface{}{
		"subscription_id": id.String(),
		"version":         local.Version,
		"error":           err.Error(),
	})
	return local, nil
}

func (g *subscriptionGateway) Write(ctx context.Context, id uuid.UUID, expectedVersion int, patch *entity.SubscriptionPatch) (*entity.Subscription, error) {
	if patch.IsEmpty() {
		return g.Read(ctx, id)
	}
	now := g.clock.Now()

	// pending local writes must reach the primary first or they would be
	// silently overwritten
	if _, pending, ok := g.local.Get(id); ok && pending {
		return g.writeLocal(id, expectedVersion, patch, fmt.Errorf("subscription %s has unsynced local writes", id))
	}

	version, err := g.primary.ApplyPatch(ctx, id, expectedVersion, patch, now)
	if err != nil {
		if !isInfrastructureError(err) {
			return nil, err
		}
		return g.writeLocal(id, expectedVersion, patch, err)
	}

	if local, _, ok := g.local.Get(id); ok && local.Version == expectedVersion {
		local.Apply(patch)
		local.Version = version
		local.UpdatedAt = now
		g.local.Save(local, false)
		return local, nil
	}

	sub, err := g.primary.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, fmt.Errorf("reload subscription %s: %w", id, err)
	}
	if sub == nil {
		return nil, entity.ErrSubscriptionNotFound
	}
	g.local.Save(sub, false)
	return sub, nil
}

func (g *subscriptionGateway) writeLocal(id uuid.UUID, expectedVersion int, patch *entity.SubscriptionPatch, cause error) (*entity.Subscription, error) {
	local, _, ok := g.local.Get(id)
	if !ok {
		return nil, fmt.Errorf("write subscription %s: %w", id, cause)
	}
	if local.Version != expectedVersion {
		return nil, entity.ErrConcurrentUpdate
	}

	local.Apply(patch)
	local.Version = expectedVersion + 1
	local.UpdatedAt = g.clock.Now()
	g.local.Save(local, true)

	g.logger.Warn("SUBSCRIPTION_GATEWAY", "Primary write failed, committed to local store pending sync", map[string]interface{}{
		"subscription_id": id.String(),
		"version":         local.Version,
		"error":           cause.Error(),
	})
	return local, nil
}

func (g *subscriptionGateway) Resync(ctx context.Context) (int, error) {
	synced := 0
	var errs []error
	for _, sub := range g.local.Pending() {
		if err := g.primary.Overwrite(ctx, sub); err != nil {
			errs = append(errs, fmt.Errorf("resync subscription %s: %w", sub.Id, err))
			continue
		}
		if !g.local.DeleteIfVersion(sub.Id, sub.Version) {
			g.logger.Info("SUBSCRIPTION_GATEWAY", "Local copy changed during sync, kept pending", map[string]interface{}{
				"subscription_id": sub.Id.String(),
				"synced_version":  sub.Version,
			})
			continue
		}
		synced++
		g.logger.Info("SUBSCRIPTION_GATEWAY", "Local write synced to primary", map[string]interface{}{
			"subscription_id": sub.Id.String(),
		})
	}
	return synced, errors.Join(errs...)
}

func (g *subscriptionGateway) PendingCount() int {
	return len(g.local.Pending())
}

// isInfrastructureError separates "store unreachable" from domain outcomes and
// caller cancellation, which must never trigger the local fallback.
func isInfrastructureError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, entity.ErrSubscriptionNotFound),
		errors.Is(err, entity.ErrConcurrentUpdate),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

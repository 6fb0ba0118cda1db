package service

import (
	"context"
	"fmt"
	"strings"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/mapper"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/gateway"
	"meal-subscription-be/internal/repository/unitofwork"
	"meal-subscription-be/pkg/calendar"
	"meal-subscription-be/pkg/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type AddOnService interface {
	PurchaseForDate(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day, addOnIds []string) (*dto.AddOnReceiptResponse, error)
	SkipAddOnsForDate(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day) (*dto.CarryForwardResponse, error)
}

type addOnService struct {
	uowFactory unitofwork.RepositoryFactory
	gateway    gateway.SubscriptionGateway
	mutator    *SubscriptionMutator
	cutoff     CutoffService
	wallet     WalletService
	publisher  events.Publisher
	clock      clock.Clock
	mapper     *mapper.SubscriptionMapper
	logger     logger.ILogger
}

func NewAddOnService(
	uowFactory unitofwork.RepositoryFactory,
	gw gateway.SubscriptionGateway,
	mutator *SubscriptionMutator,
	cutoffService CutoffService,
	walletService WalletService,
	publisher events.Publisher,
	clk clock.Clock,
	log logger.ILogger,
) AddOnService {
	return &addOnService{
		uowFactory: uowFactory,
		gateway:    gw,
		mutator:    mutator,
		cutoff:     cutoffService,
		wallet:     walletService,
		publisher:  publisher,
		clock:      clk,
		mapper:     mapper.NewSubscriptionMapper(),
		logger:     log,
	}
}

// PurchaseForDate attaches add-ons to a delivery day and charges the wallet
// for the ids that were not attached yet. A failed charge undoes the
// attachment before returning entity.ErrPaymentDeclined.
func (s *addOnService) PurchaseForDate(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day, addOnIds []string) (*dto.AddOnReceiptResponse, error) {
	ctx, span := otel.Tracer("addon-service").Start(ctx, "PurchaseForDate")
	defer span.End()
	span.SetAttributes(
		attribute.String("subscription.id", subscriptionId.String()),
		attribute.String("addon.date", date.String()),
		attribute.StringSlice("addon.ids", addOnIds),
	)

	ids := dedupe(addOnIds)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty selection", entity.ErrUnknownAddOn)
	}

	sub, err := s.gateway.Read(ctx, subscriptionId)
	if err != nil {
		return nil, err
	}
	if err := checkCustomerAccess(sub, customerId); err != nil {
		return nil, err
	}
	if !sub.IsServiceable(date) {
		return nil, fmt.Errorf("%w: %s", entity.ErrDateNotServiceable, date)
	}
	if err := s.cutoff.Check(ctx, CutoffKindAddOn, date); err != nil {
		return nil, err
	}

	prices, err := s.resolvePrices(ctx, ids)
	if err != nil {
		return nil, err
	}

	receipt := &dto.AddOnReceiptResponse{
		SubscriptionId: subscriptionId,
		Date:           date.String(),
		ChargedIds:     []string{},
		Amount:         decimal.Zero.StringFixed(2),
	}

	err = s.mutator.WithLock(ctx, subscriptionId, func() error {
		var added []string
		updated, err := s.mutator.Apply(ctx, subscriptionId, func(current *entity.Subscription) (*entity.SubscriptionPatch, error) {
			if err := checkCustomerAccess(current, customerId); err != nil {
				return nil, err
			}
			patch, newIds, err := current.AttachAddOns(date, ids)
			added = newIds
			return patch, err
		})
		if err != nil {
			return err
		}
		receipt.AddOnIds = append([]string(nil), updated.AdditionalAddOns[date]...)
		if len(added) == 0 {
			return nil
		}

		amount := decimal.Zero
		for _, id := range added {
			amount = amount.Add(prices[id])
		}
		receipt.ChargedIds = added
		receipt.Amount = amount.StringFixed(2)
		if !amount.IsPositive() {
			return nil
		}

		ref := entity.AddOnPurchaseReference(subscriptionId, date)
		desc := fmt.Sprintf("Add-ons for %s: %s", date, strings.Join(added, ", "))
		if _, debitErr := s.wallet.Debit(ctx, customerId, amount, desc, ref); debitErr != nil {
			declined := fmt.Errorf("%w: %w", entity.ErrPaymentDeclined, debitErr)
			if rollbackErr := s.rollbackAttachment(ctx, subscriptionId, date, added); rollbackErr != nil {
				return fmt.Errorf("%w: %w: %w", entity.ErrAddOnRollbackFailed, declined, rollbackErr)
			}
			return declined
		}
		receipt.ReferenceId = ref
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(receipt.ChargedIds) > 0 {
		s.logger.Info("ADDON", "Add-ons purchased", map[string]interface{}{
			"subscription_id": subscriptionId.String(),
			"date":            date.String(),
			"charged_ids":     receipt.ChargedIds,
			"amount":          receipt.Amount,
		})
		publishEvent(ctx, s.publisher, s.logger, events.New(events.AddOnsPurchased, s.clock.Now(), map[string]interface{}{
			"user_id":         customerId.String(),
			"subscription_id": subscriptionId.String(),
			"date":            date.String(),
			"add_on_ids":      strings.Join(receipt.ChargedIds, ", "),
			"amount":          receipt.Amount,
			"entity_type":     "subscription",
			"entity_id":       subscriptionId.String(),
		}))
	}

	return receipt, nil
}

// rollbackAttachment removes only the ids this purchase added, leaving
// anything attached in between untouched.
func (s *addOnService) rollbackAttachment(ctx context.Context, subscriptionId uuid.UUID, date calendar.Day, added []string) error {
	remove := make(map[string]struct{}, len(added))
	for _, id := range added {
		remove[id] = struct{}{}
	}

	_, err := s.mutator.Apply(context.WithoutCancel(ctx), subscriptionId, func(current *entity.Subscription) (*entity.SubscriptionPatch, error) {
		kept := make([]string, 0, len(current.AdditionalAddOns[date]))
		for _, id := range current.AdditionalAddOns[date] {
			if _, drop := remove[id]; !drop {
				kept = append(kept, id)
			}
		}
		return current.RestoreAddOns(date, kept), nil
	})
	if err != nil {
		s.logger.Error("ADDON", "Failed to roll back add-on attachment after declined payment", map[string]interface{}{
			"subscription_id": subscriptionId.String(),
			"date":            date.String(),
			"add_on_ids":      added,
			"error":           err.Error(),
		})
		return err
	}
	return nil
}

func (s *addOnService) resolvePrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	catalog, err := uow.AddOnRepository().FindActiveByIds(ctx, ids)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(catalog))
	for _, a := range catalog {
		prices[a.Id] = a.Price
	}

	var missing []string
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownAddOn, strings.Join(missing, ", "))
	}
	return prices, nil
}

// SkipAddOnsForDate moves the add-ons of date to the next delivery day.
// No add-ons on date is a no-op.
func (s *addOnService) SkipAddOnsForDate(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day) (*dto.CarryForwardResponse, error) {
	sub, err := s.gateway.Read(ctx, subscriptionId)
	if err != nil {
		return nil, err
	}
	if err := checkCustomerAccess(sub, customerId); err != nil {
		return nil, err
	}
	if len(sub.AdditionalAddOns[date]) == 0 {
		return &dto.CarryForwardResponse{FromDate: date.String(), Subscription: s.mapper.ToResponse(sub)}, nil
	}
	if err := s.cutoff.Check(ctx, CutoffKindAddOn, date); err != nil {
		return nil, err
	}

	var next calendar.Day
	moved := false
	updated, err := s.mutator.Mutate(ctx, subscriptionId, func(current *entity.Subscription) (*entity.SubscriptionPatch, error) {
		if err := checkCustomerAccess(current, customerId); err != nil {
			return nil, err
		}
		patch := current.CarryForwardAddOns(date)
		moved = patch != nil
		if moved {
			next = calendar.NextDeliveryDay(date, current.Window())
		}
		return patch, nil
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.CarryForwardResponse{
		Moved:        moved,
		FromDate:     date.String(),
		Subscription: s.mapper.ToResponse(updated),
	}
	if !moved {
		return resp, nil
	}
	resp.ToDate = next.String()

	publishEvent(ctx, s.publisher, s.logger, events.New(events.AddOnsCarriedForward, s.clock.Now(), map[string]interface{}{
		"user_id":         customerId.String(),
		"subscription_id": subscriptionId.String(),
		"from_date":       date.String(),
		"to_date":         next.String(),
		"entity_type":     "subscription",
		"entity_id":       subscriptionId.String(),
	}))
	return resp, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

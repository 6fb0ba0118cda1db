package service

import (
	"context"
	"fmt"
	"time"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/mapper"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/gateway"
	"meal-subscription-be/internal/repository/specification"
	"meal-subscription-be/internal/repository/unitofwork"
	"meal-subscription-be/pkg/calendar"

	"github.com/google/uuid"
)

type SubscriptionService interface {
	Create(ctx context.Context, customerId uuid.UUID, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	Get(ctx context.Context, userId, subscriptionId uuid.UUID) (*dto.SubscriptionResponse, error)
	ListForCustomer(ctx context.Context, customerId uuid.UUID) ([]dto.SubscriptionResponse, error)
	ListAssigned(ctx context.Context, deliveryId uuid.UUID) ([]dto.SubscriptionResponse, error)
	// Calendar classifies [from, to]. Zero bounds default to the
	// subscription's window.
	Calendar(ctx context.Context, userId, subscriptionId uuid.UUID, from, to calendar.Day) (*dto.CalendarResponse, error)
	CutoffStatus(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day) (*dto.CutoffStatusResponse, error)
}

type subscriptionService struct {
	uowFactory   unitofwork.RepositoryFactory
	gateway      gateway.SubscriptionGateway
	cutoff       CutoffService
	clock        clock.Clock
	location     *time.Location
	maxRangeDays int
	mapper       *mapper.SubscriptionMapper
	logger       logger.ILogger
}

func NewSubscriptionService(
	uowFactory unitofwork.RepositoryFactory,
	gw gateway.SubscriptionGateway,
	cutoffService CutoffService,
	clk clock.Clock,
	loc *time.Location,
	maxRangeDays int,
	log logger.ILogger,
) SubscriptionService {
	if loc == nil {
		loc = time.Local
	}
	if maxRangeDays <= 0 {
		maxRangeDays = 62
	}
	return &subscriptionService{
		uowFactory:   uowFactory,
		gateway:      gw,
		cutoff:       cutoffService,
		clock:        clk,
		location:     loc,
		maxRangeDays: maxRangeDays,
		mapper:       mapper.NewSubscriptionMapper(),
		logger:       log,
	}
}

func (s *subscriptionService) Create(ctx context.Context, customerId uuid.UUID, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	start, err := calendar.ParseDay(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date", entity.ErrInvalidDateRange)
	}
	exclusion, err := calendar.ParseExclusion(req.WeekendExclusion)
	if err != nil {
		return nil, err
	}

	sub := entity.NewSubscription(customerId, req.PlanId, req.MealId, start, req.TotalDeliveries, exclusion)
	sub.AssignedDeliveryId = req.AssignedDeliveryId
	now := s.clock.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if err := s.gateway.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("SUBSCRIPTION", "Subscription created", map[string]interface{}{
		"subscription_id": sub.Id.String(),
		"customer_id":     customerId.String(),
		"start_date":      sub.StartDate.String(),
		"end_date":        sub.EndDate.String(),
	})

	resp := s.mapper.ToResponse(sub)
	return &resp, nil
}

func (s *subscriptionService) Get(ctx context.Context, userId, subscriptionId uuid.UUID) (*dto.SubscriptionResponse, error) {
	sub, err := s.readVisible(ctx, userId, subscriptionId)
	if err != nil {
		return nil, err
	}
	resp := s.mapper.ToResponse(sub)
	return &resp, nil
}

func (s *subscriptionService) ListForCustomer(ctx context.Context, customerId uuid.UUID) ([]dto.SubscriptionResponse, error) {
	return s.list(ctx, specification.ByCustomerID{CustomerID: customerId})
}

func (s *subscriptionService) ListAssigned(ctx context.Context, deliveryId uuid.UUID) ([]dto.SubscriptionResponse, error) {
	return s.list(ctx,
		specification.ByAssignedDelivery{DeliveryID: deliveryId},
		specification.ByStatus{Status: string(entity.SubscriptionStatusActive)},
	)
}

func (s *subscriptionService) list(ctx context.Context, specs ...specification.Specification) ([]dto.SubscriptionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs = append(specs, specification.OrderBy{Field: "start_date", Desc: true})
	subs, err := uow.SubscriptionRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, s.mapper.ToResponse(sub))
	}
	return out, nil
}

func (s *subscriptionService) Calendar(ctx context.Context, userId, subscriptionId uuid.UUID, from, to calendar.Day) (*dto.CalendarResponse, error) {
	sub, err := s.readVisible(ctx, userId, subscriptionId)
	if err != nil {
		return nil, err
	}
	if from.IsZero() {
		from = sub.StartDate
	}
	if to.IsZero() {
		to = sub.EndDate
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: from %s is after to %s", entity.ErrInvalidDateRange, from, to)
	}
	if calendar.DaysBetween(from, to)+1 > s.maxRangeDays {
		return nil, fmt.Errorf("%w: at most %d days per request", entity.ErrInvalidDateRange, s.maxRangeDays)
	}

	today := calendar.DayOf(s.clock.Now().In(s.location))
	days := sub.Schedule().Range(from, to, today, sub.IsDelivered)

	return &dto.CalendarResponse{
		SubscriptionId: sub.Id,
		From:           from.String(),
		To:             to.String(),
		Days:           days,
	}, nil
}

func (s *subscriptionService) CutoffStatus(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day) (*dto.CutoffStatusResponse, error) {
	sub, err := s.gateway.Read(ctx, subscriptionId)
	if err != nil {
		return nil, err
	}
	if !sub.OwnedBy(customerId) {
		return nil, entity.ErrForbidden
	}
	return s.cutoff.Status(ctx, date), nil
}

// readVisible returns the subscription if userId is its customer or its
// assigned delivery agent.
func (s *subscriptionService) readVisible(ctx context.Context, userId, subscriptionId uuid.UUID) (*entity.Subscription, error) {
	sub, err := s.gateway.Read(ctx, subscriptionId)
	if err != nil {
		return nil, err
	}
	if !sub.OwnedBy(userId) && !sub.IsAssignedTo(userId) {
		return nil, entity.ErrForbidden
	}
	return sub, nil
}

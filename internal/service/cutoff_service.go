package service

import (
	"context"
	"fmt"
	"time"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/unitofwork"
	"meal-subscription-be/pkg/calendar"
	"meal-subscription-be/pkg/cutoff"
)

type CutoffKind string

const (
	CutoffKindSkip  CutoffKind = "skip"
	CutoffKindAddOn CutoffKind = "addon"
)

type CutoffService interface {
	// Evaluate never fails; an unusable configuration shows up in Result.Err.
	Evaluate(ctx context.Context, kind CutoffKind, date calendar.Day) cutoff.Result
	// Check returns entity.ErrCutoffUnavailable or entity.ErrCutoffPassed.
	Check(ctx context.Context, kind CutoffKind, date calendar.Day) error
	Status(ctx context.Context, date calendar.Day) *dto.CutoffStatusResponse
}

type cutoffService struct {
	uowFactory unitofwork.RepositoryFactory
	clock      clock.Clock
	location   *time.Location
	logger     logger.ILogger
}

func NewCutoffService(uowFactory unitofwork.RepositoryFactory, clk clock.Clock, loc *time.Location, log logger.ILogger) CutoffService {
	if loc == nil {
		loc = time.Local
	}
	return &cutoffService{
		uowFactory: uowFactory,
		clock:      clk,
		location:   loc,
		logger:     log,
	}
}

// Settings are read on every call so operator edits apply immediately.
func (s *cutoffService) Evaluate(ctx context.Context, kind CutoffKind, date calendar.Day) cutoff.Result {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	settings, err := uow.AppSettingsRepository().Get(ctx)
	if err != nil {
		return cutoff.Result{Reason: "cut-off configuration could not be loaded", Err: err}
	}

	raw := ""
	if settings != nil {
		switch kind {
		case CutoffKindSkip:
			raw = settings.SkipCutoffTime
		case CutoffKindAddOn:
			raw = settings.AddOnCutoffTime
		}
	}

	return cutoff.Evaluate(s.clock.Now().In(s.location), date, raw)
}

func (s *cutoffService) Check(ctx context.Context, kind CutoffKind, date calendar.Day) error {
	res := s.Evaluate(ctx, kind, date)
	if res.Err != nil {
		s.logger.Error("CUTOFF", "Cut-off configuration unusable", map[string]interface{}{
			"kind":  string(kind),
			"date":  date.String(),
			"error": res.Err.Error(),
		})
		return fmt.Errorf("%w: %s", entity.ErrCutoffUnavailable, kind)
	}
	if !res.Allowed {
		return fmt.Errorf("%w: %s", entity.ErrCutoffPassed, res.Reason)
	}
	return nil
}

func (s *cutoffService) Status(ctx context.Context, date calendar.Day) *dto.CutoffStatusResponse {
	return &dto.CutoffStatusResponse{
		Date:  date.String(),
		Skip:  toCutoffResult(s.Evaluate(ctx, CutoffKindSkip, date)),
		AddOn: toCutoffResult(s.Evaluate(ctx, CutoffKindAddOn, date)),
	}
}

func toCutoffResult(r cutoff.Result) dto.CutoffResult {
	reason := r.Reason
	if r.Err != nil {
		reason = "feature temporarily unavailable"
	}
	return dto.CutoffResult{
		Allowed:          r.Allowed,
		Reason:           reason,
		Cutoff:           r.Cutoff,
		MinutesRemaining: r.MinutesRemaining,
	}
}

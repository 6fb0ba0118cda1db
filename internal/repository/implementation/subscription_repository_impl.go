package implementation

import (
	"context"
	"errors"
	"time"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/mapper"
	"meal-subscription-be/internal/model"
	"meal-subscription-be/internal/repository/contract"
	"meal-subscription-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewSubscriptionRepository(db *gorm.DB) contract.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *SubscriptionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, subscription *entity.Subscription) error {
	m := r.mapper.ToModel(subscription)
	if m.Version == 0 {
		m.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*subscription = *r.mapper.ToEntity(m)
	return nil
}

func (r *SubscriptionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error) {
	var m model.Subscription
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SubscriptionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error) {
	var models []*model.Subscription
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Subscription, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *SubscriptionRepositoryImpl) ApplyPatch(ctx context.Context, id uuid.UUID, expectedVersion int, patch *entity.SubscriptionPatch, now time.Time) (int, error) {
	cols := r.mapper.PatchToColumns(patch)
	cols["version"] = gorm.Expr("version + 1")
	cols["updated_at"] = now

	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(cols)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 1 {
		return expectedVersion + 1, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, entity.ErrSubscriptionNotFound
	}
	return 0, entity.ErrConcurrentUpdate
}

func (r *SubscriptionRepositoryImpl) Overwrite(ctx context.Context, subscription *entity.Subscription) error {
	m := r.mapper.ToModel(subscription)
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", subscription.Id).
		Updates(map[string]interface{}{
			"skipped_dates":           m.SkippedDates,
			"additional_add_ons":      m.AdditionalAddOns,
			"end_date":                m.EndDate,
			"remaining_deliveries":    m.RemainingDeliveries,
			"status":                  m.Status,
			"delivery_status_by_date": m.DeliveryStatusByDate,
			"delivery_day_logs":       m.DeliveryDayLogs,
			"delivery_ack_by_date":    m.DeliveryAckByDate,
			"version":                 gorm.Expr("GREATEST(version, ?) + 1", subscription.Version),
			"updated_at":              time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entity.ErrSubscriptionNotFound
	}
	return nil
}

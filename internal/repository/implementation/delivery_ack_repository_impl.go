package implementation

import (
	"context"
	"errors"
	"time"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/mapper"
	"meal-subscription-be/internal/model"
	"meal-subscription-be/internal/repository/contract"
	"meal-subscription-be/pkg/calendar"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliveryAckRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DeliveryAckMapper
}

func NewDeliveryAckRepository(db *gorm.DB) contract.DeliveryAckRepository {
	return &DeliveryAckRepositoryImpl{
		db:     db,
		mapper: mapper.NewDeliveryAckMapper(),
	}
}

func (r *DeliveryAckRepositoryImpl) Create(ctx context.Context, ack *entity.DeliveryAck) (bool, error) {
	m := r.mapper.ToModel(ack)
	// the partial unique index on open acks turns a duplicate Begin into a no-op
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *DeliveryAckRepositoryImpl) FindOpen(ctx context.Context, subscriptionId uuid.UUID, date calendar.Day) (*entity.DeliveryAck, error) {
	var m model.DeliveryAck
	err := r.db.WithContext(ctx).
		Where("subscription_id = ? AND date = ? AND state <> ?", subscriptionId, mapper.DateFromDay(date), string(entity.AckStateDone)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DeliveryAckRepositoryImpl) FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.DeliveryAck, error) {
	var models []*model.DeliveryAck
	err := r.db.WithContext(ctx).
		Where("next_action_at <= ? AND state <> ?", now, string(entity.AckStateDone)).
		Order("next_action_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	entities := make([]*entity.DeliveryAck, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *DeliveryAckRepositoryImpl) CompareAndSet(ctx context.Context, ack *entity.DeliveryAck, expected entity.AckState) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.DeliveryAck{}).
		Where("id = ? AND state = ?", ack.Id, string(expected)).
		Updates(map[string]interface{}{
			"state":          string(ack.State),
			"mode":           string(ack.Mode),
			"next_action_at": ack.NextActionAt,
			"completed_at":   ack.CompletedAt,
			"prompts_sent":   ack.PromptsSent,
			"updated_at":     ack.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *DeliveryAckRepositoryImpl) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DeliveryAck{}).
		Where("state <> ?", string(entity.AckStateDone)).
		Count(&count).Error
	return count, err
}

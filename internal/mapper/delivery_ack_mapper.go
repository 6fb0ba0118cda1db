package mapper

import (
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/model"
)

type DeliveryAckMapper struct{}

func NewDeliveryAckMapper() *DeliveryAckMapper {
	return &DeliveryAckMapper{}
}

func (m *DeliveryAckMapper) ToEntity(a *model.DeliveryAck) *entity.DeliveryAck {
	if a == nil {
		return nil
	}
	return &entity.DeliveryAck{
		Id:             a.Id,
		SubscriptionId: a.SubscriptionId,
		CustomerId:     a.CustomerId,
		Date:           DayFromDate(a.Date),
		State:          entity.AckState(a.State),
		Mode:           entity.AckMode(a.Mode),
		NextActionAt:   a.NextActionAt,
		CompletedAt:    a.CompletedAt,
		PromptsSent:    a.PromptsSent,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (m *DeliveryAckMapper) ToModel(a *entity.DeliveryAck) *model.DeliveryAck {
	if a == nil {
		return nil
	}
	return &model.DeliveryAck{
		Id:             a.Id,
		SubscriptionId: a.SubscriptionId,
		CustomerId:     a.CustomerId,
		Date:           DateFromDay(a.Date),
		State:          string(a.State),
		Mode:           string(a.Mode),
		NextActionAt:   a.NextActionAt,
		CompletedAt:    a.CompletedAt,
		PromptsSent:    a.PromptsSent,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

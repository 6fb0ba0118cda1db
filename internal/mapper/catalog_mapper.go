package mapper

import (
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/model"
)

// CatalogMapper covers the read-only reference tables: add-ons and settings.
type CatalogMapper struct{}

func NewCatalogMapper() *CatalogMapper {
	return &CatalogMapper{}
}

func (m *CatalogMapper) AddOnToEntity(a *model.AddOn) *entity.AddOn {
	if a == nil {
		return nil
	}
	return &entity.AddOn{
		Id:        a.Id,
		Name:      a.Name,
		Price:     a.Price,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (m *CatalogMapper) AppSettingsToEntity(s *model.AppSettings) *entity.AppSettings {
	if s == nil {
		return nil
	}
	return &entity.AppSettings{
		SkipCutoffTime:  s.SkipCutoffTime,
		AddOnCutoffTime: s.AddOnCutoffTime,
		OrderCutoffTime: s.OrderCutoffTime,
		UpdatedAt:       s.UpdatedAt,
	}
}

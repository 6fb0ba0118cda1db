package implementation

import (
	"context"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/mapper"
	"meal-subscription-be/internal/model"
	"meal-subscription-be/internal/repository/contract"

	"gorm.io/gorm"
)

type AddOnRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CatalogMapper
}

func NewAddOnRepository(db *gorm.DB) contract.AddOnRepository {
	return &AddOnRepositoryImpl{
		db:     db,
		mapper: mapper.NewCatalogMapper(),
	}
}

func (r *AddOnRepositoryImpl) FindActiveByIds(ctx context.Context, ids []string) ([]*entity.AddOn, error) {
	if len(ids) == 0 {
		return []*entity.AddOn{}, nil
	}
	var models []*model.AddOn
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	entities := make([]*entity.AddOn, len(models))
	for i, m := range models {
		entities[i] = r.mapper.AddOnToEntity(m)
	}
	return entities, nil
}

package implementation

import (
	"context"
	"errors"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/mapper"
	"meal-subscription-be/internal/model"
	"meal-subscription-be/internal/repository/contract"

	"gorm.io/gorm"
)

type AppSettingsRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CatalogMapper
}

func NewAppSettingsRepository(db *gorm.DB) contract.AppSettingsRepository {
	return &AppSettingsRepositoryImpl{
		db:     db,
		mapper: mapper.NewCatalogMapper(),
	}
}

func (r *AppSettingsRepositoryImpl) Get(ctx context.Context) (*entity.AppSettings, error) {
	var m model.AppSettings
	if err := r.db.WithContext(ctx).Order("id ASC").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.AppSettingsToEntity(&m), nil
}

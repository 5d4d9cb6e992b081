package repository

import (
	"gorm.io/gorm"

	"taskmint/internal/models"
)

// AssetRepository reads asset metadata (GPS coordinates, multiplication
// factors).
type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) FindByID(id uint) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.First(&asset, id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// FindByIDs returns the requested assets keyed by id. Missing ids are simply
// absent from the map.
func (r *AssetRepository) FindByIDs(ids []uint) (map[uint]models.Asset, error) {
	out := make(map[uint]models.Asset, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var assets []models.Asset
	if err := r.db.Where("id IN ?", ids).Find(&assets).Error; err != nil {
		return nil, err
	}
	for _, a := range assets {
		out[a.ID] = a
	}
	return out, nil
}

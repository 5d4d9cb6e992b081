package repository

import (
	"time"

	"gorm.io/gorm"

	"taskmint/internal/models"
)

// DefinitionRepository handles job definition database operations. The engine
// reads definitions and only ever writes the generation watermark back.
type DefinitionRepository struct {
	db *gorm.DB
}

func NewDefinitionRepository(db *gorm.DB) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

func (r *DefinitionRepository) DB() *gorm.DB {
	return r.db
}

// FindDue returns enabled, non-expired, top-level definitions, optionally
// scoped to an explicit id list (manual re-run).
func (r *DefinitionRepository) FindDue(ids []uint, now time.Time) ([]models.JobDefinition, error) {
	var defs []models.JobDefinition
	q := r.db.Where("enabled = ? AND parent_id = 0 AND upto_date >= ?", true, now)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	err := q.Order("id ASC").Find(&defs).Error
	return defs, err
}

// FindChildren returns a tour definition's checkpoints in authored order.
func (r *DefinitionRepository) FindChildren(parentID uint) ([]models.JobDefinition, error) {
	var defs []models.JobDefinition
	err := r.db.Where("parent_id = ? AND enabled = ?", parentID, true).
		Order("seqno ASC, id ASC").
		Find(&defs).Error
	return defs, err
}

// ChildIDs returns the ids of a definition's checkpoints, enabled or not.
// Used by the reclaimer, which must also purge instances of checkpoints that
// were disabled by the edit.
func (r *DefinitionRepository) ChildIDs(parentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.JobDefinition{}).
		Where("parent_id = ?", parentID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *DefinitionRepository) FindByID(id uint) (*models.JobDefinition, error) {
	var def models.JobDefinition
	if err := r.db.First(&def, id).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

// FindAll returns definitions with pagination, for the operator API.
func (r *DefinitionRepository) FindAll(limit, page int) ([]models.JobDefinition, int64, error) {
	var defs []models.JobDefinition
	var total int64

	db := r.db.Model(&models.JobDefinition{}).Where("parent_id = 0")
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("id ASC").Find(&defs).Error; err != nil {
		return nil, 0, err
	}
	return defs, total, nil
}

// UpdateWatermark advances last_generated_at inside the caller's transaction.
func (r *DefinitionRepository) UpdateWatermark(tx *gorm.DB, id uint, t time.Time) error {
	return tx.Model(&models.JobDefinition{}).
		Where("id = ?", id).
		Update("last_generated_at", t).Error
}

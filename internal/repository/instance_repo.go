package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"taskmint/internal/models"
)

// InstanceRepository handles task instance and detail database operations.
type InstanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// GetOrCreate materializes an instance by its occurrence key
// (definition, job type, planned start, parent). An existing row is returned
// untouched; created reports whether a new row was written.
func (r *InstanceRepository) GetOrCreate(tx *gorm.DB, inst *models.TaskInstance) (bool, error) {
	var existing models.TaskInstance
	err := tx.Where(
		"definition_id = ? AND job_type = ? AND planned_start = ? AND parent_instance_id = ?",
		inst.DefinitionID, inst.JobType, inst.PlannedStart, inst.ParentInstanceID,
	).First(&existing).Error
	if err == nil {
		*inst = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := tx.Create(inst).Error; err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceDetails deletes an instance's detail rows and bulk-inserts the new
// set. Details are never partially patched.
func (r *InstanceRepository) ReplaceDetails(tx *gorm.DB, instanceID uint, details []models.TaskInstanceDetail) error {
	if err := tx.Where("instance_id = ?", instanceID).Delete(&models.TaskInstanceDetail{}).Error; err != nil {
		return err
	}
	if len(details) == 0 {
		return nil
	}
	for i := range details {
		details[i].ID = 0
		details[i].InstanceID = instanceID
	}
	return tx.Create(&details).Error
}

// UpdateExpiry writes back a parent instance's planned expiry after tour
// expansion.
func (r *InstanceRepository) UpdateExpiry(tx *gorm.DB, instanceID uint, expiry time.Time) error {
	return tx.Model(&models.TaskInstance{}).
		Where("id = ?", instanceID).
		Update("planned_expiry", expiry).Error
}

// DeleteFutureAssigned purges not-yet-started future instances of the given
// definitions, cascading their children and detail rows. Historical and
// in-progress instances are never touched.
func (r *InstanceRepository) DeleteFutureAssigned(definitionIDs []uint, now time.Time) (int64, error) {
	if len(definitionIDs) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.TaskInstance{}).
			Where("definition_id IN ? AND status = ? AND planned_start > ?", definitionIDs, models.StatusAssigned, now).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		// Children of a purged parent go with it regardless of their own
		// planned start.
		var childIDs []uint
		if err := tx.Model(&models.TaskInstance{}).
			Where("parent_instance_id IN ?", ids).
			Pluck("id", &childIDs).Error; err != nil {
			return err
		}
		ids = append(ids, childIDs...)

		if err := tx.Where("instance_id IN ?", ids).Delete(&models.TaskInstanceDetail{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.TaskInstance{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

// CountByDefinition counts instance rows for one definition.
func (r *InstanceRepository) CountByDefinition(definitionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.TaskInstance{}).
		Where("definition_id = ?", definitionID).
		Count(&count).Error
	return count, err
}

// FindByDefinition returns a definition's instances ordered by planned start.
func (r *InstanceRepository) FindByDefinition(definitionID uint) ([]models.TaskInstance, error) {
	var instances []models.TaskInstance
	err := r.db.Where("definition_id = ?", definitionID).
		Order("planned_start ASC, seqno ASC").
		Find(&instances).Error
	return instances, err
}

// FindChildren returns the child instances of a parent occurrence in
// sequence order.
func (r *InstanceRepository) FindChildren(parentInstanceID uint) ([]models.TaskInstance, error) {
	var instances []models.TaskInstance
	err := r.db.Where("parent_instance_id = ?", parentInstanceID).
		Order("seqno ASC").
		Find(&instances).Error
	return instances, err
}

// DetailsFor returns an instance's detail rows in sequence order.
func (r *InstanceRepository) DetailsFor(instanceID uint) ([]models.TaskInstanceDetail, error) {
	var details []models.TaskInstanceDetail
	err := r.db.Where("instance_id = ?", instanceID).
		Order("seqno ASC").
		Find(&details).Error
	return details, err
}

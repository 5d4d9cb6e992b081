package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"taskmint/internal/models"
)

// ReminderRepository handles escalation matrix lookups and reminder rows.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// MatrixFor returns a definition's escalation entries.
func (r *ReminderRepository) MatrixFor(definitionID uint) ([]models.EscalationMatrixEntry, error) {
	var entries []models.EscalationMatrixEntry
	err := r.db.Where("definition_id = ?", definitionID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// GetOrCreate inserts a reminder unless one already exists for the same
// (instance, matrix entry) pair.
func (r *ReminderRepository) GetOrCreate(reminder *models.Reminder) (bool, error) {
	var existing models.Reminder
	err := r.db.Where("instance_id = ? AND matrix_entry_id = ?",
		reminder.InstanceID, reminder.MatrixEntryID).
		First(&existing).Error
	if err == nil {
		*reminder = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := r.db.Create(reminder).Error; err != nil {
		return false, err
	}
	return true, nil
}

// FindDue returns reminders whose fire time has arrived and that have not
// been delivered yet. Failed reminders are picked up again by the next sweep.
func (r *ReminderRepository) FindDue(now time.Time, limit int) ([]models.Reminder, error) {
	var reminders []models.Reminder
	q := r.db.Where("fire_at <= ? AND status <> ?", now, models.ReminderSuccess).
		Order("fire_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&reminders).Error
	return reminders, err
}

// MarkSent finalizes one delivery attempt.
func (r *ReminderRepository) MarkSent(id uint, status, lastError string, sentAt time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
	}
	if status == models.ReminderSuccess {
		updates["sent_at"] = sentAt
	}
	return r.db.Model(&models.Reminder{}).Where("id = ?", id).Updates(updates).Error
}

// FindByInstance returns an instance's reminders, for the operator API.
func (r *ReminderRepository) FindByInstance(instanceID uint) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := r.db.Where("instance_id = ?", instanceID).
		Order("fire_at ASC").
		Find(&reminders).Error
	return reminders, err
}

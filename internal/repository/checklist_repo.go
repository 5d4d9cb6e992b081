package repository

import (
	"gorm.io/gorm"

	"taskmint/internal/models"
)

// ChecklistRepository reads authored checklists.
type ChecklistRepository struct {
	db *gorm.DB
}

func NewChecklistRepository(db *gorm.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// ItemsFor returns a checklist's items in authored order.
func (r *ChecklistRepository) ItemsFor(checklistID uint) ([]models.ChecklistItem, error) {
	var items []models.ChecklistItem
	err := r.db.Where("checklist_id = ?", checklistID).
		Order("seqno ASC, id ASC").
		Find(&items).Error
	return items, err
}

package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"taskmint/internal/models"
)

// MigrateAndSeed ensures required tables exist and inserts baseline rows for
// singleton data. Definitions, checklists and assets are authored elsewhere
// but share the same store, so their schemas are migrated here too.
func MigrateAndSeed(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := seedDefaults(db); err != nil {
		return fmt.Errorf("seed defaults failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		// Authoring-owned, read by the engine
		&models.JobDefinition{},
		&models.Checklist{},
		&models.ChecklistItem{},
		&models.Asset{},
		&models.EscalationMatrixEntry{},
		// Engine-owned
		&models.TaskInstance{},
		&models.TaskInstanceDetail{},
		&models.Reminder{},
	}
}

func seedDefaults(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return ensureDefaultEscalationCadences(tx)
	})
}

// ensureDefaultEscalationCadences inserts the fallback reminder cadence set
// used by PPM definitions that carry no matrix of their own. Rows keep their
// definition_id at DefaultMatrixDefinitionID; recipients are left empty and
// resolved to the operator alert address at planning time.
func ensureDefaultEscalationCadences(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.EscalationMatrixEntry{}).
		Where("definition_id = ?", models.DefaultMatrixDefinitionID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []models.EscalationMatrixEntry{
		{DefinitionID: models.DefaultMatrixDefinitionID, FrequencyUnit: models.FreqWeeks, FrequencyValue: 1},
		{DefinitionID: models.DefaultMatrixDefinitionID, FrequencyUnit: models.FreqDays, FrequencyValue: 1},
		{DefinitionID: models.DefaultMatrixDefinitionID, FrequencyUnit: models.FreqHours, FrequencyValue: 2},
	}
	return tx.Create(&defaults).Error
}

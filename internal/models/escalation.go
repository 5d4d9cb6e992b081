package models

import "time"

// Escalation frequency units.
const (
	FreqMinutes = "MINUTES"
	FreqHours   = "HOURS"
	FreqDays    = "DAYS"
	FreqWeeks   = "WEEKS"
)

// Reminder statuses.
const (
	ReminderPending = "PENDING"
	ReminderSuccess = "SUCCESS"
	ReminderFailed  = "FAILED"
)

// DefaultMatrixDefinitionID marks cadence rows that apply to any PPM
// definition without a matrix of its own. Follows the 0 = top-level
// convention used for parent references.
const DefaultMatrixDefinitionID uint = 0

// EscalationMatrixEntry maps a definition to one reminder cadence and its
// notification targets. A definition may carry several entries.
type EscalationMatrixEntry struct {
	ID           uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DefinitionID uint `gorm:"column:definition_id;index:idx_escalation_matrix_definition" json:"definition_id"`

	FrequencyUnit  string `gorm:"column:frequency_unit;size:20" json:"frequency_unit"`
	FrequencyValue int    `gorm:"column:frequency_value;default:0" json:"frequency_value"`

	// NotifyEmails is a comma-separated recipient list.
	NotifyEmails string `gorm:"column:notify_emails;type:text" json:"notify_emails"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (EscalationMatrixEntry) TableName() string {
	return "escalation_matrix"
}

// Cadence converts the entry's unit/value pair into a duration.
func (e *EscalationMatrixEntry) Cadence() time.Duration {
	v := time.Duration(e.FrequencyValue)
	switch e.FrequencyUnit {
	case FreqHours:
		return v * time.Hour
	case FreqDays:
		return v * 24 * time.Hour
	case FreqWeeks:
		return v * 7 * 24 * time.Hour
	default:
		return v * time.Minute
	}
}

// Reminder is derived per (instance, escalation entry) and delivered by the
// periodic sweep.
type Reminder struct {
	ID            uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DefinitionID  uint `gorm:"column:definition_id;index:idx_reminders_definition" json:"definition_id"`
	InstanceID    uint `gorm:"column:instance_id;uniqueIndex:idx_reminders_instance_entry,priority:1" json:"instance_id"`
	MatrixEntryID uint `gorm:"column:matrix_entry_id;uniqueIndex:idx_reminders_instance_entry,priority:2" json:"matrix_entry_id"`

	FireAt     time.Time  `gorm:"column:fire_at;index:idx_reminders_fire_at" json:"fire_at"`
	Status     string     `gorm:"column:status;size:20;index:idx_reminders_status" json:"status"`
	Recipients string     `gorm:"column:recipients;type:text" json:"recipients"`
	LastError  string     `gorm:"column:last_error;type:text" json:"last_error"`
	SentAt     *time.Time `gorm:"column:sent_at" json:"sent_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Reminder) TableName() string {
	return "reminders"
}

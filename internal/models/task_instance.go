package models

import "time"

// Task instance statuses.
const (
	StatusAssigned           = "ASSIGNED"
	StatusInProgress         = "INPROGRESS"
	StatusCompleted          = "COMPLETED"
	StatusAutoClosed         = "AUTOCLOSED"
	StatusPartiallyCompleted = "PARTIALLYCOMPLETED"
)

// JobTypeSchedule marks instances produced by the generation engine.
const JobTypeSchedule = "SCHEDULE"

// TaskInstance is one concrete, time-boxed occurrence of a definition.
// The composite unique index is the engine's idempotency key: re-running the
// same window is a no-op for rows that already exist.
type TaskInstance struct {
	ID           uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DefinitionID uint   `gorm:"column:definition_id;uniqueIndex:idx_task_instances_occurrence,priority:1" json:"definition_id"`
	JobType      string `gorm:"column:job_type;size:30;uniqueIndex:idx_task_instances_occurrence,priority:2" json:"job_type"`

	PlannedStart time.Time `gorm:"column:planned_start;uniqueIndex:idx_task_instances_occurrence,priority:3;index:idx_task_instances_start" json:"planned_start"`
	// PlannedExpiry is not part of the occurrence key: a tour parent's
	// expiry is rewritten to its last child's after expansion.
	PlannedExpiry time.Time `gorm:"column:planned_expiry" json:"planned_expiry"`

	// ParentInstanceID links a tour checkpoint instance to the instance of
	// its parent occurrence. 0 means top level.
	ParentInstanceID uint `gorm:"column:parent_instance_id;default:0;uniqueIndex:idx_task_instances_occurrence,priority:4;index:idx_task_instances_parent" json:"parent_instance_id"`
	SeqNo            int  `gorm:"column:seqno;default:0" json:"seqno"`

	Status string `gorm:"column:status;size:30;index:idx_task_instances_status" json:"status"`

	AssigneeID  *uint `gorm:"column:assignee_id" json:"assignee_id"`
	TeamID      *uint `gorm:"column:team_id" json:"team_id"`
	AssetID     *uint `gorm:"column:asset_id" json:"asset_id"`
	ChecklistID *uint `gorm:"column:checklist_id" json:"checklist_id"`

	Priority string `gorm:"column:priority;size:30" json:"priority"`
	ScanType string `gorm:"column:scan_type;size:30" json:"scan_type"`

	// MultiplicationFactor is copied from the referenced asset at
	// materialization time.
	MultiplicationFactor float64 `gorm:"column:multiplication_factor;default:1" json:"multiplication_factor"`

	Options DefinitionOptions `gorm:"column:options;serializer:json" json:"options"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (TaskInstance) TableName() string {
	return "task_instances"
}

// TaskInstanceDetail is one checklist line of an instance. Detail rows are
// fully replaced whenever the owning instance is (re)materialized.
type TaskInstanceDetail struct {
	ID              uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	InstanceID      uint   `gorm:"column:instance_id;index:idx_task_instance_details_instance" json:"instance_id"`
	SeqNo           int    `gorm:"column:seqno;default:0" json:"seqno"`
	ChecklistItemID uint   `gorm:"column:checklist_item_id" json:"checklist_item_id"`
	Question        string `gorm:"column:question;size:1000" json:"question"`

	MinValue  *float64 `gorm:"column:min_value" json:"min_value"`
	MaxValue  *float64 `gorm:"column:max_value" json:"max_value"`
	Options   string   `gorm:"column:options;type:text" json:"options"`
	AlertRule string   `gorm:"column:alert_rule;size:255" json:"alert_rule"`
	Mandatory bool     `gorm:"column:mandatory;default:false" json:"mandatory"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (TaskInstanceDetail) TableName() string {
	return "task_instance_details"
}

package models

import "time"

// Checklist is an authored question set bound to definitions. The engine
// reads checklists but never writes them.
type Checklist struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:255" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Checklist) TableName() string {
	return "checklists"
}

// ChecklistItem is one question with its answer constraints.
type ChecklistItem struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ChecklistID uint   `gorm:"column:checklist_id;index:idx_checklist_items_checklist" json:"checklist_id"`
	SeqNo       int    `gorm:"column:seqno;default:0" json:"seqno"`
	Question    string `gorm:"column:question;size:1000" json:"question"`

	MinValue  *float64 `gorm:"column:min_value" json:"min_value"`
	MaxValue  *float64 `gorm:"column:max_value" json:"max_value"`
	Options   string   `gorm:"column:options;type:text" json:"options"`
	AlertRule string   `gorm:"column:alert_rule;size:255" json:"alert_rule"`
	Mandatory bool     `gorm:"column:mandatory;default:false" json:"mandatory"`
}

func (ChecklistItem) TableName() string {
	return "checklist_items"
}

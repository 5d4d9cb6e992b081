package models

import "time"

// Job definition kinds. INTERNALTOUR/EXTERNALTOUR definitions own an ordered
// set of child definitions (checkpoints); PPM definitions skip the rolling
// lookahead cap and drive escalation reminders.
const (
	KindTask         = "TASK"
	KindInternalTour = "INTERNALTOUR"
	KindExternalTour = "EXTERNALTOUR"
	KindPPM          = "PPM"
	KindDynamic      = "DYNAMIC"
)

// TourOptions configures tour expansion for INTERNALTOUR/EXTERNALTOUR kinds.
type TourOptions struct {
	Randomized   bool `json:"randomized"`
	Frequency    int  `json:"frequency"`
	BreakTimeMin int  `json:"break_time_minutes"`
}

// PPMOptions is reserved for preventive-maintenance specific settings.
type PPMOptions struct{}

// DynamicOptions is reserved for dynamic (on-demand) definitions.
type DynamicOptions struct{}

// DefinitionOptions is a typed options bag selected by the definition kind.
// Stored as a JSON column; only the variant matching the kind is populated.
type DefinitionOptions struct {
	Tour      *TourOptions    `json:"tour,omitempty"`
	PPM       *PPMOptions     `json:"ppm,omitempty"`
	Dynamic   *DynamicOptions `json:"dynamic,omitempty"`
	TimeBound bool            `json:"timebound,omitempty"`
}

// JobDefinition is a recurring template authored elsewhere and read by the
// generation engine. Top-level definitions (ParentID == 0) are enumerated
// against their cron expression; child definitions describe the ordered
// checkpoints of a tour and are never enumerated directly.
type JobDefinition struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"column:name;size:255" json:"name"`
	Kind            string    `gorm:"column:kind;size:30;index:idx_job_definitions_kind" json:"kind"`
	CronExpr        string    `gorm:"column:cron_expr;size:120" json:"cron_expr"`
	FromDate        time.Time `gorm:"column:from_date" json:"from_date"`
	UptoDate        time.Time `gorm:"column:upto_date;index:idx_job_definitions_upto" json:"upto_date"`
	LastGeneratedAt time.Time `gorm:"column:last_generated_at" json:"last_generated_at"`
	TZOffsetMin     int       `gorm:"column:tz_offset_minutes;default:0" json:"tz_offset_minutes"`

	PlanDurationMin int `gorm:"column:plan_duration_minutes;default:0" json:"plan_duration_minutes"`
	GraceTimeMin    int `gorm:"column:grace_time_minutes;default:0" json:"grace_time_minutes"`
	ExpiryTimeMin   int `gorm:"column:expiry_time_minutes;default:0" json:"expiry_time_minutes"`

	Priority string `gorm:"column:priority;size:30" json:"priority"`
	ScanType string `gorm:"column:scan_type;size:30" json:"scan_type"`

	// Assignment is a nullable assignee-xor-team pair; see AssignmentOf.
	AssigneeID  *uint `gorm:"column:assignee_id" json:"assignee_id"`
	TeamID      *uint `gorm:"column:team_id" json:"team_id"`
	ChecklistID *uint `gorm:"column:checklist_id" json:"checklist_id"`
	AssetID     *uint `gorm:"column:asset_id" json:"asset_id"`

	// ParentID links a tour checkpoint to its owning tour definition.
	// 0 means top level.
	ParentID uint `gorm:"column:parent_id;default:0;index:idx_job_definitions_parent" json:"parent_id"`
	SeqNo    int  `gorm:"column:seqno;default:0" json:"seqno"`

	Enabled bool              `gorm:"column:enabled;default:true" json:"enabled"`
	Options DefinitionOptions `gorm:"column:options;serializer:json" json:"options"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	// ModifiedAt is maintained by the authoring subsystem; the engine only
	// compares it with CreatedAt to detect edits, so it must not auto-update.
	ModifiedAt time.Time `gorm:"column:modified_at" json:"modified_at"`
}

func (JobDefinition) TableName() string {
	return "job_definitions"
}

// IsTour reports whether the definition expands into child checkpoint tasks.
func (d *JobDefinition) IsTour() bool {
	return d.Kind == KindInternalTour || d.Kind == KindExternalTour
}

// TourOpts returns the tour variant of the options bag, never nil.
func (d *JobDefinition) TourOpts() TourOptions {
	if d.Options.Tour != nil {
		return *d.Options.Tour
	}
	return TourOptions{}
}

// Assignment identifies who a generated instance is assigned to.
type Assignment struct {
	AssigneeID *uint
	TeamID     *uint
}

// Unassigned reports whether neither a person nor a team is set.
func (a Assignment) Unassigned() bool {
	return a.AssigneeID == nil && a.TeamID == nil
}

// AssignmentOf resolves the definition's assignment. A person takes
// precedence over a team when both are set.
func AssignmentOf(d *JobDefinition) Assignment {
	if d.AssigneeID != nil {
		return Assignment{AssigneeID: d.AssigneeID}
	}
	if d.TeamID != nil {
		return Assignment{TeamID: d.TeamID}
	}
	return Assignment{}
}

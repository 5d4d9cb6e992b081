package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskmint/internal/config"
	"taskmint/internal/pkg/mailer"
	"taskmint/internal/repository"
	"taskmint/internal/routing"
)

// Repos bundles the repositories needed by the generation engine.
type Repos struct {
	Definition *repository.DefinitionRepository
	Instance   *repository.InstanceRepository
	Checklist  *repository.ChecklistRepository
	Asset      *repository.AssetRepository
	Reminder   *repository.ReminderRepository
}

// NewRepos wires all engine repositories against one database handle.
func NewRepos(db *gorm.DB) *Repos {
	return &Repos{
		Definition: repository.NewDefinitionRepository(db),
		Instance:   repository.NewInstanceRepository(db),
		Checklist:  repository.NewChecklistRepository(db),
		Asset:      repository.NewAssetRepository(db),
		Reminder:   repository.NewReminderRepository(db),
	}
}

// Engine turns due job definitions into task instances. One Engine instance
// is shared by the periodic trigger and the manual-run API; the caller
// serializes whole-batch invocations through the run lock.
type Engine struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *zap.Logger
	repos  *Repos
	routes routing.Service
	mail   mailer.Sender

	// now is swapped out by tests.
	now func() time.Time
}

// New creates a generation engine. routes and mail may be nil when the
// corresponding collaborator is not configured; randomized tours and
// reminder delivery then fail per definition instead of at boot.
func New(db *gorm.DB, cfg *config.Config, repos *Repos, routes routing.Service, mail mailer.Sender, logger *zap.Logger) *Engine {
	if cfg.Scheduler.LookaheadHours <= 0 {
		cfg.Scheduler.LookaheadHours = 48
	}
	return &Engine{
		db:     db,
		cfg:    cfg,
		repos:  repos,
		routes: routes,
		mail:   mail,
		logger: logger,
		now:    time.Now,
	}
}

// InvalidCronError reports a malformed cron expression. It is a
// per-definition failure: the definition is skipped and reported, other
// definitions are unaffected.
type InvalidCronError struct {
	Expr string
	Err  error
}

func (e *InvalidCronError) Error() string {
	return fmt.Sprintf("invalid cron expression %q: %v", e.Expr, e.Err)
}

func (e *InvalidCronError) Unwrap() error {
	return e.Err
}

// RoutingServiceError reports a failed or timed-out route-optimization call.
// The tour's top-level instances are still created, without child expansion.
type RoutingServiceError struct {
	Err error
}

func (e *RoutingServiceError) Error() string {
	return fmt.Sprintf("route optimization failed: %v", e.Err)
}

func (e *RoutingServiceError) Unwrap() error {
	return e.Err
}

// Definition outcome statuses inside a run report.
const (
	OutcomeCreated     = "created"
	OutcomeNothingDue  = "nothing_due"
	OutcomeInvalidCron = "invalid_cron"
	OutcomeFailed      = "failed"
)

// DefinitionOutcome is one definition's result within a run.
type DefinitionOutcome struct {
	DefinitionID    uint   `json:"definition_id"`
	Name            string `json:"name"`
	OccurrenceCount int    `json:"occurrence_count"`
	CronValid       bool   `json:"cron_valid"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

// RunReport aggregates one whole-batch invocation.
type RunReport struct {
	RunID      string              `json:"run_id"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Total      int                 `json:"total"`
	Succeeded  int                 `json:"succeeded"`
	Failed     int                 `json:"failed"`
	Outcomes   []DefinitionOutcome `json:"outcomes"`
}

func minutes(m int) time.Duration {
	return time.Duration(m) * time.Minute
}

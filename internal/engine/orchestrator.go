package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskmint/internal/models"
	"taskmint/internal/pkg/mailer"
)

// Run drives one whole-batch invocation:
// FILTER -> (per definition: COMPUTE_WINDOW -> ENUMERATE -> MATERIALIZE) -> REPORT.
// Definitions are processed independently; one bad definition never aborts
// the run. Only a catastrophic failure of the filter query propagates.
func (e *Engine) Run(ctx context.Context, definitionIDs []uint) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: e.now().UTC(),
	}

	defs, err := e.repos.Definition.FindDue(definitionIDs, e.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list due definitions: %w", err)
	}

	for i := range defs {
		outcome := e.processDefinition(ctx, &defs[i])
		report.Outcomes = append(report.Outcomes, outcome)
		report.Total++
		switch outcome.Status {
		case OutcomeFailed, OutcomeInvalidCron:
			report.Failed++
			e.alertFailure(&defs[i], outcome)
		default:
			report.Succeeded++
		}
	}

	report.FinishedAt = e.now().UTC()
	e.logger.Info("Scheduler run finished",
		zap.String("run_id", report.RunID),
		zap.Int("definitions", report.Total),
		zap.Int("failed", report.Failed))
	return report, nil
}

// processDefinition runs the pipeline for one definition, converting every
// failure mode into an outcome entry.
func (e *Engine) processDefinition(ctx context.Context, def *models.JobDefinition) (outcome DefinitionOutcome) {
	outcome = DefinitionOutcome{
		DefinitionID: def.ID,
		Name:         def.Name,
		CronValid:    true,
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Definition processing panicked",
				zap.Uint("definition_id", def.ID), zap.Any("error", r))
			outcome.Status = OutcomeFailed
			outcome.Message = fmt.Sprintf("panic: %v", r)
		}
	}()

	start, end, open, err := e.computeWindow(def)
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Message = err.Error()
		return
	}
	if !open {
		outcome.Status = OutcomeNothingDue
		outcome.Message = "validity window exhausted"
		return
	}

	occurrences, validCron, err := Enumerate(def.CronExpr, start, end)
	if !validCron {
		e.logger.Warn("Skipping definition with invalid cron",
			zap.Uint("definition_id", def.ID),
			zap.String("cron", def.CronExpr),
			zap.Error(err))
		outcome.CronValid = false
		outcome.Status = OutcomeInvalidCron
		outcome.Message = err.Error()
		return
	}
	if len(occurrences) == 0 {
		outcome.Status = OutcomeNothingDue
		outcome.Message = "no occurrence falls in the window"
		return
	}

	sum, err := e.materialize(ctx, def, occurrences)
	if err != nil {
		e.logger.Error("Materialization failed",
			zap.Uint("definition_id", def.ID), zap.Error(err))
		outcome.Status = OutcomeFailed
		outcome.Message = err.Error()
		return
	}

	if def.Kind == models.KindPPM {
		e.planReminders(def, sum.createdInstances)
	}

	outcome.OccurrenceCount = len(occurrences)
	outcome.Status = OutcomeCreated
	outcome.Message = fmt.Sprintf("%d created, %d already existed", sum.created, sum.existing)
	if sum.routingFailed {
		outcome.Message += "; route optimization failed, tour children skipped"
	}
	return
}

// alertFailure notifies operators about a failed definition, best-effort and
// non-blocking.
func (e *Engine) alertFailure(def *models.JobDefinition, outcome DefinitionOutcome) {
	if e.mail == nil || e.cfg.Mail.AlertTo == "" {
		return
	}
	to := mailer.SplitRecipients(e.cfg.Mail.AlertTo)
	if len(to) == 0 {
		return
	}

	subject := fmt.Sprintf("Task generation failed for %q (#%d)", def.Name, def.ID)
	body := fmt.Sprintf("Definition %q (#%d) failed during scheduling: %s", def.Name, def.ID, outcome.Message)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.mail.Send(ctx, to, subject, body); err != nil {
			e.logger.Warn("Operator alert delivery failed",
				zap.Uint("definition_id", def.ID), zap.Error(err))
		}
	}()
}

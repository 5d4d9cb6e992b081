package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskmint/internal/models"
)

// MaterializeResult classifies what happened to one occurrence.
type MaterializeResult int

const (
	Created MaterializeResult = iota
	AlreadyExists
	Failed
)

func (r MaterializeResult) String() string {
	switch r {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "failed"
	}
}

// materializeSummary reports one definition's batch.
type materializeSummary struct {
	created  int
	existing int
	// createdInstances holds the top-level rows written this run, for
	// reminder planning.
	createdInstances []models.TaskInstance
	routingFailed    bool
}

// materialize idempotently writes the task instances for a definition's
// occurrences. All writes for the definition happen in one transaction:
// a single occurrence failing aborts the whole batch. Route resolution for
// randomized tours happens before the transaction so the network call never
// holds it open.
func (e *Engine) materialize(ctx context.Context, def *models.JobDefinition, occurrences []time.Time) (*materializeSummary, error) {
	sum := &materializeSummary{}

	factor, err := e.definitionFactor(def)
	if err != nil {
		return nil, err
	}
	items, err := e.checklistItems(def.ChecklistID)
	if err != nil {
		return nil, err
	}

	var plan *tourPlan
	if def.IsTour() {
		plan, err = e.buildTourPlan(ctx, def)
		if err != nil {
			var rerr *RoutingServiceError
			if !errors.As(err, &rerr) {
				return nil, err
			}
			// The top-level instances are still created; only child
			// expansion is dropped for this run.
			e.logger.Error("Tour expansion skipped",
				zap.Uint("definition_id", def.ID), zap.Error(err))
			sum.routingFailed = true
			plan = nil
		}
	}

	assignment := models.AssignmentOf(def)
	grace := minutes(def.GraceTimeMin)
	length := minutes(def.PlanDurationMin) + minutes(def.ExpiryTimeMin)

	err = e.db.Transaction(func(tx *gorm.DB) error {
		var watermark time.Time
		for _, occ := range occurrences {
			t := occ.UTC()
			inst := &models.TaskInstance{
				DefinitionID:         def.ID,
				JobType:              models.JobTypeSchedule,
				PlannedStart:         t.Add(-grace),
				PlannedExpiry:        t.Add(length),
				Status:               models.StatusAssigned,
				AssigneeID:           assignment.AssigneeID,
				TeamID:               assignment.TeamID,
				AssetID:              def.AssetID,
				ChecklistID:          def.ChecklistID,
				Priority:             def.Priority,
				ScanType:             def.ScanType,
				MultiplicationFactor: factor,
				Options:              def.Options,
			}
			res, err := e.materializeOccurrence(tx, inst, items, plan)
			if err != nil {
				return fmt.Errorf("occurrence %s: %w", t.Format(time.RFC3339), err)
			}
			switch res {
			case Created:
				sum.created++
				sum.createdInstances = append(sum.createdInstances, *inst)
			case AlreadyExists:
				sum.existing++
			}
			watermark = inst.PlannedStart
		}

		if !watermark.IsZero() {
			if err := e.repos.Definition.UpdateWatermark(tx, def.ID, watermark); err != nil {
				return fmt.Errorf("advance watermark: %w", err)
			}
			def.LastGeneratedAt = watermark
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// materializeOccurrence writes one top-level instance, its detail rows and,
// for tours, its ordered children.
func (e *Engine) materializeOccurrence(tx *gorm.DB, inst *models.TaskInstance, items []models.ChecklistItem, plan *tourPlan) (MaterializeResult, error) {
	created, err := e.repos.Instance.GetOrCreate(tx, inst)
	if err != nil {
		return Failed, err
	}

	// Checklist changes take effect on re-materialization: detail rows are
	// fully replaced, never patched.
	if err := e.repos.Instance.ReplaceDetails(tx, inst.ID, detailRows(items)); err != nil {
		return Failed, fmt.Errorf("replace details: %w", err)
	}

	if plan != nil && len(plan.steps) > 0 {
		if created {
			lastExpiry, err := e.expandTour(tx, plan, inst.ID, inst.PlannedStart)
			if err != nil {
				return Failed, err
			}
			// A tour's true end is the end of its last child task.
			if lastExpiry.After(inst.PlannedStart) && !lastExpiry.Equal(inst.PlannedExpiry) {
				if err := e.repos.Instance.UpdateExpiry(tx, inst.ID, lastExpiry); err != nil {
					return Failed, err
				}
				inst.PlannedExpiry = lastExpiry
			}
		} else {
			// The children were laid out when the parent was first
			// materialized (randomized tours would re-roll the order);
			// only their checklist snapshots are refreshed.
			if err := e.refreshChildDetails(tx, inst.ID); err != nil {
				return Failed, err
			}
		}
	}

	if created {
		return Created, nil
	}
	return AlreadyExists, nil
}

// definitionFactor copies the multiplication factor from the definition's
// referenced asset, defaulting to 1 when no asset is bound.
func (e *Engine) definitionFactor(def *models.JobDefinition) (float64, error) {
	if def.AssetID == nil {
		return 1, nil
	}
	asset, err := e.repos.Asset.FindByID(*def.AssetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 1, nil
		}
		return 0, fmt.Errorf("load asset %d: %w", *def.AssetID, err)
	}
	if asset.MultiplicationFactor <= 0 {
		return 1, nil
	}
	return asset.MultiplicationFactor, nil
}

// checklistItems loads the checklist currently bound to a definition.
// A nil checklist reference yields no rows; there is no sentinel checklist.
func (e *Engine) checklistItems(checklistID *uint) ([]models.ChecklistItem, error) {
	if checklistID == nil {
		return nil, nil
	}
	items, err := e.repos.Checklist.ItemsFor(*checklistID)
	if err != nil {
		return nil, fmt.Errorf("load checklist %d: %w", *checklistID, err)
	}
	return items, nil
}

// detailRows snapshots checklist items into fresh detail rows.
func detailRows(items []models.ChecklistItem) []models.TaskInstanceDetail {
	rows := make([]models.TaskInstanceDetail, 0, len(items))
	for i, it := range items {
		seq := it.SeqNo
		if seq == 0 {
			seq = i + 1
		}
		rows = append(rows, models.TaskInstanceDetail{
			SeqNo:           seq,
			ChecklistItemID: it.ID,
			Question:        it.Question,
			MinValue:        it.MinValue,
			MaxValue:        it.MaxValue,
			Options:         it.Options,
			AlertRule:       it.AlertRule,
			Mandatory:       it.Mandatory,
		})
	}
	return rows
}

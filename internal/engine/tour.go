package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"taskmint/internal/models"
	"taskmint/internal/routing"
)

// tourStep is one checkpoint visit in expansion order.
type tourStep struct {
	def models.JobDefinition
	// gap separates this checkpoint's start from the previous one's
	// expiry: routed travel seconds in routed mode, the checkpoint's
	// expiry-minutes field otherwise. Unused for the first step, which
	// anchors off the parent occurrence.
	gap    time.Duration
	factor float64
	items  []models.ChecklistItem
}

// tourPlan is the resolved visiting order for one definition. It does not
// depend on the occurrence anchor, so one plan serves every occurrence of
// the batch.
type tourPlan struct {
	steps  []tourStep
	routed bool
}

// buildTourPlan loads a tour's checkpoints and resolves their visiting
// order. Randomized tours shuffle and then ask the routing service for an
// optimized order with per-leg travel times; a repeat frequency replicates
// the fixed order into a round-trip pattern instead.
func (e *Engine) buildTourPlan(ctx context.Context, def *models.JobDefinition) (*tourPlan, error) {
	children, err := e.repos.Definition.FindChildren(def.ID)
	if err != nil {
		return nil, fmt.Errorf("load tour checkpoints: %w", err)
	}
	if len(children) == 0 {
		return &tourPlan{}, nil
	}

	assetIDs := make([]uint, 0, len(children))
	checklistIDs := make(map[uint]struct{})
	for _, c := range children {
		if c.AssetID != nil {
			assetIDs = append(assetIDs, *c.AssetID)
		}
		if c.ChecklistID != nil {
			checklistIDs[*c.ChecklistID] = struct{}{}
		}
	}
	assets, err := e.repos.Asset.FindByIDs(assetIDs)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint assets: %w", err)
	}
	itemsByChecklist := make(map[uint][]models.ChecklistItem, len(checklistIDs))
	for id := range checklistIDs {
		items, err := e.repos.Checklist.ItemsFor(id)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint checklist %d: %w", id, err)
		}
		itemsByChecklist[id] = items
	}

	mk := func(child models.JobDefinition, gap time.Duration) tourStep {
		step := tourStep{def: child, gap: gap, factor: 1}
		if child.AssetID != nil {
			if a, ok := assets[*child.AssetID]; ok && a.MultiplicationFactor > 0 {
				step.factor = a.MultiplicationFactor
			}
		}
		if child.ChecklistID != nil {
			step.items = itemsByChecklist[*child.ChecklistID]
		}
		return step
	}

	opts := def.TourOpts()
	switch {
	case opts.Randomized && len(children) > 1:
		return e.routedPlan(ctx, children, assets, mk)
	case opts.Frequency > 1:
		return repeatedPlan(children, opts, mk), nil
	default:
		return fixedPlan(children, mk), nil
	}
}

// fixedPlan visits the checkpoints in authored order.
func fixedPlan(children []models.JobDefinition, mk func(models.JobDefinition, time.Duration) tourStep) *tourPlan {
	plan := &tourPlan{steps: make([]tourStep, 0, len(children))}
	for i, c := range children {
		gap := minutes(c.ExpiryTimeMin)
		if i == 0 {
			gap = 0
		}
		plan.steps = append(plan.steps, mk(c, gap))
	}
	return plan
}

// repeatedPlan replicates the fixed order `frequency` times, reversing the
// tail half of each repetition so the guard walks out and back, with the
// operator-configured break added at each repetition's midpoint. This is an
// inherited business rule; do not generalize it.
func repeatedPlan(children []models.JobDefinition, opts models.TourOptions, mk func(models.JobDefinition, time.Duration) tourStep) *tourPlan {
	n := len(children)
	half := n / 2

	plan := &tourPlan{steps: make([]tourStep, 0, n*opts.Frequency)}
	for rep := 0; rep < opts.Frequency; rep++ {
		order := make([]models.JobDefinition, 0, n)
		order = append(order, children[:half]...)
		for i := n - 1; i >= half; i-- {
			order = append(order, children[i])
		}

		for i, c := range order {
			gap := minutes(c.ExpiryTimeMin)
			if rep == 0 && i == 0 {
				gap = 0
			}
			if i == half && opts.BreakTimeMin > 0 {
				gap += minutes(opts.BreakTimeMin)
			}
			plan.steps = append(plan.steps, mk(c, gap))
		}
	}
	return plan
}

// routedPlan shuffles the checkpoints and asks the routing service for an
// optimized visiting order with per-leg travel times.
func (e *Engine) routedPlan(ctx context.Context, children []models.JobDefinition, assets map[uint]models.Asset, mk func(models.JobDefinition, time.Duration) tourStep) (*tourPlan, error) {
	if e.routes == nil {
		return nil, &RoutingServiceError{Err: fmt.Errorf("routing service not configured")}
	}

	shuffled := make([]models.JobDefinition, len(children))
	copy(shuffled, children)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	coord := func(c models.JobDefinition) routing.Coordinate {
		if c.AssetID != nil {
			if a, ok := assets[*c.AssetID]; ok {
				return routing.Coordinate{Latitude: a.Latitude, Longitude: a.Longitude}
			}
		}
		return routing.Coordinate{}
	}

	last := len(shuffled) - 1
	middle := shuffled[1:last]
	waypoints := make([]routing.Coordinate, 0, len(middle))
	for _, c := range middle {
		waypoints = append(waypoints, coord(c))
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.Routing.Timeout)
	defer cancel()
	route, err := e.routes.GetRoute(rctx, coord(shuffled[0]), coord(shuffled[last]), waypoints)
	if err != nil {
		return nil, &RoutingServiceError{Err: err}
	}
	if len(route.WaypointOrder) != len(middle) {
		return nil, &RoutingServiceError{Err: fmt.Errorf("route has %d waypoints, expected %d", len(route.WaypointOrder), len(middle))}
	}

	ordered := make([]models.JobDefinition, 0, len(shuffled))
	ordered = append(ordered, shuffled[0])
	for _, idx := range route.WaypointOrder {
		if idx < 0 || idx >= len(middle) {
			return nil, &RoutingServiceError{Err: fmt.Errorf("waypoint index %d out of range", idx)}
		}
		ordered = append(ordered, middle[idx])
	}
	ordered = append(ordered, shuffled[last])

	plan := &tourPlan{routed: true, steps: make([]tourStep, 0, len(ordered))}
	for i, c := range ordered {
		var gap time.Duration
		if i > 0 {
			if i-1 < len(route.LegDurationSec) {
				gap = time.Duration(route.LegDurationSec[i-1] * float64(time.Second))
			} else {
				gap = minutes(c.ExpiryTimeMin)
			}
		}
		plan.steps = append(plan.steps, mk(c, gap))
	}
	return plan, nil
}

// expandTour lays the plan's checkpoints out in time and materializes one
// child instance per visit. The first child anchors off the parent
// occurrence; each following child starts at the previous child's expiry
// plus the leg gap. Returns the last child's planned expiry.
func (e *Engine) expandTour(tx *gorm.DB, plan *tourPlan, parentInstanceID uint, anchor time.Time) (time.Time, error) {
	cursor := anchor
	var lastExpiry time.Time

	for i := range plan.steps {
		step := &plan.steps[i]
		if i > 0 {
			cursor = lastExpiry.Add(step.gap)
		}
		expiry := cursor.Add(minutes(step.def.PlanDurationMin) + minutes(step.def.GraceTimeMin))

		assignment := models.AssignmentOf(&step.def)
		child := &models.TaskInstance{
			DefinitionID:         step.def.ID,
			JobType:              models.JobTypeSchedule,
			PlannedStart:         cursor,
			PlannedExpiry:        expiry,
			ParentInstanceID:     parentInstanceID,
			SeqNo:                i + 1,
			Status:               models.StatusAssigned,
			AssigneeID:           assignment.AssigneeID,
			TeamID:               assignment.TeamID,
			AssetID:              step.def.AssetID,
			ChecklistID:          step.def.ChecklistID,
			Priority:             step.def.Priority,
			ScanType:             step.def.ScanType,
			MultiplicationFactor: step.factor,
			Options:              step.def.Options,
		}
		if _, err := e.repos.Instance.GetOrCreate(tx, child); err != nil {
			return time.Time{}, fmt.Errorf("checkpoint %d (%s): %w", i+1, step.def.Name, err)
		}
		if err := e.repos.Instance.ReplaceDetails(tx, child.ID, detailRows(step.items)); err != nil {
			return time.Time{}, fmt.Errorf("checkpoint %d (%s) details: %w", i+1, step.def.Name, err)
		}

		lastExpiry = expiry
	}
	return lastExpiry, nil
}

// refreshChildDetails re-snapshots the checklists of an existing parent's
// children without disturbing their layout.
func (e *Engine) refreshChildDetails(tx *gorm.DB, parentInstanceID uint) error {
	var children []models.TaskInstance
	if err := tx.Where("parent_instance_id = ?", parentInstanceID).
		Order("seqno ASC").
		Find(&children).Error; err != nil {
		return fmt.Errorf("load existing children: %w", err)
	}

	cache := make(map[uint][]models.ChecklistItem)
	for _, child := range children {
		if child.ChecklistID == nil {
			if err := e.repos.Instance.ReplaceDetails(tx, child.ID, nil); err != nil {
				return err
			}
			continue
		}
		items, ok := cache[*child.ChecklistID]
		if !ok {
			var err error
			items, err = e.checklistItemsTx(tx, *child.ChecklistID)
			if err != nil {
				return err
			}
			cache[*child.ChecklistID] = items
		}
		if err := e.repos.Instance.ReplaceDetails(tx, child.ID, detailRows(items)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) checklistItemsTx(tx *gorm.DB, checklistID uint) ([]models.ChecklistItem, error) {
	var items []models.ChecklistItem
	err := tx.Where("checklist_id = ?", checklistID).
		Order("seqno ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load checklist %d: %w", checklistID, err)
	}
	return items, nil
}

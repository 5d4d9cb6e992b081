package engine

import (
	"fmt"
	"time"

	"taskmint/internal/models"
)

// reclaimStale purges the not-yet-started future instances of an edited
// definition and of its checkpoints, cascading detail rows, so the edited
// template regenerates them. Historical and in-progress instances are never
// touched. Triggered only from the window calculator's edit-detection
// branch.
func (e *Engine) reclaimStale(def *models.JobDefinition, now time.Time) (int64, error) {
	ids := []uint{def.ID}
	childIDs, err := e.repos.Definition.ChildIDs(def.ID)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint ids: %w", err)
	}
	ids = append(ids, childIDs...)

	deleted, err := e.repos.Instance.DeleteFutureAssigned(ids, now)
	if err != nil {
		return 0, fmt.Errorf("purge stale instances: %w", err)
	}
	return deleted, nil
}

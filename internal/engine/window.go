package engine

import (
	"time"

	"go.uber.org/zap"

	"taskmint/internal/models"
)

// computeWindow returns the [start, end) generation horizon for a
// definition. All stored timestamps are UTC instants; the definition's
// timezone offset is applied so cron fields are evaluated against the
// site's local wall clock.
//
// An edit (modifiedAt newer than createdAt) invalidates previously generated
// future occurrences: the reclaimer purges them and the watermark is treated
// as "now" so the whole remaining window regenerates.
func (e *Engine) computeWindow(def *models.JobDefinition) (time.Time, time.Time, bool, error) {
	loc := time.FixedZone("definition", def.TZOffsetMin*60)
	now := e.now().In(loc)

	last := def.LastGeneratedAt.In(loc)
	if def.ModifiedAt.After(def.CreatedAt) {
		deleted, err := e.reclaimStale(def, now)
		if err != nil {
			return time.Time{}, time.Time{}, false, err
		}
		if deleted > 0 {
			e.logger.Info("Definition edited, purged stale future instances",
				zap.Uint("definition_id", def.ID),
				zap.Int64("deleted", deleted))
		}
		last = now
	}

	start := def.FromDate.In(loc)
	if last.After(start) {
		start = last
	}
	// Never generate into the past.
	if start.Before(now) {
		start = now
	}

	end := def.UptoDate.In(loc)
	if def.Kind != models.KindPPM {
		// Rolling lookahead: the engine runs periodically and only ever
		// materializes a bounded horizon. PPM windows are long and
		// infrequent and skip the cap.
		if capped := start.Add(time.Duration(e.cfg.Scheduler.LookaheadHours) * time.Hour); capped.Before(end) {
			end = capped
		}
	}

	return start, end, end.After(start), nil
}

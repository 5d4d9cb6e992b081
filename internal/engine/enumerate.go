package engine

import (
	"time"

	"github.com/robfig/cron/v3"
)

// maxOccurrencesPerWindow bounds a single enumeration. Normal windows hold a
// handful of occurrences; a minutely PPM definition with a months-long
// validity window could otherwise explode.
const maxOccurrencesPerWindow = 10000

// Enumerate expands a standard 5-field cron expression into the concrete
// datetimes falling inside [start, end). A start that itself matches the
// expression is included. The boolean distinguishes a malformed expression
// (false, with the error) from a valid expression that simply produces
// nothing in the window (true, empty result).
func Enumerate(expr string, start, end time.Time) ([]time.Time, bool, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, false, &InvalidCronError{Expr: expr, Err: err}
	}

	seen := make(map[int64]struct{})
	var out []time.Time
	// Next is strictly-after, so back up one second to include start.
	for t := sched.Next(start.Add(-time.Second)); !t.IsZero() && t.Before(end); t = sched.Next(t) {
		if _, dup := seen[t.Unix()]; dup {
			continue
		}
		seen[t.Unix()] = struct{}{}
		out = append(out, t)
		if len(out) >= maxOccurrencesPerWindow {
			break
		}
	}
	return out, true, nil
}

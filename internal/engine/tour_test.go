package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskmint/internal/models"
	"taskmint/internal/routing"
)

func seedTour(t *testing.T, db *gorm.DB, mutate func(*models.JobDefinition)) *models.JobDefinition {
	t.Helper()
	return seedDefinition(t, db, func(d *models.JobDefinition) {
		d.Name = "night guard tour"
		d.Kind = models.KindInternalTour
		d.CronExpr = "0 21 * * *"
		d.PlanDurationMin = 0
		if mutate != nil {
			mutate(d)
		}
	})
}

func seedCheckpoint(t *testing.T, db *gorm.DB, parent *models.JobDefinition, seq int, mutate func(*models.JobDefinition)) *models.JobDefinition {
	t.Helper()
	return seedDefinition(t, db, func(d *models.JobDefinition) {
		d.Name = fmt.Sprintf("checkpoint %d", seq)
		d.Kind = models.KindTask
		d.ParentID = parent.ID
		d.SeqNo = seq
		d.PlanDurationMin = 10
		d.GraceTimeMin = 0
		d.ExpiryTimeMin = 5
		if mutate != nil {
			mutate(d)
		}
	})
}

func childrenOf(t *testing.T, db *gorm.DB, parentInstanceID uint) []models.TaskInstance {
	t.Helper()
	var out []models.TaskInstance
	require.NoError(t, db.
		Where("parent_instance_id = ?", parentInstanceID).
		Order("seqno ASC").
		Find(&out).Error)
	return out
}

func TestTourFixedOrderLayout(t *testing.T) {
	eng, db := newTestEngine(t)
	setClock(eng, utc(2024, time.January, 3, 0, 0))

	tour := seedTour(t, db, nil)
	cp1 := seedCheckpoint(t, db, tour, 1, nil)
	cp2 := seedCheckpoint(t, db, tour, 2, nil)
	cp3 := seedCheckpoint(t, db, tour, 3, nil)

	anchor := utc(2024, time.January, 3, 9, 0)
	_, err := eng.materialize(context.Background(), tour, []time.Time{anchor})
	require.NoError(t, err)

	parents := instancesOf(t, db, tour.ID)
	require.Len(t, parents, 1)
	parent := parents[0]

	children := childrenOf(t, db, parent.ID)
	require.Len(t, children, 3)
	require.Equal(t, cp1.ID, children[0].DefinitionID)
	require.Equal(t, cp2.ID, children[1].DefinitionID)
	require.Equal(t, cp3.ID, children[2].DefinitionID)

	// First checkpoint anchors on the occurrence; each next one starts at
	// the previous expiry plus the 5 minute leg gap.
	require.True(t, children[0].PlannedStart.Equal(anchor))
	require.True(t, children[0].PlannedExpiry.Equal(anchor.Add(10*time.Minute)))
	require.True(t, children[1].PlannedStart.Equal(anchor.Add(15*time.Minute)))
	require.True(t, children[2].PlannedStart.Equal(anchor.Add(30*time.Minute)))

	for i := 1; i < len(children); i++ {
		require.True(t, children[i].PlannedStart.After(children[i-1].PlannedStart),
			"checkpoint starts must strictly increase")
		require.Equal(t, i+1, children[i].SeqNo)
	}

	// The parent's expiry is rewritten to the last checkpoint's.
	require.True(t, parent.PlannedExpiry.Equal(children[2].PlannedExpiry))
}

func TestTourWithoutCheckpoints(t *testing.T) {
	eng, db := newTestEngine(t)
	setClock(eng, utc(2024, time.January, 3, 0, 0))

	tour := seedTour(t, db, func(d *models.JobDefinition) {
		d.PlanDurationMin = 60
	})

	anchor := utc(2024, time.January, 3, 9, 0)
	sum, err := eng.materialize(context.Background(), tour, []time.Time{anchor})
	require.NoError(t, err)
	require.Equal(t, 1, sum.created)

	parents := instancesOf(t, db, tour.ID)
	require.Len(t, parents, 1)
	require.True(t, parents[0].PlannedExpiry.Equal(anchor.Add(time.Hour)))
	require.Empty(t, childrenOf(t, db, parents[0].ID))
}

func TestTourRematerializeKeepsLayout(t *testing.T) {
	eng, db := newTestEngine(t)
	setClock(eng, utc(2024, time.January, 3, 0, 0))

	tour := seedTour(t, db, nil)
	seedCheckpoint(t, db, tour, 1, nil)
	seedCheckpoint(t, db, tour, 2, nil)

	anchor := utc(2024, time.January, 3, 9, 0)
	_, err := eng.materialize(context.Background(), tour, []time.Time{anchor})
	require.NoError(t, err)

	parent := instancesOf(t, db, tour.ID)[0]
	before := childrenOf(t, db, parent.ID)
	require.Len(t, before, 2)

	sum, err := eng.materialize(context.Background(), tour, []time.Time{anchor})
	require.NoError(t, err)
	require.Equal(t, 1, sum.existing)

	after := childrenOf(t, db, parent.ID)
	require.Len(t, after, 2)
	for i := range after {
		require.Equal(t, before[i].ID, after[i].ID)
		require.True(t, after[i].PlannedStart.Equal(before[i].PlannedStart))
	}
}

func TestTourRepeatedFrequency(t *testing.T) {
	eng, db := newTestEngine(t)
	setClock(eng, utc(2024, time.January, 3, 0, 0))

	tour := seedTour(t, db, func(d *models.JobDefinition) {
		d.Options = models.DefinitionOptions{
			Tour: &models.TourOptions{Frequency: 2, BreakTimeMin: 15},
		}
	})
	cpA := seedCheckpoint(t, db, tour, 1, nil)
	cpB := seedCheckpoint(t, db, tour, 2, nil)
	cpC := seedCheckpoint(t, db, tour, 3, nil)
	cpD := seedCheckpoint(t, db, tour, 4, nil)

	anchor := utc(2024, time.January, 3, 10, 0)
	_, err := eng.materialize(context.Background(), tour, []time.Time{anchor})
	require.NoError(t, err)

	parent := instancesOf(t, db, tour.ID)[0]
	children := childrenOf(t, db, parent.ID)
	require.Len(t, children, 8)

	// Each repetition walks the first half out and the second half back:
	// A B D C, twice.
	wantOrder := []uint{cpA.ID, cpB.ID, cpD.ID, cpC.ID, cpA.ID, cpB.ID, cpD.ID, cpC.ID}
	for i, child := range children {
		require.Equal(t, wantOrder[i], child.DefinitionID, "position %d", i)
	}

	// The configured break is inserted at each repetition's midpoint: the
	// third visit starts 5m leg + 15m break after the second one ends.
	require.True(t, children[2].PlannedStart.Equal(children[1].PlannedExpiry.Add(20*time.Minute)))
	require.True(t, children[6].PlannedStart.Equal(children[5].PlannedExpiry.Add(20*time.Minute)))

	for i := 1; i < len(children); i++ {
		require.True(t, children[i].PlannedStart.After(children[i-1].PlannedStart))
	}
	require.True(t, parent.PlannedExpiry.Equal(children[7].PlannedExpiry))
}

func TestTourRoutedLayout(t *testing.T) {
	eng, db := newTestEngine(t)
	setClock(eng, utc(2024, time.January, 3, 0, 0))

	routes := &fakeRoutes{plan: &routing.Plan{
		WaypointOrder:  []int{0},
		LegDistanceM:   []float64{1200, 900},
		LegDurationSec: []float64{60, 120},
	}}
	eng.routes = routes

	tour := seedTour(t, db, func(d *models.JobDefinition) {
		d.Options = models.DefinitionOptions{
			Tour: &models.TourOptions{Randomized: true},
		}
	})
	for seq := 1; seq <= 3; seq++ {
		asset := models.Asset{
			Name:      fmt.Sprintf("gate %d", seq),
			Latitude:  35.7 + float64(seq)/100,
			Longitude: 51.4 + float64(seq)/100,
		}
		require.NoError(t, db.Create(&asset).Error)
		seedCheckpoint(t, db, tour, seq, func(d *models.JobDefinition) {
			d.AssetID = &asset.ID
		})
	}

	anchor := utc(2024, time.January, 3, 9, 0)
	_, err := eng.materialize(context.Background(), tour, []time.Time{anchor})
	require.NoError(t, err)
	require.Equal(t, 1, routes.calls)

	parent := instancesOf(t, db, tour.ID)[0]
	children := childrenOf(t, db, parent.ID)
	require.Len(t, children, 3)

	// Travel times from the optimized route become the leg gaps.
	require.True(t, children[0].PlannedStart.Equal(anchor))
	require.True(t, children[1].PlannedStart.Equal(children[0].PlannedExpiry.Add(60*time.Second)))
	require.True(t, children[2].PlannedStart.Equal(children[1].PlannedExpiry.Add(120*time.Second)))
	require.True(t, parent.PlannedExpiry.Equal(children[2].PlannedExpiry))
}

func TestTourRoutingFailureKeepsParents(t *testing.T) {
	eng, db := newTestEngine(t)
	setClock(eng, utc(2024, time.January, 3, 0, 0))

	eng.routes = &fakeRoutes{err: fmt.Errorf("gateway timeout")}

	tour := seedTour(t, db, func(d *models.JobDefinition) {
		d.CronExpr = "0 9 * * *"
		d.UptoDate = utc(2024, time.January, 10, 0, 0)
		d.Options = models.DefinitionOptions{
			Tour: &models.TourOptions{Randomized: true},
		}
	})
	seedCheckpoint(t, db, tour, 1, nil)
	seedCheckpoint(t, db, tour, 2, nil)

	report, err := eng.Run(context.Background(), nil)
	require.NoError(t, err)

	var outcome DefinitionOutcome
	for _, o := range report.Outcomes {
		if o.DefinitionID == tour.ID {
			outcome = o
		}
	}
	require.Equal(t, OutcomeCreated, outcome.Status)
	require.Contains(t, outcome.Message, "route optimization failed, tour children skipped")

	parents := instancesOf(t, db, tour.ID)
	require.Len(t, parents, 2)
	for _, parent := range parents {
		require.Empty(t, childrenOf(t, db, parent.ID))
	}
}

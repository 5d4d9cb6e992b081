package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskmint/internal/models"
)

func TestComputeWindowCapsLookahead(t *testing.T) {
	eng, db := newTestEngine(t)
	now := utc(2024, time.June, 1, 12, 0)
	setClock(eng, now)

	def := seedDefinition(t, db, nil)

	start, end, open, err := eng.computeWindow(def)
	require.NoError(t, err)
	require.True(t, open)
	require.True(t, start.Equal(now), "start should clamp to now, got %s", start)
	require.True(t, end.Equal(now.Add(48*time.Hour)), "end should cap at the lookahead, got %s", end)
}

func TestComputeWindowPPMUncapped(t *testing.T) {
	eng, db := newTestEngine(t)
	now := utc(2024, time.June, 1, 12, 0)
	setClock(eng, now)

	def := seedDefinition(t, db, func(d *models.JobDefinition) {
		d.Kind = models.KindPPM
		d.UptoDate = utc(2024, time.December, 1, 0, 0)
	})

	start, end, open, err := eng.computeWindow(def)
	require.NoError(t, err)
	require.True(t, open)
	require.True(t, start.Equal(now))
	require.True(t, end.Equal(def.UptoDate), "PPM end should reach upto_date, got %s", end)
}

func TestComputeWindowStartsAtWatermark(t *testing.T) {
	eng, db := newTestEngine(t)
	now := utc(2024, time.June, 1, 12, 0)
	setClock(eng, now)

	watermark := utc(2024, time.June, 3, 8, 0)
	def := seedDefinition(t, db, func(d *models.JobDefinition) {
		d.LastGeneratedAt = watermark
	})

	start, end, open, err := eng.computeWindow(def)
	require.NoError(t, err)
	require.True(t, open)
	require.True(t, start.Equal(watermark))
	require.True(t, end.Equal(watermark.Add(48*time.Hour)))
}

func TestComputeWindowExhaustedValidity(t *testing.T) {
	eng, db := newTestEngine(t)
	now := utc(2024, time.June, 1, 12, 0)
	setClock(eng, now)

	def := seedDefinition(t, db, func(d *models.JobDefinition) {
		d.UptoDate = utc(2024, time.May, 1, 0, 0)
	})

	_, _, open, err := eng.computeWindow(def)
	require.NoError(t, err)
	require.False(t, open)
}

func TestComputeWindowEditReclaimsFutureInstances(t *testing.T) {
	eng, db := newTestEngine(t)
	now := utc(2024, time.June, 1, 12, 0)
	setClock(eng, now)

	def := seedDefinition(t, db, func(d *models.JobDefinition) {
		d.LastGeneratedAt = utc(2024, time.June, 5, 8, 0)
		d.ModifiedAt = d.CreatedAt.Add(time.Hour)
	})
	checkpoint := seedDefinition(t, db, func(d *models.JobDefinition) {
		d.ParentID = def.ID
	})

	futureAssigned := models.TaskInstance{
		DefinitionID: def.ID,
		JobType:      models.JobTypeSchedule,
		PlannedStart: utc(2024, time.June, 2, 8, 0),
		Status:       models.StatusAssigned,
	}
	futureInProgress := models.TaskInstance{
		DefinitionID: def.ID,
		JobType:      models.JobTypeSchedule,
		PlannedStart: utc(2024, time.June, 3, 8, 0),
		Status:       models.StatusInProgress,
	}
	pastAssigned := models.TaskInstance{
		DefinitionID: def.ID,
		JobType:      models.JobTypeSchedule,
		PlannedStart: utc(2024, time.May, 20, 8, 0),
		Status:       models.StatusAssigned,
	}
	childFuture := models.TaskInstance{
		DefinitionID: checkpoint.ID,
		JobType:      models.JobTypeSchedule,
		PlannedStart: utc(2024, time.June, 2, 8, 30),
		Status:       models.StatusAssigned,
	}
	require.NoError(t, db.Create(&futureAssigned).Error)
	require.NoError(t, db.Create(&futureInProgress).Error)
	require.NoError(t, db.Create(&pastAssigned).Error)
	require.NoError(t, db.Create(&childFuture).Error)
	require.NoError(t, db.Create(&models.TaskInstanceDetail{
		InstanceID: futureAssigned.ID,
		SeqNo:      1,
		Question:   "pressure within range?",
	}).Error)

	start, _, open, err := eng.computeWindow(def)
	require.NoError(t, err)
	require.True(t, open)
	// An edit resets the watermark so the remaining window regenerates.
	require.True(t, start.Equal(now))

	remaining := instancesOf(t, db, def.ID)
	require.Len(t, remaining, 2)
	require.True(t, remaining[0].PlannedStart.Equal(pastAssigned.PlannedStart))
	require.True(t, remaining[1].PlannedStart.Equal(futureInProgress.PlannedStart))

	require.Empty(t, instancesOf(t, db, checkpoint.ID), "checkpoint instances should be purged with the parent")
	require.Empty(t, detailsOf(t, db, futureAssigned.ID), "detail rows should cascade")
}

func TestComputeWindowEvaluatesDefinitionTimezone(t *testing.T) {
	eng, db := newTestEngine(t)
	// 01:00 UTC is already 03:00 at UTC+2.
	now := utc(2024, time.June, 1, 1, 0)
	setClock(eng, now)

	def := seedDefinition(t, db, func(d *models.JobDefinition) {
		d.TZOffsetMin = 120
	})

	start, _, open, err := eng.computeWindow(def)
	require.NoError(t, err)
	require.True(t, open)

	occurrences, valid, err := Enumerate(def.CronExpr, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.True(t, valid)
	require.NotEmpty(t, occurrences)
	// 08:00 site-local is 06:00 UTC.
	require.True(t, occurrences[0].UTC().Equal(utc(2024, time.June, 1, 6, 0)))
}

package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskmint/internal/config"
	"taskmint/internal/models"
	"taskmint/internal/routing"
	"taskmint/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{
			LookaheadHours: 48,
			LockTTL:        time.Minute,
		},
		Routing: config.RoutingConfig{Timeout: time.Second},
		Mail:    config.MailConfig{AlertTo: ""},
	}
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&models.JobDefinition{},
		&models.TaskInstance{},
		&models.TaskInstanceDetail{},
		&models.Checklist{},
		&models.ChecklistItem{},
		&models.Asset{},
		&models.EscalationMatrixEntry{},
		&models.Reminder{},
	)

	eng := New(db, testConfig(), NewRepos(db), nil, nil, zap.NewNop())
	return eng, db
}

func setClock(e *Engine, at time.Time) {
	e.now = func() time.Time { return at }
}

func utc(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

// fakeRoutes is a scripted routing collaborator.
type fakeRoutes struct {
	plan  *routing.Plan
	err   error
	calls int
}

func (f *fakeRoutes) GetRoute(_ context.Context, _, _ routing.Coordinate, _ []routing.Coordinate) (*routing.Plan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

type sentMail struct {
	To      []string
	Subject string
	Body    string
}

// fakeMailer captures deliveries.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to []string, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

// seedDefinition persists a definition with sane generation fields; tests
// override what they care about through mutate.
func seedDefinition(t *testing.T, db *gorm.DB, mutate func(*models.JobDefinition)) *models.JobDefinition {
	t.Helper()

	def := &models.JobDefinition{
		Name:            "boiler room inspection",
		Kind:            models.KindTask,
		CronExpr:        "0 8 * * *",
		FromDate:        utc(2024, time.January, 1, 0, 0),
		UptoDate:        utc(2025, time.January, 1, 0, 0),
		LastGeneratedAt: utc(2024, time.January, 1, 0, 0),
		PlanDurationMin: 30,
		Enabled:         true,
		CreatedAt:       utc(2023, time.December, 1, 0, 0),
	}
	if mutate != nil {
		mutate(def)
	}
	require.NoError(t, db.Create(def).Error)
	return def
}

func instancesOf(t *testing.T, db *gorm.DB, definitionID uint) []models.TaskInstance {
	t.Helper()
	var out []models.TaskInstance
	require.NoError(t, db.
		Where("definition_id = ?", definitionID).
		Order("planned_start ASC, seqno ASC").
		Find(&out).Error)
	return out
}

func detailsOf(t *testing.T, db *gorm.DB, instanceID uint) []models.TaskInstanceDetail {
	t.Helper()
	var out []models.TaskInstanceDetail
	require.NoError(t, db.
		Where("instance_id = ?", instanceID).
		Order("seqno ASC").
		Find(&out).Error)
	return out
}

func uintPtr(v uint) *uint { return &v }

func (f *fakeMailer) deliveries() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.sent))
	copy(out, f.sent)
	return out
}

package reminder

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminderd/config"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/internal/repository/memory"
	"github.com/jwalitptl/reminderd/internal/service/escalation"
	"github.com/jwalitptl/reminderd/pkg/delivery"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("reminderd_test", "reminder")

type nullDelivery struct{}

func (nullDelivery) Emit(context.Context, delivery.Payload) error              { return nil }
func (nullDelivery) EmitAt(context.Context, delivery.Payload, time.Time) error { return nil }
func (nullDelivery) CancelAll(context.Context, uuid.UUID) error                { return nil }

type recordingInvalidator struct {
	mu   sync.Mutex
	days []time.Time
}

func (r *recordingInvalidator) InvalidateDay(day time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days = append(r.days, day)
}

type fixture struct {
	service    *Service
	engine     *escalation.Engine
	medicines  repository.MedicineRepository
	records    repository.DoseRecordRepository
	clock      clockwork.FakeClock
	invalidate *recordingInvalidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))
	cfg := config.EscalationConfig{
		LevelInterval:    20 * time.Second,
		MaxLevel:         5,
		DismissCooldown:  20 * time.Second,
		NotifyMinSpacing: 5 * time.Second,
	}
	engine := escalation.NewEngine(cfg, clock, nullDelivery{}, nil, log, testMetrics)

	medicines := memory.NewMedicineRepository()
	records := memory.NewDoseRecordRepository()
	invalidate := &recordingInvalidator{}
	svc := NewService(medicines, records, engine, clock, invalidate, log)
	return &fixture{
		service:    svc,
		engine:     engine,
		medicines:  medicines,
		records:    records,
		clock:      clock,
		invalidate: invalidate,
	}
}

func (f *fixture) addMedicine(t *testing.T) *model.Medicine {
	t.Helper()
	m := &model.Medicine{
		ID:       uuid.New(),
		Name:     "Aspirin",
		Weekdays: model.Weekdays{1, 2, 3, 4, 5, 6, 7},
		Hour:     8,
		Minute:   0,
		Active:   true,
	}
	require.NoError(t, f.medicines.Create(context.Background(), m))
	return m
}

func (f *fixture) openSession(t *testing.T, m *model.Medicine) {
	t.Helper()
	require.NoError(t, f.engine.Start(&model.PendingReminder{
		ID:          uuid.New(),
		Medicine:    m,
		ScheduledAt: f.clock.Now(),
		Level:       model.LevelMin,
		State:       model.ReminderStateActive,
		CreatedAt:   f.clock.Now(),
	}))
}

func TestConfirmTakenRequiresPhoto(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t)
	f.openSession(t, m)
	defer f.engine.Shutdown()

	_, err := f.service.ConfirmTaken(context.Background(), m.ID, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPhotoRequired))

	// The rejected confirmation left no trace.
	records, listErr := f.records.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, records)
	assert.Len(t, f.engine.Pending(), 1)
}

func TestConfirmTakenCreatesOneRecordAndResolves(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t)
	f.openSession(t, m)

	record, err := f.service.ConfirmTaken(context.Background(), m.ID, "photos/aspirin-0602.jpg")
	require.NoError(t, err)
	assert.Equal(t, m.ID, record.MedicineID)
	assert.Equal(t, f.clock.Now(), record.TakenAt)
	require.NotNil(t, record.PhotoRef)
	assert.Equal(t, "photos/aspirin-0602.jpg", *record.PhotoRef)

	records, err := f.records.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	assert.Empty(t, f.engine.Pending())
	assert.Len(t, f.invalidate.days, 1)
}

func TestConfirmTakenWithoutOpenSession(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t)

	// Taking a dose before the reminder fires is allowed; the record simply
	// pre-satisfies the slot.
	record, err := f.service.ConfirmTaken(context.Background(), m.ID, "photos/early.jpg")
	require.NoError(t, err)
	assert.Equal(t, m.ID, record.MedicineID)
}

func TestConfirmTakenUnknownMedicine(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ConfirmTaken(context.Background(), uuid.New(), "photos/x.jpg")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestNotYetDismissesSession(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t)
	f.openSession(t, m)
	defer f.engine.Shutdown()

	require.NoError(t, f.service.NotYet(context.Background(), m.ID))

	require.Eventually(t, func() bool {
		pending := f.service.Pending(context.Background())
		return len(pending) == 1 && pending[0].State == model.ReminderStateSnoozed
	}, 2*time.Second, 5*time.Millisecond)

	// No record was created: "not yet" is not an acknowledgment.
	records, err := f.records.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNotYetWithoutSession(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t)

	err := f.service.NotYet(context.Background(), m.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

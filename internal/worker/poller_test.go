package worker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminderd/config"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository/memory"
	"github.com/jwalitptl/reminderd/internal/service/detector"
	"github.com/jwalitptl/reminderd/internal/service/escalation"
	"github.com/jwalitptl/reminderd/pkg/delivery"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("reminderd_test", "worker")

type nullDelivery struct{}

func (nullDelivery) Emit(context.Context, delivery.Payload) error              { return nil }
func (nullDelivery) EmitAt(context.Context, delivery.Payload, time.Time) error { return nil }
func (nullDelivery) CancelAll(context.Context, uuid.UUID) error                { return nil }

func TestRunPassOpensSessionsForDueMedicines(t *testing.T) {
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	// Monday 08:03, three minutes past an 08:00 slot.
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 8, 3, 0, 0, time.UTC))

	escCfg := config.EscalationConfig{
		LevelInterval:    20 * time.Second,
		MaxLevel:         5,
		DismissCooldown:  20 * time.Second,
		NotifyMinSpacing: 5 * time.Second,
	}
	engine := escalation.NewEngine(escCfg, clock, nullDelivery{}, nil, log, testMetrics)
	defer engine.Shutdown()

	det := detector.New(config.DetectorConfig{
		GraceWindow:   5 * time.Minute,
		DoseTolerance: 30 * time.Minute,
	}, log, testMetrics)

	medicines := memory.NewMedicineRepository()
	records := memory.NewDoseRecordRepository()

	due := &model.Medicine{
		ID:       uuid.New(),
		Name:     "Aspirin",
		Weekdays: model.Weekdays{2},
		Hour:     8,
		Minute:   0,
		Active:   true,
	}
	notYet := &model.Medicine{
		ID:       uuid.New(),
		Name:     "Ibuprofen",
		Weekdays: model.Weekdays{2},
		Hour:     21,
		Minute:   0,
		Active:   true,
	}
	require.NoError(t, medicines.Create(context.Background(), due))
	require.NoError(t, medicines.Create(context.Background(), notYet))

	p := NewPoller(det, engine, medicines, records, clock, 15*time.Second, log)
	p.RunPass(context.Background())

	pending := engine.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, due.ID, pending[0].Medicine.ID)

	// A second pass over unchanged inputs opens nothing new.
	p.RunPass(context.Background())
	assert.Len(t, engine.Pending(), 1)
}

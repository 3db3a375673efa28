package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminderd/config"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/internal/repository/memory"
	"github.com/jwalitptl/reminderd/internal/service/escalation"
	reminderService "github.com/jwalitptl/reminderd/internal/service/reminder"
	"github.com/jwalitptl/reminderd/pkg/delivery"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("reminderd_test", "reminder_handler")

type nullDelivery struct{}

func (nullDelivery) Emit(context.Context, delivery.Payload) error              { return nil }
func (nullDelivery) EmitAt(context.Context, delivery.Payload, time.Time) error { return nil }
func (nullDelivery) CancelAll(context.Context, uuid.UUID) error                { return nil }

type testEnv struct {
	router    *gin.Engine
	engine    *escalation.Engine
	medicines repository.MedicineRepository
	clock     clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
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
	svc := reminderService.NewService(medicines, records, engine, clock, nil, log)

	r := gin.New()
	NewHandler(svc, engine).RegisterRoutes(r.Group("/api/v1"))
	return &testEnv{router: r, engine: engine, medicines: medicines, clock: clock}
}

func (e *testEnv) addMedicineWithSession(t *testing.T) *model.Medicine {
	t.Helper()
	m := &model.Medicine{
		ID:       uuid.New(),
		Name:     "Aspirin",
		Weekdays: model.Weekdays{1, 2, 3, 4, 5, 6, 7},
		Hour:     8,
		Active:   true,
	}
	require.NoError(t, e.medicines.Create(context.Background(), m))
	require.NoError(t, e.engine.Start(&model.PendingReminder{
		ID:          uuid.New(),
		Medicine:    m,
		ScheduledAt: e.clock.Now(),
		Level:       model.LevelMin,
		State:       model.ReminderStateActive,
		CreatedAt:   e.clock.Now(),
	}))
	return m
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestListPending(t *testing.T) {
	env := newTestEnv(t)
	m := env.addMedicineWithSession(t)
	defer env.engine.Shutdown()

	w := env.do(t, http.MethodGet, "/api/v1/reminders/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Medicine struct {
				ID string `json:"id"`
			} `json:"medicine"`
			Level int    `json:"level"`
			State string `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, m.ID.String(), resp.Data[0].Medicine.ID)
	assert.Equal(t, 1, resp.Data[0].Level)
	assert.Equal(t, "active", resp.Data[0].State)
}

func TestConfirmRequiresPhoto(t *testing.T) {
	env := newTestEnv(t)
	m := env.addMedicineWithSession(t)
	defer env.engine.Shutdown()

	w := env.do(t, http.MethodPost, "/api/v1/reminders/"+m.ID.String()+"/confirm", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, env.engine.Pending(), 1)
}

func TestConfirmResolvesSession(t *testing.T) {
	env := newTestEnv(t)
	m := env.addMedicineWithSession(t)

	w := env.do(t, http.MethodPost, "/api/v1/reminders/"+m.ID.String()+"/confirm", gin.H{
		"photo_ref": "photos/aspirin.jpg",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, env.engine.Pending())
}

func TestDismissWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	m := env.addMedicineWithSession(t)
	env.engine.Supersede(m.ID)

	w := env.do(t, http.MethodPost, "/api/v1/reminders/"+m.ID.String()+"/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.addMedicineWithSession(t)
	defer env.engine.Shutdown()

	w := env.do(t, http.MethodPost, "/api/v1/lifecycle/background", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/lifecycle/foreground", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

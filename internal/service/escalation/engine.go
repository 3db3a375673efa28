package escalation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jwalitptl/reminderd/config"
	"github.com/jwalitptl/reminderd/internal/email"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/pkg/delivery"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

// Engine owns the set of open escalation sessions, at most one per medicine.
// The delivery handle is injected per engine instead of living in a global
// manager.
type Engine struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session // keyed by medicine ID

	cfg      config.EscalationConfig
	clock    clockwork.Clock
	delivery delivery.Service
	alerts   email.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewEngine(
	cfg config.EscalationConfig,
	clock clockwork.Clock,
	dlv delivery.Service,
	alerts email.Service,
	log *logger.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		sessions: make(map[uuid.UUID]*session),
		cfg:      cfg,
		clock:    clock,
		delivery: dlv,
		alerts:   alerts,
		logger:   log.WithComponent("escalation"),
		metrics:  m,
	}
}

// Start opens a session for a freshly-due reminder. A second open session for
// the same medicine is refused with DuplicateSession; callers treat that as
// routine, not an error to surface.
func (e *Engine) Start(reminder *model.PendingReminder) error {
	e.mu.Lock()
	if existing, ok := e.sessions[reminder.Medicine.ID]; ok && existing.snapshot().Open() {
		e.mu.Unlock()
		return apperrors.DuplicateSession(reminder.Medicine.Name)
	}

	s := newSession(
		reminder,
		e.cfg,
		e.clock,
		e.delivery,
		e.logger,
		e.metrics,
		e.notifyMaxLevel,
		e.remove,
	)
	e.sessions[reminder.Medicine.ID] = s
	e.mu.Unlock()

	e.metrics.RemindersStarted.Inc()
	s.start()
	return nil
}

// Resolve is called by the acknowledgment gate after the photo requirement is
// met. All channel loops stop atomically; deferred notifications are
// retracted.
func (e *Engine) Resolve(medicineID uuid.UUID) (*model.PendingReminder, error) {
	s := e.get(medicineID)
	if s == nil {
		return nil, apperrors.NewNotFound("reminder session", nil)
	}

	s.mu.Lock()
	s.reminder.PhotoCaptured = true
	s.mu.Unlock()

	if !s.finish(model.ReminderStateResolved) {
		return nil, apperrors.NewNotFound("reminder session", nil)
	}
	e.metrics.RemindersResolved.Inc()
	return s.snapshot(), nil
}

// Dismiss routes a "not yet" response into the cool-down path.
func (e *Engine) Dismiss(medicineID uuid.UUID) error {
	s := e.get(medicineID)
	if s == nil {
		return apperrors.NewNotFound("reminder session", nil)
	}
	if !s.dismiss() {
		return apperrors.NewNotFound("reminder session", nil)
	}
	e.metrics.Dismissals.Inc()
	return nil
}

// Supersede force-cancels the session for a medicine that was deleted or
// deactivated. No Resolved transition, no dose record.
func (e *Engine) Supersede(medicineID uuid.UUID) {
	s := e.get(medicineID)
	if s == nil {
		return
	}
	if s.finish(model.ReminderStateCanceled) {
		e.metrics.RemindersCanceled.Inc()
	}
}

// SupersedeStale tears down sessions whose scheduled slot belongs to an
// earlier calendar day. Called by the detector loop on every pass.
func (e *Engine) SupersedeStale(now time.Time) {
	for _, s := range e.list() {
		r := s.snapshot()
		if !r.Open() {
			continue
		}
		y1, m1, d1 := r.ScheduledAt.Date()
		y2, m2, d2 := now.Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			e.logger.Info("superseding stale reminder", "medicine", r.Medicine.Name, "scheduled_at", r.ScheduledAt)
			if s.finish(model.ReminderStateCanceled) {
				e.metrics.RemindersCanceled.Inc()
			}
		}
	}
}

// Open returns the open reminders keyed by medicine ID, the shape the
// detector's idempotence check wants.
func (e *Engine) Open() map[uuid.UUID]*model.PendingReminder {
	out := make(map[uuid.UUID]*model.PendingReminder)
	for _, s := range e.list() {
		r := s.snapshot()
		if r.Open() {
			out[r.Medicine.ID] = r
		}
	}
	return out
}

// Pending lists open reminders ordered by scheduled time for the API surface.
func (e *Engine) Pending() []*model.PendingReminder {
	var out []*model.PendingReminder
	for _, s := range e.list() {
		r := s.snapshot()
		if r.Open() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

// EnterBackground degrades every open session to deferred notifications.
func (e *Engine) EnterBackground(ctx context.Context) {
	for _, s := range e.list() {
		s.enterBackground(ctx)
	}
}

// EnterForeground reconciles after a resume: deferred items are retracted and
// live loops restart at their current levels.
func (e *Engine) EnterForeground(ctx context.Context) {
	for _, s := range e.list() {
		s.enterForeground(ctx)
	}
}

// Shutdown cancels every open session.
func (e *Engine) Shutdown() {
	for _, s := range e.list() {
		s.finish(model.ReminderStateCanceled)
	}
}

func (e *Engine) get(medicineID uuid.UUID) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[medicineID]
}

func (e *Engine) list() []*session {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, s)
	}
	return out
}

func (e *Engine) remove(s *session) {
	r := s.snapshot()
	e.mu.Lock()
	if current, ok := e.sessions[r.Medicine.ID]; ok && current == s {
		delete(e.sessions, r.Medicine.ID)
	}
	e.mu.Unlock()
}

func (e *Engine) notifyMaxLevel(r *model.PendingReminder) {
	if e.alerts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.alerts.SendEscalationAlert(ctx, r.Medicine.Name, r.Level, r.CreatedAt); err != nil {
		e.logger.Error(err, "failed to send caregiver alert", "medicine", r.Medicine.Name)
	}
}

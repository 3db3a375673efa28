package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/reminderd/config"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/pkg/delivery"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

var liveChannels = []delivery.Channel{
	delivery.ChannelSound,
	delivery.ChannelHaptic,
	delivery.ChannelFlash,
	delivery.ChannelNotify,
}

// Deferred notification offsets used while backgrounded, taken from the
// source: a dense initial burst, then a one-minute cadence up to half an
// hour.
var backgroundOffsets = buildBackgroundOffsets()

func buildBackgroundOffsets() []time.Duration {
	offsets := []time.Duration{
		10 * time.Second, 25 * time.Second, 45 * time.Second,
		70 * time.Second, 100 * time.Second, 135 * time.Second,
		175 * time.Second, 220 * time.Second, 270 * time.Second,
		325 * time.Second,
	}
	for i := 11; i <= 30; i++ {
		offsets = append(offsets, time.Duration(i)*time.Minute)
	}
	return offsets
}

// session owns one PendingReminder from creation to terminal state. Every
// transition goes through s.mu; once a terminal state is entered, any timer
// event that fires afterwards observes it and no-ops.
type session struct {
	mu       sync.Mutex
	reminder *model.PendingReminder

	cfg      config.EscalationConfig
	clock    clockwork.Clock
	delivery delivery.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics

	queue         eventQueue
	lastEmit      map[delivery.Channel]time.Time
	notifyLimiter *rate.Limiter
	seq           int
	background    bool
	alerted       bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// onMaxLevel fires once when the session first reaches the top level.
	onMaxLevel func(reminder *model.PendingReminder)
	// onTerminal lets the engine drop its reference.
	onTerminal func(s *session)
}

func newSession(
	reminder *model.PendingReminder,
	cfg config.EscalationConfig,
	clock clockwork.Clock,
	dlv delivery.Service,
	log *logger.Logger,
	m *metrics.Metrics,
	onMaxLevel func(*model.PendingReminder),
	onTerminal func(*session),
) *session {
	return &session{
		reminder:      reminder,
		cfg:           cfg,
		clock:         clock,
		delivery:      dlv,
		logger:        log.WithFields(map[string]interface{}{"session_id": reminder.ID.String(), "medicine": reminder.Medicine.Name}),
		metrics:       m,
		lastEmit:      make(map[delivery.Channel]time.Time),
		notifyLimiter: rate.NewLimiter(rate.Every(cfg.NotifyMinSpacing), 1),
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		onMaxLevel:    onMaxLevel,
		onTerminal:    onTerminal,
	}
}

// start schedules the initial burst and launches the run loop.
func (s *session) start() {
	s.mu.Lock()
	now := s.clock.Now()
	s.scheduleActiveLocked(now)
	if s.cfg.AutoResolveAfter > 0 {
		s.queue.push(event{kind: eventAutoResolve, at: now.Add(s.cfg.AutoResolveAfter)})
	}
	s.mu.Unlock()

	s.metrics.EscalationLevel.WithLabelValues(s.reminder.Medicine.Name).Set(float64(s.reminder.Level))
	s.logger.Info("reminder session opened", "scheduled_at", s.reminder.ScheduledAt)
	go s.run()
}

// scheduleActiveLocked arms every live channel for immediate emission and the
// next level climb. Caller holds s.mu.
func (s *session) scheduleActiveLocked(now time.Time) {
	for _, ch := range liveChannels {
		s.queue.push(event{kind: eventEmit, channel: ch, at: now})
	}
	if s.reminder.Level < s.cfg.MaxLevel {
		s.queue.push(event{kind: eventLevelUp, at: now.Add(s.cfg.LevelInterval)})
	}
}

func (s *session) run() {
	for {
		s.mu.Lock()
		if !s.reminder.Open() {
			s.mu.Unlock()
			return
		}
		next, ok := s.queue.peek()
		now := s.clock.Now()
		s.mu.Unlock()

		var timer clockwork.Timer
		var timerC <-chan time.Time
		if ok {
			wait := next.at.Sub(now)
			if wait < 0 {
				wait = 0
			}
			timer = s.clock.NewTimer(wait)
			timerC = timer.Chan()
		}

		select {
		case <-s.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
			s.emit(s.handleDue())
		}
	}
}

// handleDue processes every event whose time has come and returns the
// payloads to emit. Emission itself happens outside the lock so a concurrent
// resolve is never blocked by delivery.
func (s *session) handleDue() []delivery.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reminder.Open() {
		return nil
	}

	now := s.clock.Now()
	var out []delivery.Payload
	for _, e := range s.queue.popDue(now) {
		switch e.kind {
		case eventEmit:
			if s.reminder.State != model.ReminderStateActive || s.background {
				continue
			}
			if p, ok := s.emitLocked(e.channel, now); ok {
				out = append(out, p)
			}
		case eventLevelUp:
			if s.reminder.State != model.ReminderStateActive || s.background {
				continue
			}
			s.escalateLocked(now)
		case eventResume:
			if s.reminder.State == model.ReminderStateSnoozed {
				s.reminder.State = model.ReminderStateActive
				s.logger.Info("cool-down elapsed, reminder re-entering active", "level", s.reminder.Level)
				s.scheduleActiveLocked(now)
			}
		case eventAutoResolve:
			s.logger.Warn("auto-resolve ceiling reached, tearing session down")
			go s.finish(model.ReminderStateCanceled)
			return out
		}
	}
	return out
}

// emitLocked applies the floor and spacing invariants, then builds the
// payload and re-arms the channel at the current level's cadence.
func (s *session) emitLocked(ch delivery.Channel, now time.Time) (delivery.Payload, bool) {
	cad := s.cadence(ch)
	if last, ok := s.lastEmit[ch]; ok && now.Sub(last) < cad.Floor {
		s.metrics.NotificationsSuppressed.WithLabelValues(string(ch)).Inc()
		s.queue.push(event{kind: eventEmit, channel: ch, at: last.Add(cad.Floor)})
		return delivery.Payload{}, false
	}
	if ch == delivery.ChannelNotify && !s.notifyLimiter.AllowN(now, 1) {
		s.metrics.NotificationsSuppressed.WithLabelValues(string(ch)).Inc()
		s.queue.push(event{kind: eventEmit, channel: ch, at: now.Add(s.cfg.NotifyMinSpacing)})
		return delivery.Payload{}, false
	}

	s.lastEmit[ch] = now
	s.seq++
	p := delivery.Payload{
		SessionID:    s.reminder.ID,
		MedicineID:   s.reminder.Medicine.ID,
		MedicineName: s.reminder.Medicine.Name,
		Channel:      ch,
		Message:      urgencyMessage(s.reminder.Medicine.Name, s.seq),
		Level:        s.reminder.Level,
		Seq:          s.seq,
		ScheduledAt:  s.reminder.ScheduledAt,
		EmittedAt:    now,
	}
	s.queue.push(event{kind: eventEmit, channel: ch, at: now.Add(cad.Interval(s.reminder.Level))})
	return p, true
}

func (s *session) escalateLocked(now time.Time) {
	if s.reminder.Level >= s.cfg.MaxLevel {
		return
	}
	s.reminder.Level++
	s.metrics.EscalationLevel.WithLabelValues(s.reminder.Medicine.Name).Set(float64(s.reminder.Level))
	s.logger.Info("escalation level raised", "level", s.reminder.Level)

	if s.reminder.Level >= s.cfg.MaxLevel {
		if !s.alerted && s.onMaxLevel != nil {
			s.alerted = true
			go s.onMaxLevel(s.reminder)
		}
		return
	}
	s.queue.push(event{kind: eventLevelUp, at: now.Add(s.cfg.LevelInterval)})
}

func (s *session) emit(payloads []delivery.Payload) {
	for _, p := range payloads {
		select {
		case <-s.done:
			// Resolved or canceled between scheduling and emission: nothing
			// may fire after the terminal transition.
			return
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.delivery.Emit(ctx, p); err != nil {
			s.logger.Error(err, "failed to emit notification", "channel", string(p.Channel))
		}
		cancel()
	}
}

// dismiss is the "not yet" transition: loops pause and a single cool-down is
// armed. A repeat dismiss replaces the pending cool-down rather than adding a
// second one, and the level is deliberately not reset.
func (s *session) dismiss() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reminder.Open() {
		return false
	}
	now := s.clock.Now()
	s.reminder.State = model.ReminderStateSnoozed
	s.queue.removeKind(eventEmit, eventLevelUp, eventResume)
	s.queue.push(event{kind: eventResume, at: now.Add(s.cfg.DismissCooldown)})
	s.logger.Info("reminder dismissed, cool-down armed", "level", s.reminder.Level)
	s.wakeup()
	return true
}

// finish moves the session to a terminal state. Returns false if it already
// terminated.
func (s *session) finish(state model.ReminderState) bool {
	s.mu.Lock()
	if !s.reminder.Open() {
		s.mu.Unlock()
		return false
	}
	s.reminder.State = state
	s.queue.clear()
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.done) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.delivery.CancelAll(ctx, s.reminder.ID); err != nil {
		s.logger.Error(err, "failed to retract deferred notifications")
	}

	s.metrics.EscalationLevel.DeleteLabelValues(s.reminder.Medicine.Name)
	s.logger.Info("reminder session closed", "state", string(state))
	if s.onTerminal != nil {
		s.onTerminal(s)
	}
	return true
}

// enterBackground swaps live loops for a bounded set of future-timestamped
// deferred notifications.
func (s *session) enterBackground(ctx context.Context) {
	s.mu.Lock()
	if !s.reminder.Open() || s.background {
		s.mu.Unlock()
		return
	}
	s.background = true
	s.queue.clear()
	now := s.clock.Now()

	payloads := make([]delivery.Payload, 0, len(backgroundOffsets))
	fireTimes := make([]time.Time, 0, len(backgroundOffsets))
	for _, offset := range backgroundOffsets {
		s.seq++
		payloads = append(payloads, delivery.Payload{
			SessionID:    s.reminder.ID,
			MedicineID:   s.reminder.Medicine.ID,
			MedicineName: s.reminder.Medicine.Name,
			Channel:      delivery.ChannelNotify,
			Message:      urgencyMessage(s.reminder.Medicine.Name, s.seq),
			Level:        s.reminder.Level,
			Seq:          s.seq,
			ScheduledAt:  s.reminder.ScheduledAt,
			EmittedAt:    now,
		})
		fireTimes = append(fireTimes, now.Add(offset))
	}
	s.mu.Unlock()
	s.wakeup()

	for i, p := range payloads {
		if err := s.delivery.EmitAt(ctx, p, fireTimes[i]); err != nil {
			s.logger.Error(err, "failed to schedule deferred notification")
		}
	}
	s.logger.Info("session backgrounded, deferred notifications scheduled", "count", len(payloads))
}

// enterForeground cancels not-yet-fired deferred notifications and resumes
// live loops at the current level.
func (s *session) enterForeground(ctx context.Context) {
	s.mu.Lock()
	if !s.reminder.Open() || !s.background {
		s.mu.Unlock()
		return
	}
	s.background = false
	now := s.clock.Now()
	switch s.reminder.State {
	case model.ReminderStateActive:
		s.scheduleActiveLocked(now)
		if s.cfg.AutoResolveAfter > 0 {
			if deadline := s.reminder.CreatedAt.Add(s.cfg.AutoResolveAfter); deadline.After(now) {
				s.queue.push(event{kind: eventAutoResolve, at: deadline})
			}
		}
	case model.ReminderStateSnoozed:
		s.queue.push(event{kind: eventResume, at: now.Add(s.cfg.DismissCooldown)})
	}
	s.mu.Unlock()
	s.wakeup()

	if err := s.delivery.CancelAll(ctx, s.reminder.ID); err != nil {
		s.logger.Error(err, "failed to retract deferred notifications on resume")
	}
	s.logger.Info("session foregrounded, live loops resumed", "level", s.level())
}

func (s *session) cadence(ch delivery.Channel) config.ChannelCadence {
	switch ch {
	case delivery.ChannelSound:
		return s.cfg.Sound
	case delivery.ChannelHaptic:
		return s.cfg.Haptic
	case delivery.ChannelFlash:
		return s.cfg.Flash
	default:
		return s.cfg.Notify
	}
}

func (s *session) wakeup() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) level() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminder.Level
}

// snapshot returns a copy safe to hand to callers outside the lock.
func (s *session) snapshot() *model.PendingReminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.reminder
	return &cp
}

package detector

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/reminderd/config"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

// Detector computes which reminders are due right now. It holds no state of
// its own: calling it repeatedly with unchanged inputs yields the same due
// set minus any already-open pendings.
type Detector struct {
	cfg     config.DetectorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func New(cfg config.DetectorConfig, logger *logger.Logger, m *metrics.Metrics) *Detector {
	return &Detector{
		cfg:     cfg,
		logger:  logger.WithComponent("detector"),
		metrics: m,
	}
}

// ComputeDue returns a new PendingReminder for every active medicine whose
// slot on now's calendar day has arrived within the grace window, has no
// qualifying dose record within the tolerance window, and has no open
// session. Results are ordered by scheduled time, then medicine ID.
func (d *Detector) ComputeDue(
	now time.Time,
	medicines []*model.Medicine,
	records []*model.DoseRecord,
	open map[uuid.UUID]*model.PendingReminder,
) []*model.PendingReminder {
	timer := prometheus.NewTimer(d.metrics.DetectorPassDuration)
	defer timer.ObserveDuration()

	var due []*model.PendingReminder
	for _, m := range medicines {
		if !m.Active || !m.ScheduledFor(now.Weekday()) {
			continue
		}

		slot := m.SlotFor(now)
		if slot.After(now) {
			continue
		}
		// A slot whose grace window has fully elapsed is never newly alarmed:
		// a detector pass hours late must not start retroactive sessions.
		// Already-open sessions keep escalating regardless.
		if now.Sub(slot) > d.cfg.GraceWindow {
			continue
		}

		if d.doseRecorded(m.ID, slot, records) {
			continue
		}

		if pending, ok := open[m.ID]; ok && pending.Open() {
			// One open session per medicine. A duplicate here is routine, not
			// an error.
			continue
		}

		due = append(due, &model.PendingReminder{
			ID:          uuid.New(),
			Medicine:    m,
			ScheduledAt: slot,
			Level:       model.LevelMin,
			State:       model.ReminderStateActive,
			CreatedAt:   now,
		})
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].ScheduledAt.Equal(due[j].ScheduledAt) {
			return due[i].ScheduledAt.Before(due[j].ScheduledAt)
		}
		return due[i].Medicine.ID.String() < due[j].Medicine.ID.String()
	})

	if len(due) > 0 {
		d.metrics.DetectorDueFound.Add(float64(len(due)))
		d.logger.Debug("due reminders found", "count", len(due))
	}
	return due
}

// doseRecorded reports whether some record for the medicine falls within the
// tolerance window around the slot. The window absorbs polling jitter and
// lets a slightly-early or slightly-late confirmation satisfy the slot.
func (d *Detector) doseRecorded(medicineID uuid.UUID, slot time.Time, records []*model.DoseRecord) bool {
	for _, r := range records {
		if r.MedicineID != medicineID {
			continue
		}
		diff := r.TakenAt.Sub(slot)
		if diff < 0 {
			diff = -diff
		}
		if diff <= d.cfg.DoseTolerance {
			return true
		}
	}
	return false
}

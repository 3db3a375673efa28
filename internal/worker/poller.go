package worker

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/internal/service/detector"
	"github.com/jwalitptl/reminderd/internal/service/escalation"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
	"github.com/jwalitptl/reminderd/pkg/logger"
)

// Poller drives the detector on a fixed cadence and feeds new due reminders
// into the escalation engine.
type Poller struct {
	detector  *detector.Detector
	engine    *escalation.Engine
	medicines repository.MedicineRepository
	records   repository.DoseRecordRepository
	clock     clockwork.Clock
	interval  time.Duration
	logger    *logger.Logger
}

func NewPoller(
	det *detector.Detector,
	engine *escalation.Engine,
	medicines repository.MedicineRepository,
	records repository.DoseRecordRepository,
	clock clockwork.Clock,
	interval time.Duration,
	log *logger.Logger,
) *Poller {
	return &Poller{
		detector:  det,
		engine:    engine,
		medicines: medicines,
		records:   records,
		clock:     clock,
		interval:  interval,
		logger:    log.WithComponent("poller"),
	}
}

func (p *Poller) Start(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("detector poller started", "interval", p.interval.String())
	p.RunPass(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("detector poller shutting down")
			return
		case <-ticker.Chan():
			p.RunPass(ctx)
		}
	}
}

// RunPass performs one detection cycle: stale sessions are superseded first
// so a day rollover frees the medicine for its next slot.
func (p *Poller) RunPass(ctx context.Context) {
	now := p.clock.Now()
	p.engine.SupersedeStale(now)

	medicines, err := p.medicines.List(ctx)
	if err != nil {
		p.logger.Error(err, "failed to load medicines for detection pass")
		return
	}
	records, err := p.records.List(ctx)
	if err != nil {
		p.logger.Error(err, "failed to load dose records for detection pass")
		return
	}

	due := p.detector.ComputeDue(now, medicines, records, p.engine.Open())
	for _, reminder := range due {
		if err := p.engine.Start(reminder); err != nil {
			if apperrors.IsCode(err, apperrors.ErrDuplicateSession) {
				// Lost a race with a concurrent pass; the open session wins.
				continue
			}
			p.logger.Error(err, "failed to start reminder session", "medicine", reminder.Medicine.Name)
		}
	}
}

package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/internal/service/escalation"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
	"github.com/jwalitptl/reminderd/pkg/logger"
)

// Invalidator drops cached adherence answers for a day whose record set just
// changed.
type Invalidator interface {
	InvalidateDay(day time.Time)
}

// Service is the acknowledgment gate: the only path that turns a pending
// reminder into a dose record.
type Service struct {
	medicines  repository.MedicineRepository
	records    repository.DoseRecordRepository
	engine     *escalation.Engine
	clock      clockwork.Clock
	invalidate Invalidator
	logger     *logger.Logger
}

func NewService(
	medicines repository.MedicineRepository,
	records repository.DoseRecordRepository,
	engine *escalation.Engine,
	clock clockwork.Clock,
	invalidate Invalidator,
	logger *logger.Logger,
) *Service {
	return &Service{
		medicines:  medicines,
		records:    records,
		engine:     engine,
		clock:      clock,
		invalidate: invalidate,
		logger:     logger.WithComponent("reminder"),
	}
}

// ConfirmTaken accepts a positive acknowledgment. The photo is the required
// proof of action: without it the transition is rejected and no record is
// created. The record's timestamp is the confirmation time, not the
// originally scheduled slot.
func (s *Service) ConfirmTaken(ctx context.Context, medicineID uuid.UUID, photoRef string) (*model.DoseRecord, error) {
	if photoRef == "" {
		return nil, apperrors.PhotoRequired()
	}

	medicine, err := s.medicines.Get(ctx, medicineID)
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}

	record := &model.DoseRecord{
		ID:         uuid.New(),
		MedicineID: medicine.ID,
		TakenAt:    s.clock.Now(),
		PhotoRef:   &photoRef,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create dose record: %w", err)
	}

	// A confirmation can also arrive with no open session (taking a dose
	// without waiting for the reminder); the record still counts.
	if _, err := s.engine.Resolve(medicineID); err != nil && !apperrors.IsCode(err, apperrors.ErrNotFound) {
		s.logger.Error(err, "failed to resolve reminder session", "medicine_id", medicineID.String())
	}

	if s.invalidate != nil {
		s.invalidate.InvalidateDay(record.TakenAt)
	}

	s.logger.Info("dose confirmed", "medicine", medicine.Name, "taken_at", record.TakenAt)
	return record, nil
}

// NotYet routes a negative response into the escalation engine's dismissed
// state. It is not an acknowledgment and creates no record.
func (s *Service) NotYet(ctx context.Context, medicineID uuid.UUID) error {
	if _, err := s.medicines.Get(ctx, medicineID); err != nil {
		return fmt.Errorf("failed to get medicine: %w", err)
	}
	if err := s.engine.Dismiss(medicineID); err != nil {
		return fmt.Errorf("failed to dismiss reminder: %w", err)
	}
	return nil
}

// Pending exposes the open reminders to the UI collaborator.
func (s *Service) Pending(_ context.Context) []*model.PendingReminder {
	return s.engine.Pending()
}

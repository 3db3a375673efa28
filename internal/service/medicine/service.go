package medicine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/validator"
)

// Superseder tears down any open reminder session for a medicine that is
// deleted or deactivated. Implemented by the escalation engine.
type Superseder interface {
	Supersede(medicineID uuid.UUID)
}

type Service struct {
	repo       repository.MedicineRepository
	validator  validator.Validator
	superseder Superseder
	logger     *logger.Logger
}

func NewService(repo repository.MedicineRepository, v validator.Validator, superseder Superseder, logger *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		validator:  v,
		superseder: superseder,
		logger:     logger.WithComponent("medicine"),
	}
}

func (s *Service) CreateMedicine(ctx context.Context, req *model.CreateMedicineRequest) (*model.Medicine, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("invalid medicine", err)
	}

	m := &model.Medicine{
		ID:       uuid.New(),
		Name:     req.Name,
		Weekdays: model.Weekdays(req.Weekdays),
		Hour:     req.Hour,
		Minute:   req.Minute,
		Active:   true,
	}
	if err := m.Validate(); err != nil {
		return nil, apperrors.Validation("invalid medicine", err)
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create medicine: %w", err)
	}

	s.logger.Info("medicine created", "medicine_id", m.ID.String(), "name", m.Name, "time", m.TimeString())
	return m, nil
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	return m, nil
}

func (s *Service) ListMedicines(ctx context.Context) ([]*model.Medicine, error) {
	medicines, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list medicines: %w", err)
	}
	return medicines, nil
}

func (s *Service) UpdateMedicine(ctx context.Context, id uuid.UUID, req *model.UpdateMedicineRequest) (*model.Medicine, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("invalid medicine update", err)
	}

	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}

	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Weekdays != nil {
		m.Weekdays = model.Weekdays(req.Weekdays)
	}
	if req.Hour != nil {
		m.Hour = *req.Hour
	}
	if req.Minute != nil {
		m.Minute = *req.Minute
	}
	wasActive := m.Active
	if req.Active != nil {
		m.Active = *req.Active
	}

	if err := m.Validate(); err != nil {
		return nil, apperrors.Validation("invalid medicine update", err)
	}
	m.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update medicine: %w", err)
	}

	if wasActive && !m.Active {
		s.superseder.Supersede(m.ID)
	}

	s.logger.Info("medicine updated", "medicine_id", m.ID.String())
	return m, nil
}

// DeleteMedicine removes the schedule definition. Dose records referencing it
// stay: history is user data, not owned by the schedule.
func (s *Service) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete medicine: %w", err)
	}

	s.superseder.Supersede(id)
	s.logger.Info("medicine deleted", "medicine_id", id.String())
	return nil
}

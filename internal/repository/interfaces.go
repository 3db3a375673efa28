package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/model"
)

type MedicineRepository interface {
	Create(ctx context.Context, medicine *model.Medicine) error
	Get(ctx context.Context, id uuid.UUID) (*model.Medicine, error)
	List(ctx context.Context) ([]*model.Medicine, error)
	Update(ctx context.Context, medicine *model.Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DoseRecordRepository is append-only: records are never updated or deleted
// by this service.
type DoseRecordRepository interface {
	Create(ctx context.Context, record *model.DoseRecord) error
	List(ctx context.Context) ([]*model.DoseRecord, error)
	ListByMedicine(ctx context.Context, medicineID uuid.UUID) ([]*model.DoseRecord, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*model.DoseRecord, error)
}

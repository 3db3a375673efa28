package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/model"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
)

// medicineRepository is the degraded fallback: when the database is
// unreachable the service stays usable for the current process lifetime on
// this store.
type medicineRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*model.Medicine
}

func NewMedicineRepository() *medicineRepository {
	return &medicineRepository{byID: make(map[uuid.UUID]*model.Medicine)}
}

func (r *medicineRepository) Create(_ context.Context, medicine *model.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	medicine.CreatedAt = time.Now()
	medicine.UpdatedAt = time.Now()
	cp := *medicine
	r.byID[medicine.ID] = &cp
	return nil
}

func (r *medicineRepository) Get(_ context.Context, id uuid.UUID) (*model.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NewNotFound("medicine", nil)
	}
	cp := *m
	return &cp, nil
}

func (r *medicineRepository) List(_ context.Context) ([]*model.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Medicine, 0, len(r.byID))
	for _, m := range r.byID {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *medicineRepository) Update(_ context.Context, medicine *model.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[medicine.ID]
	if !ok {
		return apperrors.NewNotFound("medicine", nil)
	}
	medicine.CreatedAt = existing.CreatedAt
	medicine.UpdatedAt = time.Now()
	cp := *medicine
	r.byID[medicine.ID] = &cp
	return nil
}

func (r *medicineRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return apperrors.NewNotFound("medicine", nil)
	}
	delete(r.byID, id)
	return nil
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/model"
)

type doseRecordRepository struct {
	mu      sync.RWMutex
	records []*model.DoseRecord
}

func NewDoseRecordRepository() *doseRecordRepository {
	return &doseRecordRepository{}
}

func (r *doseRecordRepository) Create(_ context.Context, record *model.DoseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.CreatedAt = time.Now()
	cp := *record
	r.records = append(r.records, &cp)
	return nil
}

func (r *doseRecordRepository) List(_ context.Context) ([]*model.DoseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copySorted(func(*model.DoseRecord) bool { return true }), nil
}

func (r *doseRecordRepository) ListByMedicine(_ context.Context, medicineID uuid.UUID) ([]*model.DoseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copySorted(func(rec *model.DoseRecord) bool { return rec.MedicineID == medicineID }), nil
}

func (r *doseRecordRepository) ListBetween(_ context.Context, from, to time.Time) ([]*model.DoseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copySorted(func(rec *model.DoseRecord) bool {
		return !rec.TakenAt.Before(from) && rec.TakenAt.Before(to)
	}), nil
}

func (r *doseRecordRepository) copySorted(keep func(*model.DoseRecord) bool) []*model.DoseRecord {
	out := make([]*model.DoseRecord, 0, len(r.records))
	for _, rec := range r.records {
		if keep(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out
}

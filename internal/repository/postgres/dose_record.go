package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/reminderd/internal/model"
)

type doseRecordRepository struct {
	db *sqlx.DB
}

func NewDoseRecordRepository(db *sqlx.DB) *doseRecordRepository {
	return &doseRecordRepository{db: db}
}

func (r *doseRecordRepository) Create(ctx context.Context, record *model.DoseRecord) error {
	query := `
		INSERT INTO dose_records (
			id, medicine_id, taken_at, photo_ref, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`
	record.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.MedicineID,
		record.TakenAt,
		record.PhotoRef,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dose record: %w", err)
	}
	return nil
}

func (r *doseRecordRepository) List(ctx context.Context) ([]*model.DoseRecord, error) {
	query := `
		SELECT id, medicine_id, taken_at, photo_ref, created_at
		FROM dose_records
		ORDER BY taken_at
	`
	var records []*model.DoseRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list dose records: %w", err)
	}
	return records, nil
}

func (r *doseRecordRepository) ListByMedicine(ctx context.Context, medicineID uuid.UUID) ([]*model.DoseRecord, error) {
	query := `
		SELECT id, medicine_id, taken_at, photo_ref, created_at
		FROM dose_records
		WHERE medicine_id = $1
		ORDER BY taken_at
	`
	var records []*model.DoseRecord
	if err := r.db.SelectContext(ctx, &records, query, medicineID); err != nil {
		return nil, fmt.Errorf("failed to list dose records for medicine: %w", err)
	}
	return records, nil
}

func (r *doseRecordRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.DoseRecord, error) {
	query := `
		SELECT id, medicine_id, taken_at, photo_ref, created_at
		FROM dose_records
		WHERE taken_at >= $1 AND taken_at < $2
		ORDER BY taken_at
	`
	var records []*model.DoseRecord
	if err := r.db.SelectContext(ctx, &records, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list dose records in range: %w", err)
	}
	return records, nil
}

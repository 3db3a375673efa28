package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/reminderd/internal/model"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
)

type medicineRepository struct {
	db *sqlx.DB
}

func NewMedicineRepository(db *sqlx.DB) *medicineRepository {
	return &medicineRepository{db: db}
}

func (r *medicineRepository) Create(ctx context.Context, medicine *model.Medicine) error {
	query := `
		INSERT INTO medicines (
			id, name, weekdays, hour, minute, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	medicine.CreatedAt = time.Now()
	medicine.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		medicine.ID,
		medicine.Name,
		medicine.Weekdays,
		medicine.Hour,
		medicine.Minute,
		medicine.Active,
		medicine.CreatedAt,
		medicine.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medicine: %w", err)
	}
	return nil
}

func (r *medicineRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	query := `
		SELECT id, name, weekdays, hour, minute, active,
			   created_at, updated_at
		FROM medicines
		WHERE id = $1
	`
	var medicine model.Medicine
	err := r.db.GetContext(ctx, &medicine, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("medicine", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	return &medicine, nil
}

func (r *medicineRepository) List(ctx context.Context) ([]*model.Medicine, error) {
	query := `
		SELECT id, name, weekdays, hour, minute, active,
			   created_at, updated_at
		FROM medicines
		ORDER BY created_at
	`
	var medicines []*model.Medicine
	if err := r.db.SelectContext(ctx, &medicines, query); err != nil {
		return nil, fmt.Errorf("failed to list medicines: %w", err)
	}
	return medicines, nil
}

func (r *medicineRepository) Update(ctx context.Context, medicine *model.Medicine) error {
	query := `
		UPDATE medicines
		SET name = $1, weekdays = $2, hour = $3, minute = $4, active = $5, updated_at = $6
		WHERE id = $7
	`
	medicine.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		medicine.Name,
		medicine.Weekdays,
		medicine.Hour,
		medicine.Minute,
		medicine.Active,
		medicine.UpdatedAt,
		medicine.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medicine: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("medicine", nil)
	}
	return nil
}

func (r *medicineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medicine: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("medicine", nil)
	}
	return nil
}

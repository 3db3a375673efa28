package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminderd/internal/model"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
)

func TestMedicineRepositoryCRUD(t *testing.T) {
	repo := NewMedicineRepository()
	ctx := context.Background()

	m := &model.Medicine{
		ID:       uuid.New(),
		Name:     "Aspirin",
		Weekdays: model.Weekdays{2},
		Hour:     8,
		Active:   true,
	}
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	// The store hands out copies; mutating one must not leak back.
	got.Name = "Changed"
	again, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", again.Name)

	m.Name = "Ibuprofen"
	require.NoError(t, repo.Update(ctx, m))
	got, err = repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen", got.Name)

	require.NoError(t, repo.Delete(ctx, m.ID))
	_, err = repo.Get(ctx, m.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	assert.True(t, apperrors.IsCode(repo.Delete(ctx, m.ID), apperrors.ErrNotFound))
}

func TestMedicineRepositoryUpdateMissing(t *testing.T) {
	repo := NewMedicineRepository()

	err := repo.Update(context.Background(), &model.Medicine{ID: uuid.New(), Name: "X"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestDoseRecordRepositoryListBetween(t *testing.T) {
	repo := NewDoseRecordRepository()
	ctx := context.Background()
	medID := uuid.New()
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{
		day.Add(20 * time.Hour),
		day.Add(8 * time.Hour),
		day.AddDate(0, 0, 1).Add(8 * time.Hour),
	} {
		require.NoError(t, repo.Create(ctx, &model.DoseRecord{
			ID:         uuid.New(),
			MedicineID: medID,
			TakenAt:    at,
		}))
	}

	got, err := repo.ListBetween(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Sorted ascending even though inserted out of order.
	assert.Equal(t, day.Add(8*time.Hour), got[0].TakenAt)
	assert.Equal(t, day.Add(20*time.Hour), got[1].TakenAt)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDoseRecordRepositoryListByMedicine(t *testing.T) {
	repo := NewDoseRecordRepository()
	ctx := context.Background()
	mine := uuid.New()
	theirs := uuid.New()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &model.DoseRecord{ID: uuid.New(), MedicineID: mine, TakenAt: now}))
	require.NoError(t, repo.Create(ctx, &model.DoseRecord{ID: uuid.New(), MedicineID: theirs, TakenAt: now}))

	got, err := repo.ListByMedicine(ctx, mine)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine, got[0].MedicineID)
}

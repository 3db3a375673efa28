package model

import (
	"time"

	"github.com/google/uuid"
)

// DoseRecord is an append-only confirmation that a dose was taken. Records
// are created only through the acknowledgment gate and never mutated.
type DoseRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	MedicineID uuid.UUID `db:"medicine_id" json:"medicine_id"`
	TakenAt    time.Time `db:"taken_at" json:"taken_at"`
	PhotoRef   *string   `db:"photo_ref" json:"photo_ref,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type ConfirmTakenRequest struct {
	PhotoRef string `json:"photo_ref" validate:"required"`
}

// DueStatus is the calendar surface's answer for one medicine on one day.
type DueStatus string

const (
	DueStatusTaken    DueStatus = "taken"
	DueStatusNotTaken DueStatus = "not_taken"
)

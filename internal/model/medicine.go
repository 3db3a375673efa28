package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Weekdays follow the source convention: 1=Sunday .. 7=Saturday.
const (
	WeekdayMin = 1
	WeekdayMax = 7
)

type Medicine struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Weekdays  Weekdays  `db:"weekdays" json:"weekdays"`
	Hour      int       `db:"hour" json:"hour"`
	Minute    int       `db:"minute" json:"minute"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the schedule invariants. Called on construction and on
// update; invalid medicines are never persisted.
func (m *Medicine) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(m.Weekdays) == 0 {
		return fmt.Errorf("at least one weekday is required")
	}
	seen := make(map[int]bool, len(m.Weekdays))
	for _, d := range m.Weekdays {
		if d < WeekdayMin || d > WeekdayMax {
			return fmt.Errorf("weekday %d out of range [%d,%d]", d, WeekdayMin, WeekdayMax)
		}
		if seen[d] {
			return fmt.Errorf("duplicate weekday %d", d)
		}
		seen[d] = true
	}
	if m.Hour < 0 || m.Hour > 23 {
		return fmt.Errorf("hour %d out of range [0,23]", m.Hour)
	}
	if m.Minute < 0 || m.Minute > 59 {
		return fmt.Errorf("minute %d out of range [0,59]", m.Minute)
	}
	return nil
}

// ScheduledFor reports whether the medicine has a slot on the given weekday.
func (m *Medicine) ScheduledFor(day time.Weekday) bool {
	for _, d := range m.Weekdays {
		if d == int(day)+1 {
			return true
		}
	}
	return false
}

// SlotFor returns the fire time of the medicine's slot on the calendar day
// containing t, in t's location.
func (m *Medicine) SlotFor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), m.Hour, m.Minute, 0, 0, t.Location())
}

// TimeString renders the slot as HH:MM for notification payloads.
func (m *Medicine) TimeString() string {
	return fmt.Sprintf("%02d:%02d", m.Hour, m.Minute)
}

type CreateMedicineRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Weekdays []int  `json:"weekdays" validate:"required,min=1,max=7,dive,min=1,max=7"`
	Hour     int    `json:"hour" validate:"min=0,max=23"`
	Minute   int    `json:"minute" validate:"min=0,max=59"`
}

type UpdateMedicineRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	Weekdays []int   `json:"weekdays" validate:"omitempty,min=1,max=7,dive,min=1,max=7"`
	Hour     *int    `json:"hour" validate:"omitempty,min=0,max=23"`
	Minute   *int    `json:"minute" validate:"omitempty,min=0,max=59"`
	Active   *bool   `json:"active"`
}

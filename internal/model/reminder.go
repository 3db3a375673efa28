package model

import (
	"time"

	"github.com/google/uuid"
)

// Escalation levels ramp from 1 to MaxLevel while a reminder stays
// unacknowledged.
const (
	LevelMin = 1
	LevelMax = 5
)

type ReminderState string

const (
	ReminderStateActive   ReminderState = "active"
	ReminderStateSnoozed  ReminderState = "snoozed"
	ReminderStateResolved ReminderState = "resolved"
	ReminderStateCanceled ReminderState = "canceled"
)

// PendingReminder is ephemeral: it exists only in memory between the moment
// the detector finds a due slot and the moment the reminder is resolved or
// superseded. At most one open PendingReminder exists per medicine.
type PendingReminder struct {
	ID            uuid.UUID     `json:"id"`
	Medicine      *Medicine     `json:"medicine"`
	ScheduledAt   time.Time     `json:"scheduled_at"`
	Level         int           `json:"level"`
	State         ReminderState `json:"state"`
	PhotoCaptured bool          `json:"photo_captured"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Open reports whether the reminder still needs acknowledgment.
func (r *PendingReminder) Open() bool {
	return r.State == ReminderStateActive || r.State == ReminderStateSnoozed
}

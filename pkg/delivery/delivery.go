package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Channel identifies one independent notification signal path.
type Channel string

const (
	ChannelSound  Channel = "sound"
	ChannelHaptic Channel = "haptic"
	ChannelFlash  Channel = "flash"
	ChannelNotify Channel = "notify"
)

// Topic is the broker topic a channel's emissions are published on.
func (c Channel) Topic() string {
	return "reminders." + string(c)
}

// Payload is what a delivery collaborator receives for one emission. The
// service decides when and how often to emit; rendering and transport belong
// to the subscriber.
type Payload struct {
	SessionID    uuid.UUID `json:"session_id"`
	MedicineID   uuid.UUID `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	Channel      Channel   `json:"channel"`
	Message      string    `json:"message"`
	Level        int       `json:"level"`
	Seq          int       `json:"seq"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	EmittedAt    time.Time `json:"emitted_at"`
}

// Service is the delivery collaborator handle injected into each escalation
// session. Emit is fire-and-forget; EmitAt parks the payload until fireAt;
// CancelAll retracts every not-yet-delivered deferred item of a session.
type Service interface {
	Emit(ctx context.Context, p Payload) error
	EmitAt(ctx context.Context, p Payload, fireAt time.Time) error
	CancelAll(ctx context.Context, sessionID uuid.UUID) error
}

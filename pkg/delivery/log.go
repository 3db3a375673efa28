package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/pkg/logger"
)

// logDelivery stands in when no broker is reachable. Emissions are logged so
// the escalation machinery keeps running; deferred scheduling is a no-op
// because nothing outlives the process without a broker.
type logDelivery struct {
	logger *logger.Logger
}

func NewLogDelivery(log *logger.Logger) Service {
	return &logDelivery{logger: log.WithComponent("delivery")}
}

func (d *logDelivery) Emit(_ context.Context, p Payload) error {
	d.logger.Info("emit",
		"channel", string(p.Channel),
		"medicine", p.MedicineName,
		"level", p.Level,
		"message", p.Message,
	)
	return nil
}

func (d *logDelivery) EmitAt(_ context.Context, p Payload, fireAt time.Time) error {
	d.logger.Debug("deferred emission dropped, no broker",
		"channel", string(p.Channel),
		"medicine", p.MedicineName,
		"fire_at", fireAt,
	)
	return nil
}

func (d *logDelivery) CancelAll(context.Context, uuid.UUID) error {
	return nil
}

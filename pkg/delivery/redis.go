package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/messaging"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

// DeferredKey is the sorted set holding parked notifications, scored by fire
// time (unix seconds). Members are "session:<id>:<seq>|<payload json>" so a
// whole session can be retracted by prefix.
const DeferredKey = "reminderd:deferred"

type redisDelivery struct {
	broker  messaging.Broker
	client  *redis.Client
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewRedisDelivery builds the production delivery service: immediate
// emissions go out on the broker, deferred ones are parked in Redis for the
// dispatcher worker.
func NewRedisDelivery(broker messaging.Broker, client *redis.Client, logger *logger.Logger, m *metrics.Metrics) Service {
	return &redisDelivery{
		broker:  broker,
		client:  client,
		logger:  logger.WithComponent("delivery"),
		metrics: m,
	}
}

func (d *redisDelivery) Emit(ctx context.Context, p Payload) error {
	if err := d.broker.Publish(ctx, p.Channel.Topic(), p); err != nil {
		return fmt.Errorf("failed to publish %s emission: %w", p.Channel, err)
	}
	d.metrics.NotificationsEmitted.WithLabelValues(string(p.Channel)).Inc()
	return nil
}

func (d *redisDelivery) EmitAt(ctx context.Context, p Payload, fireAt time.Time) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal deferred payload: %w", err)
	}
	member := fmt.Sprintf("%s|%s", memberPrefix(p.SessionID, p.Seq), body)
	if err := d.client.ZAdd(ctx, DeferredKey, redis.Z{
		Score:  float64(fireAt.Unix()),
		Member: member,
	}).Err(); err != nil {
		return fmt.Errorf("failed to schedule deferred notification: %w", err)
	}
	d.metrics.DeferredScheduled.Inc()
	return nil
}

func (d *redisDelivery) CancelAll(ctx context.Context, sessionID uuid.UUID) error {
	pattern := fmt.Sprintf("session:%s:*", sessionID)
	var cursor uint64
	var removed int64
	for {
		members, next, err := d.client.ZScan(ctx, DeferredKey, cursor, pattern, 200).Result()
		if err != nil {
			return fmt.Errorf("failed to scan deferred notifications: %w", err)
		}
		// ZScan interleaves members and scores.
		for i := 0; i < len(members); i += 2 {
			n, err := d.client.ZRem(ctx, DeferredKey, members[i]).Result()
			if err != nil {
				return fmt.Errorf("failed to remove deferred notification: %w", err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if removed > 0 {
		d.metrics.DeferredCanceled.Add(float64(removed))
		d.logger.Debug("retracted deferred notifications", "session_id", sessionID.String(), "count", removed)
	}
	return nil
}

func memberPrefix(sessionID uuid.UUID, seq int) string {
	return fmt.Sprintf("session:%s:%d", sessionID, seq)
}

// ParseMember splits a deferred set member back into its payload. The
// dispatcher uses this when draining due items.
func ParseMember(member string) (Payload, error) {
	idx := strings.Index(member, "|")
	if idx < 0 {
		return Payload{}, fmt.Errorf("malformed deferred member")
	}
	var p Payload
	if err := json.Unmarshal([]byte(member[idx+1:]), &p); err != nil {
		return Payload{}, fmt.Errorf("failed to unmarshal deferred payload: %w", err)
	}
	return p, nil
}

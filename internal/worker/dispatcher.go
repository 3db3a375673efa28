package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/reminderd/pkg/delivery"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/messaging"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

type DispatcherConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Dispatcher drains deferred notifications whose fire time has arrived and
// publishes them on their channel topic. It runs as its own binary so
// deferred delivery survives an API restart.
type Dispatcher struct {
	client  *redis.Client
	broker  messaging.Broker
	config  DispatcherConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(
	client *redis.Client,
	broker messaging.Broker,
	config DispatcherConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &Dispatcher{
		client:  client,
		broker:  broker,
		config:  config,
		logger:  logger.WithComponent("dispatcher"),
		metrics: metrics,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("deferred dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("deferred dispatcher shutting down")
			return
		case <-ticker.C:
			if err := d.processDue(ctx); err != nil {
				d.logger.Error(err, "failed to process deferred notifications")
			}
		}
	}
}

func (d *Dispatcher) processDue(ctx context.Context) error {
	now := time.Now()
	members, err := d.client.ZRangeByScore(ctx, delivery.DeferredKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(d.config.BatchSize),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to fetch due deferred notifications: %w", err)
	}

	for _, member := range members {
		// Remove first: a member that vanished was retracted by CancelAll
		// between fetch and dispatch, and must not be delivered.
		removed, err := d.client.ZRem(ctx, delivery.DeferredKey, member).Result()
		if err != nil {
			d.logger.Error(err, "failed to claim deferred notification")
			continue
		}
		if removed == 0 {
			continue
		}

		payload, err := delivery.ParseMember(member)
		if err != nil {
			d.metrics.DeferredFailed.Inc()
			d.logger.Error(err, "dropping malformed deferred notification")
			continue
		}

		if err := d.publish(ctx, payload); err != nil {
			d.metrics.DeferredFailed.Inc()
			d.logger.Error(err, "failed to publish deferred notification",
				"session_id", payload.SessionID.String(),
				"channel", string(payload.Channel))
			continue
		}
		d.metrics.DeferredDispatched.Inc()
	}

	return nil
}

func (d *Dispatcher) publish(ctx context.Context, payload delivery.Payload) error {
	var err error
	for attempt := 0; attempt < d.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * d.config.RetryDelay)
		}
		if err = d.broker.Publish(ctx, payload.Channel.Topic(), payload); err == nil {
			return nil
		}
	}
	return err
}

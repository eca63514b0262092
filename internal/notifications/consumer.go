package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/multierr"

	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
)

type guard interface {
	CheckAndMark(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type jobMetrics interface {
	ObserveDuration(job string, d time.Duration)
	IncSuccess(job string)
	IncFailure(job string)
}

// Consumer drains the email subscription and delivers each job over SMTP.
type Consumer struct {
	subscription *pubsub.Subscriber
	sender       sender
	guard        guard
	metrics      jobMetrics
	logg         *logger.Logger
}

// NewConsumer builds an email consumer.
func NewConsumer(subscription *pubsub.Subscriber, s sender, g guard, metrics jobMetrics, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("email subscription required")
	}
	if s == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if g == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{subscription: subscription, sender: s, guard: g, metrics: metrics, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		ctx = c.logg.WithField(ctx, "message_id", msg.ID)
		if result := c.process(ctx, msg.Data); result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, data []byte) processResult {
	start := time.Now()

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		c.logg.Error(ctx, "email.decode_failed", err)
		c.fail("")
		return processResult{ack: true}
	}
	kind := job.Kind.String()
	ctx = c.logg.WithFields(ctx, map[string]any{"job_id": job.ID.String(), "kind": kind})

	if err := job.Validate(); err != nil {
		c.logg.Error(ctx, "email.invalid_job", err)
		c.fail(kind)
		return processResult{ack: true}
	}

	duplicate, err := c.guard.CheckAndMark(ctx, job.ID.String())
	if err != nil {
		c.logg.Error(ctx, "email.idempotency_failed", err)
		return processResult{nack: true}
	}
	if duplicate {
		c.logg.Info(ctx, "email.duplicate")
		return processResult{ack: true}
	}

	msg, err := Render(job)
	if err != nil {
		c.logg.Error(ctx, "email.render_failed", err)
		c.fail(kind)
		return processResult{ack: true}
	}

	if err := c.sender.Send(ctx, msg); err != nil {
		c.logg.Error(ctx, "email.send_failed", err)
		if delErr := c.guard.Delete(ctx, job.ID.String()); delErr != nil {
			c.logg.Error(ctx, "email.idempotency_release_failed", multierr.Combine(err, delErr))
		}
		c.fail(kind)
		return processResult{nack: true}
	}

	if c.metrics != nil {
		c.metrics.ObserveDuration(kind, time.Since(start))
		c.metrics.IncSuccess(kind)
	}
	c.logg.Info(ctx, "email.sent")
	return processResult{ack: true}
}

func (c *Consumer) fail(kind string) {
	if c.metrics != nil {
		c.metrics.IncFailure(kind)
	}
}

package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
	"github.com/angelmondragon/threadhouse-backend/pkg/mailer"
)

// Dispatcher hands an email job to whatever delivers it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

type publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

type sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// QueueDispatcher publishes jobs to the email topic for the mailer worker.
type QueueDispatcher struct {
	pub  publisher
	logg *logger.Logger
}

// NewQueueDispatcher builds a dispatcher over a topic publisher.
func NewQueueDispatcher(pub publisher, logg *logger.Logger) (*QueueDispatcher, error) {
	if pub == nil {
		return nil, errors.New("email publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &QueueDispatcher{pub: pub, logg: logg}, nil
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode email job: %w", err)
	}
	msgID, err := d.pub.Publish(ctx, data, map[string]string{
		"kind":   job.Kind.String(),
		"job_id": job.ID.String(),
	})
	if err != nil {
		return fmt.Errorf("publish email job: %w", err)
	}
	d.logg.Info(d.logg.WithFields(ctx, map[string]any{
		"job_id":     job.ID.String(),
		"kind":       job.Kind.String(),
		"message_id": msgID,
	}), "email.enqueued")
	return nil
}

// DirectDispatcher renders and sends inline over SMTP. Used when no queue is configured.
type DirectDispatcher struct {
	sender sender
	logg   *logger.Logger
}

// NewDirectDispatcher builds a dispatcher that sends synchronously.
func NewDirectDispatcher(s sender, logg *logger.Logger) (*DirectDispatcher, error) {
	if s == nil {
		return nil, errors.New("mail sender required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &DirectDispatcher{sender: s, logg: logg}, nil
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	msg, err := Render(job)
	if err != nil {
		return err
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	d.logg.Info(d.logg.WithFields(ctx, map[string]any{
		"job_id": job.ID.String(),
		"kind":   job.Kind.String(),
	}), "email.sent")
	return nil
}

// LogDispatcher only logs jobs. cmd/api falls back to it in dev when neither
// Pub/Sub nor SMTP is configured.
type LogDispatcher struct {
	logg *logger.Logger
}

func NewLogDispatcher(logg *logger.Logger) *LogDispatcher {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogDispatcher{logg: logg}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
		"job_id": job.ID.String(),
		"kind":   job.Kind.String(),
	}), "email.not_delivered")
	return nil
}

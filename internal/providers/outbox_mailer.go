package providers

import (
	"context"
	"time"

	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/metrics"
	"infinite-experiment/clubhouse/internal/services"
)

// MailQueue is the part of the Redis stream the mailer writes to
type MailQueue interface {
	EnqueueMail(ctx context.Context, streamName string, item *common.MailQueueItem) error
}

// OutboxMailer writes account mail to the Redis outbox stream; the mail queue
// worker renders and delivers it. It also raises login alerts.
type OutboxMailer struct {
	queue   MailQueue
	stream  string
	metrics *metrics.MetricsRegistry
	now     func() time.Time
}

var (
	_ services.Mailer        = (*OutboxMailer)(nil)
	_ services.LoginNotifier = (*OutboxMailer)(nil)
)

func NewOutboxMailer(queue MailQueue, m *metrics.MetricsRegistry) *OutboxMailer {
	return &OutboxMailer{
		queue:   queue,
		stream:  constants.MailOutboxStream,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (o *OutboxMailer) SendActivation(ctx context.Context, email, code string) error {
	return o.enqueue(ctx, common.MailKindActivation, email, map[string]string{"code": code})
}

func (o *OutboxMailer) SendPasswordReset(ctx context.Context, email, code string) error {
	return o.enqueue(ctx, common.MailKindPasswordReset, email, map[string]string{"code": code})
}

func (o *OutboxMailer) SendPasswordResetConfirmation(ctx context.Context, email string) error {
	return o.enqueue(ctx, common.MailKindPasswordResetConfirm, email, nil)
}

func (o *OutboxMailer) NotifyLogin(ctx context.Context, event services.LoginEvent) error {
	return o.enqueue(ctx, common.MailKindLoginAlert, event.Email, map[string]string{
		"method": event.Method,
		"at":     event.At.Format(time.RFC3339),
	})
}

func (o *OutboxMailer) enqueue(ctx context.Context, kind, to string, params map[string]string) error {
	err := o.queue.EnqueueMail(ctx, o.stream, &common.MailQueueItem{
		Kind:       kind,
		To:         to,
		Params:     params,
		EnqueuedAt: o.now(),
	})
	if err != nil {
		o.metrics.ObserveMail(kind, "enqueue_error")
		return err
	}
	o.metrics.ObserveMail(kind, "enqueued")
	return nil
}

// DirectMailer renders and sends inline. It backs the service when Redis is
// not configured.
type DirectMailer struct {
	sender MailSender
}

var _ services.Mailer = (*DirectMailer)(nil)

func NewDirectMailer(sender MailSender) *DirectMailer {
	return &DirectMailer{sender: sender}
}

func (d *DirectMailer) SendActivation(ctx context.Context, email, code string) error {
	return d.deliver(ctx, &common.MailQueueItem{Kind: common.MailKindActivation, To: email, Params: map[string]string{"code": code}})
}

func (d *DirectMailer) SendPasswordReset(ctx context.Context, email, code string) error {
	return d.deliver(ctx, &common.MailQueueItem{Kind: common.MailKindPasswordReset, To: email, Params: map[string]string{"code": code}})
}

func (d *DirectMailer) SendPasswordResetConfirmation(ctx context.Context, email string) error {
	return d.deliver(ctx, &common.MailQueueItem{Kind: common.MailKindPasswordResetConfirm, To: email})
}

func (d *DirectMailer) deliver(ctx context.Context, item *common.MailQueueItem) error {
	subject, body, err := RenderMail(item)
	if err != nil {
		return err
	}
	return d.sender.Send(ctx, item.To, subject, body)
}

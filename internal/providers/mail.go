package providers

import (
	"context"
	"fmt"
	"strconv"

	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/logging"

	"github.com/wneessen/go-mail"
)

// MailSender delivers one rendered message
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RenderMail turns an outbox item into subject and plain-text body.
func RenderMail(item *common.MailQueueItem) (string, string, error) {
	switch item.Kind {
	case common.MailKindActivation:
		return "Activate your account",
			fmt.Sprintf("Your activation code is %s.\nIt expires in 10 minutes.\n", item.Params["code"]), nil
	case common.MailKindPasswordReset:
		return "Reset your password",
			fmt.Sprintf("Your password reset code is %s.\nIf you did not ask for a reset you can ignore this message.\n", item.Params["code"]), nil
	case common.MailKindPasswordResetConfirm:
		return "Your password was changed",
			"Your password was reset. Every other session has been signed out.\n", nil
	case common.MailKindLoginAlert:
		return "New sign-in to your account",
			fmt.Sprintf("A new %s sign-in happened at %s.\n", item.Params["method"], item.Params["at"]), nil
	default:
		return "", "", fmt.Errorf("unknown mail kind %q", item.Kind)
	}
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// SMTPSender sends through a single SMTP relay. Auth is PLAIN when a user is
// configured, TLS is used whenever the relay offers STARTTLS.
type SMTPSender struct {
	from string
	dial func(ctx context.Context, msgs ...*mail.Msg) error
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP port %q: %w", cfg.Port, err)
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return &SMTPSender{from: cfg.From, dial: client.DialAndSendWithContext}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %s: %w", common.MaskEmail(to), err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.dial(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", common.MaskEmail(to), err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used when
// no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, body string) error {
	logging.Info("Mail not delivered (no SMTP host)", "to", common.MaskEmail(to), "subject", subject, "bytes", len(body))
	return nil
}

package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"

	"gopkg.in/gomail.v2"

	"github.com/sirdesai22/hackathon-hub/internal/retry"
)

// Message is a single rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers one message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through an SMTP relay, retrying transient failures.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	policy retry.Policy
}

func NewSMTPSender(host string, port int, user, password, from string, policy retry.Policy) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
		policy: policy,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	err := retry.Do(ctx, s.policy, classifySMTP, func() error {
		return s.dialer.DialAndSend(m)
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", msg.To, err)
	}
	return nil
}

// classifySMTP treats 5xx replies (bad mailbox, rejected content) as permanent.
func classifySMTP(err error) retry.Action {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 500 {
		return retry.Stop
	}
	return retry.Retry
}

// LogSender only logs; used when no SMTP relay is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "email not sent, SMTP disabled", "to", msg.To, "subject", msg.Subject)
	return nil
}

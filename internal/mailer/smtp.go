package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/stafftrack/attendance/internal/config"
	mail "github.com/wneessen/go-mail"
)

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer constructs an SMTPMailer.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one plain-text message.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("mailer: empty recipient")
	}
	if !m.cfg.Configured() {
		return fmt.Errorf("mailer: smtp not configured")
	}

	msg := mail.NewMsg()
	if errFrom := msg.From(m.cfg.From); errFrom != nil {
		return fmt.Errorf("mailer: set from: %w", errFrom)
	}
	if errTo := msg.To(to); errTo != nil {
		return fmt.Errorf("mailer: set recipient: %w", errTo)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, errClient := mail.NewClient(m.cfg.Host, opts...)
	if errClient != nil {
		return fmt.Errorf("mailer: create client: %w", errClient)
	}

	if errDial := client.DialWithContext(ctx); errDial != nil {
		return fmt.Errorf("mailer: dial: %w", errDial)
	}
	defer func() {
		_ = client.Close()
	}()

	if errSend := client.Send(msg); errSend != nil {
		return fmt.Errorf("mailer: send: %w", errSend)
	}
	return nil
}

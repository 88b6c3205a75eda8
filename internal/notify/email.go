package notify

import (
	"context"
	"fmt"

	"valetcore/internal/config"
	"valetcore/internal/models"

	"github.com/wneessen/go-mail"
)

// EmailTransport delivers customer notifications over SMTP.
type EmailTransport struct {
	client *mail.Client
	from   string
}

func NewEmailClient(cfg config.SMTPConfig) (*mail.Client, error) {
	c, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return c, nil
}

func NewEmailTransport(client *mail.Client, from string) *EmailTransport {
	return &EmailTransport{client: client, from: from}
}

func (t *EmailTransport) Name() string { return "email" }

func (t *EmailTransport) Send(ctx context.Context, booking *models.Booking, msg Message) error {
	if t.client == nil {
		return fmt.Errorf("smtp client is nil")
	}
	if booking.CustomerEmail == "" {
		return fmt.Errorf("booking %s has no customer email", booking.ID)
	}

	m := mail.NewMsg()
	if err := m.From(t.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := m.To(booking.CustomerEmail); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

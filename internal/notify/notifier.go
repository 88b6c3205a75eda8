package notify

import (
	"context"
	"fmt"

	"valetcore/internal/domain"
	"valetcore/internal/metrics"
	"valetcore/internal/models"

	"github.com/rs/zerolog"
)

// Message is the rendered customer notification handed to transports.
type Message struct {
	Subject string
	Body    string
}

// Transport delivers a rendered message over one channel (telegram, email).
type Transport interface {
	Name() string
	Send(ctx context.Context, booking *models.Booking, msg Message) error
}

// Dispatcher fans a notification out to all configured transports.
// Delivery is fire-and-forget: transport failures are logged and never
// surfaced to the caller.
type Dispatcher struct {
	transports  []Transport
	feedbackURL string
	logger      *zerolog.Logger
}

func NewDispatcher(feedbackURL string, logger *zerolog.Logger, transports ...Transport) *Dispatcher {
	return &Dispatcher{
		transports:  transports,
		feedbackURL: feedbackURL,
		logger:      logger,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, booking *models.Booking, kind domain.NotificationKind) error {
	msg := d.render(booking, kind)

	for _, t := range d.transports {
		if err := t.Send(ctx, booking, msg); err != nil {
			d.logger.Error().Err(err).
				Str("transport", t.Name()).
				Str("booking_id", booking.ID).
				Str("kind", string(kind)).
				Msg("notification delivery failed")
			continue
		}
		metrics.IncNotification(t.Name())
	}
	return nil
}

// render builds the customer copy for a notification kind. The completion
// message only carries the feedback link once the invoice is paid.
func (d *Dispatcher) render(booking *models.Booking, kind domain.NotificationKind) Message {
	switch kind {
	case domain.NotifyInvoice:
		amount := booking.TotalPrice
		if booking.Invoice != nil {
			amount = booking.Invoice.Amount
		}
		return Message{
			Subject: fmt.Sprintf("Booking %s confirmed", booking.ID),
			Body: fmt.Sprintf(
				"Hi %s, your valeting appointment on %s at %s is confirmed. Your invoice total is £%.2f.",
				booking.CustomerName, booking.Date.Format("02 Jan 2006"), booking.StartTime, amount),
		}
	case domain.NotifyCompletion:
		body := fmt.Sprintf("Hi %s, your valeting service is complete. Thank you for your business!",
			booking.CustomerName)
		if booking.Invoice != nil && booking.Invoice.Paid && d.feedbackURL != "" {
			body += fmt.Sprintf(" We'd love your feedback: %s", d.feedbackURL)
		}
		return Message{
			Subject: fmt.Sprintf("Booking %s complete", booking.ID),
			Body:    body,
		}
	default:
		return Message{
			Subject: fmt.Sprintf("Booking %s update", booking.ID),
			Body: fmt.Sprintf("Hi %s, your booking is now %s (%d%% complete).",
				booking.CustomerName, booking.Status, booking.ProgressPercentage),
		}
	}
}

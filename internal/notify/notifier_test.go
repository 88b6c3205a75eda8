package notify

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	name string
	sent []Message
	err  error
}

func (t *fakeTransport) Name() string { return t.name }

func (t *fakeTransport) Send(_ context.Context, _ *models.Booking, msg Message) error {
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, msg)
	return nil
}

func notifyBooking() *models.Booking {
	issued := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	return &models.Booking{
		ID:                 "VLT-1",
		CustomerName:       "Alex",
		Date:               time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		StartTime:          "10:00",
		Status:             models.StatusConfirmed,
		TotalPrice:         120,
		ProgressPercentage: 40,
		Invoice:            &models.Invoice{Number: "INV-VLT-1", Amount: 120, IssuedAt: &issued},
	}
}

func TestDispatcherFansOut(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	a := &fakeTransport{name: "telegram"}
	b := &fakeTransport{name: "email"}
	d := NewDispatcher("", &logger, a, b)

	require.NoError(t, d.Notify(context.Background(), notifyBooking(), domain.NotifyInvoice))
	require.Len(t, a.sent, 1)
	require.Len(t, b.sent, 1)
	assert.Contains(t, a.sent[0].Body, "£120.00")
	assert.Contains(t, a.sent[0].Subject, "VLT-1")
}

func TestDispatcherSwallowsTransportErrors(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	broken := &fakeTransport{name: "telegram", err: errors.New("api down")}
	ok := &fakeTransport{name: "email"}
	d := NewDispatcher("", &logger, broken, ok)

	// one transport failing never blocks the others or the caller
	require.NoError(t, d.Notify(context.Background(), notifyBooking(), domain.NotifyUpdate))
	assert.Len(t, ok.sent, 1)
}

func TestCompletionFeedbackLinkRequiresPaidInvoice(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	tr := &fakeTransport{name: "email"}
	d := NewDispatcher("https://example.com/feedback", &logger, tr)
	ctx := context.Background()

	unpaid := notifyBooking()
	require.NoError(t, d.Notify(ctx, unpaid, domain.NotifyCompletion))
	require.Len(t, tr.sent, 1)
	assert.NotContains(t, tr.sent[0].Body, "feedback")

	paid := notifyBooking()
	paid.Invoice.Paid = true
	require.NoError(t, d.Notify(ctx, paid, domain.NotifyCompletion))
	require.Len(t, tr.sent, 2)
	assert.Contains(t, tr.sent[1].Body, "https://example.com/feedback")
}

func TestUpdateMessageCarriesProgress(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	tr := &fakeTransport{name: "email"}
	d := NewDispatcher("", &logger, tr)

	b := notifyBooking()
	b.Status = models.StatusInProgress
	require.NoError(t, d.Notify(context.Background(), b, domain.NotifyUpdate))
	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0].Body, "in-progress")
	assert.Contains(t, tr.sent[0].Body, "40%")
}

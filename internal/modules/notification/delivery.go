package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/platform/events"
	"github.com/jisr-market/jisr-backend/internal/platform/telemetry"
)

// Sender delivers a notification over one outbound channel.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// ── Sandbox senders ───────────────────────────────────────────────────────────
// They log instead of calling a provider. Swap for real email/SMS gateways by
// implementing Sender.

type logEmailSender struct{ logger *zap.Logger }

func NewLogEmailSender(logger *zap.Logger) Sender { return &logEmailSender{logger: logger} }

func (s *logEmailSender) Send(ctx context.Context, ev Event) error {
	if ev.Email == "" {
		return fmt.Errorf("recipient %s has no email address", ev.UserID)
	}
	s.logger.Info("email sent",
		zap.String("trace_id", events.TraceID(ctx)),
		zap.String("to", ev.Email),
		zap.String("subject", ev.Title),
		zap.String("notification_id", ev.NotificationID.String()),
	)
	return nil
}

type logSMSSender struct{ logger *zap.Logger }

func NewLogSMSSender(logger *zap.Logger) Sender { return &logSMSSender{logger: logger} }

func (s *logSMSSender) Send(ctx context.Context, ev Event) error {
	if ev.Phone == "" {
		return fmt.Errorf("recipient %s has no phone number", ev.UserID)
	}
	s.logger.Info("sms sent",
		zap.String("trace_id", events.TraceID(ctx)),
		zap.String("to", ev.Phone),
		zap.String("text", ev.Title),
		zap.String("notification_id", ev.NotificationID.String()),
	)
	return nil
}

// Dispatcher routes consumed events to the sender of each requested channel.
type Dispatcher struct {
	senders map[Channel]Sender
	logger  *zap.Logger
}

func NewDispatcher(senders map[Channel]Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{senders: senders, logger: logger}
}

// Handle decodes one Kafka payload and delivers it. Malformed payloads are
// dropped without error so they are not retried.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) error {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		d.logger.Error("malformed notification event", zap.Error(err))
		return nil
	}

	var failed error
	for _, ch := range ev.Channels {
		sender, ok := d.senders[ch]
		if !ok {
			d.logger.Warn("no sender for channel", zap.String("channel", string(ch)))
			continue
		}
		err := sender.Send(ctx, ev)
		telemetry.RecordNotificationSent(string(ch), err == nil)
		if err != nil {
			d.logger.Warn("delivery failed",
				zap.String("channel", string(ch)),
				zap.String("notification_id", ev.NotificationID.String()),
				zap.Error(err),
			)
			failed = err
		}
	}
	return failed
}

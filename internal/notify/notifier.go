// Package notify delivers operator alerts. The settlement path reports
// payments that can never settle, and the archiver reports failed uploads;
// both go out through every configured channel so whoever is on call sees
// them without watching logs.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Alert event types emitted by the service.
const (
	EventSettlementUnprocessable = "settlement_unprocessable"
	EventArchiveFailed           = "archive_failed"
	EventCoronation              = "coronation"
)

// Sender is a single delivery channel for operator alerts.
type Sender interface {
	// Send delivers one alert with a short title and a message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs (e.g. "telegram").
	Name() string
}

// Notifier fans an alert out to every configured Sender, filtered by event
// type. An empty event allow-list means every event is delivered.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. events
// restricts which event types are forwarded; pass nil to forward all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the alert to all senders if its event type is allowed.
// Each sender is attempted even when an earlier one fails; the combined
// failure is returned so callers can log it, but delivery is best-effort.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "alert filtered out",
			slog.String("event", event),
		)
		return nil
	}
	if len(n.senders) == 0 {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("sender", s.Name()),
			slog.String("event", event),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: deliver %q: %w", event, errors.Join(errs...))
	}
	return nil
}

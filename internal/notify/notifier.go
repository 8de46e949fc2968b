// Package notify delivers operator alerts to external channels. The circuit
// breaker and other components emit tagged events (for example "risk_halt" or
// "execution_failed"); the Notifier filters them against the configured event
// list and fans out to every registered channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// sendTimeout bounds a single channel delivery so one slow webhook cannot
// stall an alert to the others.
const sendTimeout = 10 * time.Second

// Sender is a single delivery channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, title, message string) error
}

// Notifier fans alerts out to all registered senders. When an event allowlist
// is configured, events outside it are dropped silently; an empty allowlist
// forwards everything.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders, filtered by
// the given event types. A notifier with no senders is valid and drops
// everything, so callers never need a nil check.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		e = strings.TrimSpace(e)
		if e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers an alert tagged with an event type, subject to the
// allowlist. Delivery failures on individual channels are joined into a
// single error; the remaining channels still receive the alert.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "alert suppressed by event filter", slog.String("event", event))
		return nil
	}
	return n.deliver(ctx, title, message)
}

// NotifyAll delivers an alert to every channel regardless of the event
// filter. Used for alerts that must always reach the operator.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.deliver(ctx, title, message)
}

func (n *Notifier) deliver(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := s.Send(sendCtx, title, message)
		cancel()
		if err != nil {
			n.logger.WarnContext(ctx, "alert delivery failed",
				slog.String("channel", s.Name()),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered", slog.String("channel", s.Name()))
	}
	return errors.Join(errs...)
}

// Package notify announces published change lists to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/resourcesync/internal/config"
	"git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
	"github.com/nats-io/nats.go"
)

const flushTimeout = 5 * time.Second

// Event is the JSON payload published after a successful run.
type Event struct {
	RunID          string    `json:"run_id"`
	Mode           string    `json:"mode"`
	CapabilityList string    `json:"capabilitylist"`
	ChangeList     string    `json:"changelist,omitempty"`
	From           time.Time `json:"from,omitzero"`
	Until          time.Time `json:"until,omitzero"`
	Updated        int       `json:"updated"`
	Deleted        int       `json:"deleted"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher delivers run events.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
	Close() error
}

// Noop discards events; used when no NATS URL is configured.
type Noop struct{}

func (Noop) Publish(context.Context, *Event) error { return nil }
func (Noop) Close() error                          { return nil }

// sender is the subset of *nats.Conn used for publishing.
type sender interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// NATSPublisher publishes events as core NATS messages.
type NATSPublisher struct {
	conn    sender
	closeFn func()
	subject string
}

// New returns a NATS publisher when cfg names a server, otherwise Noop.
func New(cfg config.NotifyConfig) (Publisher, error) {
	if cfg.NATSURL == "" {
		return Noop{}, nil
	}
	return NewNATSPublisher(cfg.NATSURL, cfg.Subject)
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("resourcesync"))
	if err != nil {
		return nil, errors.NotifyFailed(subject, fmt.Errorf("connect %s: %w", url, err))
	}
	slog.Info("NATS publisher connected", logfields.URL(conn.ConnectedUrlRedacted()), logfields.Subject(subject))
	return &NATSPublisher{conn: conn, closeFn: conn.Close, subject: subject}, nil
}

func newPublisher(s sender, subject string) *NATSPublisher {
	return &NATSPublisher{conn: s, subject: subject}
}

// Publish marshals ev and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, ev *Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.NotifyFailed(p.subject, fmt.Errorf("marshal event: %w", err))
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.NotifyFailed(p.subject, err)
	}

	timeout := flushTimeout
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < timeout {
			timeout = remaining
		}
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		return errors.NotifyFailed(p.subject, err)
	}

	slog.Debug("Published run event",
		logfields.RunID(ev.RunID),
		logfields.Mode(ev.Mode),
		logfields.Subject(p.subject))
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/pipeline"
)

// BuildEvent is published after every completed build cycle.
type BuildEvent struct {
	BuildID       string    `json:"build_id"`
	Builder       string    `json:"builder"`
	Status        string    `json:"status"`
	SourceHash    string    `json:"source_hash,omitempty"`
	SphinxVersion string    `json:"sphinx_version,omitempty"`
	Release       string    `json:"release,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewBuildEvent assembles the event payload for one build cycle. b may be
// nil when the build failed before a pipeline was constructed.
func NewBuildEvent(b *pipeline.Build, err error, duration time.Duration) *BuildEvent {
	event := &BuildEvent{DurationMS: duration.Milliseconds(), Timestamp: time.Now()}
	switch {
	case err != nil:
		event.Status = "failed"
		event.Error = err.Error()
	case b != nil && b.Skipped:
		event.Status = "skipped"
	default:
		event.Status = "success"
	}
	if b != nil {
		event.BuildID = b.ID
		event.Builder = string(b.Builder)
		event.SourceHash = b.SourceHash
		event.SphinxVersion = b.SphinxVersion
		if b.Git != nil {
			event.Release = b.Git.Release
		}
	}
	return event
}

// Publisher delivers build events to interested consumers.
type Publisher interface {
	PublishBuildEvent(ctx context.Context, event *BuildEvent) error
	Close() error
}

// NoopPublisher drops all events.
type NoopPublisher struct{}

func (NoopPublisher) PublishBuildEvent(context.Context, *BuildEvent) error { return nil }
func (NoopPublisher) Close() error                                         { return nil }

// NATSPublisher publishes build events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to NATS for build event publication.
func NewNATSPublisher(natsURL, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	slog.Info("Build event publisher ready", logfields.URL(natsURL), logfields.Subject(subject))
	return &NATSPublisher{conn: conn, js: js, subject: subject}, nil
}

func (p *NATSPublisher) PublishBuildEvent(ctx context.Context, event *BuildEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}
	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}
	slog.Debug("Published build event",
		logfields.BuildID(event.BuildID), logfields.Status(event.Status))
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

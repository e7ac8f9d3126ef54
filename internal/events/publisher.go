package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher publishes Vectra events to NATS.
type Publisher struct {
	client *Client
	logger *slog.Logger
}

// NewPublisher creates a new event publisher.
func NewPublisher(client *Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// Event is the standard event envelope.
type Event struct {
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// publish is fire-and-forget; nats.Conn.Publish only buffers, so the context
// is checked once up front rather than threaded through.
func (p *Publisher) publish(ctx context.Context, subject string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if err := p.client.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	p.logger.Debug("published event", "subject", subject, "type", event.Type)
	return nil
}

// EmbedBatch publishes an embed-request event (for analytics).
func (p *Publisher) EmbedBatch(ctx context.Context, model string, count int) error {
	return p.publish(ctx, "vectra.embed.batch", Event{
		Type:      "embed.batch",
		Source:    "vectra",
		Timestamp: time.Now(),
		Data: map[string]any{
			"model": model,
			"count": count,
		},
	})
}

// DocumentCreated publishes a document creation event.
func (p *Publisher) DocumentCreated(ctx context.Context, id uuid.UUID, embedded bool) error {
	return p.publish(ctx, "vectra.document.created", Event{
		Type:      "document.created",
		Source:    "vectra",
		Timestamp: time.Now(),
		Data: map[string]any{
			"id":       id,
			"embedded": embedded,
		},
	})
}

// DocumentUpdated publishes a document update event.
func (p *Publisher) DocumentUpdated(ctx context.Context, id uuid.UUID) error {
	return p.publish(ctx, "vectra.document.updated", Event{
		Type:      "document.updated",
		Source:    "vectra",
		Timestamp: time.Now(),
		Data:      map[string]any{"id": id},
	})
}

// DocumentDeleted publishes a document deletion event.
func (p *Publisher) DocumentDeleted(ctx context.Context, id uuid.UUID) error {
	return p.publish(ctx, "vectra.document.deleted", Event{
		Type:      "document.deleted",
		Source:    "vectra",
		Timestamp: time.Now(),
		Data:      map[string]any{"id": id},
	})
}

// SearchPerformed publishes a search event (for analytics).
func (p *Publisher) SearchPerformed(ctx context.Context, resultCount int) error {
	return p.publish(ctx, "vectra.search.performed", Event{
		Type:      "search.performed",
		Source:    "vectra",
		Timestamp: time.Now(),
		Data:      map[string]any{"result_count": resultCount},
	})
}

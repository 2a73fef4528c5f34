package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	id "kindred/pkg/domain"
)

// Publisher captures structured audit events. The store write is the
// invariant: a caller must never observe an action without its entry. The
// Kafka mirror is best-effort and asynchronous; compliance tooling consumes
// the topic, but the store stays the log of record.
type Publisher struct {
	store    Store
	producer *kgo.Client
	topic    string
	logger   *slog.Logger
}

// NewPublisher constructs a Publisher. producer may be nil when Kafka is not
// configured; the mirror is simply skipped.
func NewPublisher(store Store, producer *kgo.Client, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, producer: producer, topic: topic, logger: logger}
}

// Emit persists the event, then mirrors it to Kafka.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	p.mirror(ctx, event)
	return nil
}

func (p *Publisher) mirror(ctx context.Context, event Event) {
	if p.producer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal audit event for kafka", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.ChildID.String()),
		Value: payload,
	}
	p.producer.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("audit kafka mirror failed",
				"error", err,
				"action", string(event.Action),
				"link_id", event.LinkID.String(),
			)
		}
	})
}

func (p *Publisher) ListByChild(ctx context.Context, childID id.UserID) ([]Event, error) {
	return p.store.ListByChild(ctx, childID)
}

func (p *Publisher) ListByLink(ctx context.Context, linkID id.LinkID) ([]Event, error) {
	return p.store.ListByLink(ctx, linkID)
}

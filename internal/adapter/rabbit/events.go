package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
	"github.com/Temutjin2k/dispatch-ops/pkg/rabbit"
)

const DispatchExchange = "dispatch_topic"

// publishTimeout bounds a publish made on the request path, reconnects and
// retries included.
const publishTimeout = 2 * time.Second

// EventBroker publishes committed domain events to the topic exchange and
// replays them to local subscribers.
type EventBroker struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewEventBroker(client *rabbit.RabbitMQ, exchange string, log logger.Logger) *EventBroker {
	if exchange == "" {
		exchange = DispatchExchange
	}
	return &EventBroker{
		client:   client,
		exchange: exchange,
		l:        log,
	}
}

// Setup declares the exchange. It is safe to call on every start.
func (b *EventBroker) Setup(ctx context.Context) error {
	return b.client.DeclareTopic(ctx, b.exchange)
}

// Publish sends the event with a routing key derived from its type and status.
func (b *EventBroker) Publish(ctx context.Context, e models.Event) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_event")
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := b.client.EnsureConnection(ctx); err != nil {
		metrics.RecordRabbitMQPublish("dispatch", b.exchange, err)
		return wrap.Error(ctx, err)
	}

	msg, err := encode(e)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	key := RoutingKey(e)

	err = retry(ctx, 3, 500*time.Millisecond, func() error {
		ch, err := b.client.Channel()
		if err != nil {
			return err
		}
		if err := ch.PublishWithContext(ctx, b.exchange, key, false, false, msg); err != nil {
			return fmt.Errorf("failed to publish with context: %w", err)
		}
		return nil
	})
	metrics.RecordRabbitMQPublish("dispatch", b.exchange, err)
	if err != nil {
		return wrap.Error(ctx, err)
	}

	b.l.Debug(ctx, "event published", "routing_key", key, "event_id", e.ID.String())
	return nil
}

type EventHandler func(ctx context.Context, e models.Event) error

// Consume binds a private queue to keys and hands every event to handler
// until ctx is done. The queue is re-declared after a reconnect.
func (b *EventBroker) Consume(ctx context.Context, handler EventHandler, keys ...string) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_events")
	if len(keys) == 0 {
		keys = []string{"#"}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		queue, err := b.client.DeclareBoundQueue(ctx, "", b.exchange, keys...)
		if errors.Is(err, rabbit.ErrClosed) {
			return nil
		}
		if err != nil {
			b.l.Error(ctx, "declare queue failed", err)
			if !sleep(ctx, 2*time.Second) {
				return nil
			}
			continue
		}

		ch, err := b.client.Channel()
		if err != nil {
			return nil
		}
		msgs, err := ch.Consume(queue, "", true, true, false, false, nil)
		if err != nil {
			b.l.Error(ctx, "consume failed", err)
			if !sleep(ctx, 2*time.Second) {
				return nil
			}
			continue
		}

		b.l.Info(ctx, "start consuming events", "queue", queue)

		if !b.drain(ctx, msgs, handler) {
			return nil
		}
		b.l.Warn(ctx, "message channel closed, reconnecting...")
	}
}

// drain returns false once ctx is done, true when the delivery channel closed.
func (b *EventBroker) drain(ctx context.Context, msgs <-chan amqp091.Delivery, handler EventHandler) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case d, ok := <-msgs:
			if !ok {
				return true
			}

			var e models.Event
			if err := json.Unmarshal(d.Body, &e); err != nil {
				metrics.RecordRabbitMQConsume(b.exchange, err)
				b.l.Warn(wrap.WithAction(ctx, types.ActionEventConsumeFailed), "failed to unmarshal event", "error", err.Error())
				continue
			}

			hctx := wrap.WithRequestID(ctx, d.CorrelationId)
			err := handler(hctx, e)
			metrics.RecordRabbitMQConsume(b.exchange, err)
			if err != nil {
				b.l.Error(wrap.WithAction(wrap.ErrorCtx(hctx, err), types.ActionEventConsumeFailed), "failed to handle event", err)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

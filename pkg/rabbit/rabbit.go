package rabbit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	heartbeat        = 10 * time.Second
	dialTimeout      = 3 * time.Second
	reconnectRetries = 5
)

var ErrClosed = errors.New("rabbitmq: client closed")

// RabbitMQ owns one connection and one channel. A dropped connection is
// redialed lazily by EnsureConnection.
type RabbitMQ struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	broken bool
	closed bool
	dsn    string

	log logger.Logger
}

func New(ctx context.Context, dsn string, log logger.Logger) (*RabbitMQ, error) {
	if dsn == "" {
		return nil, errors.New("rabbitmq: empty dsn")
	}
	r := &RabbitMQ{dsn: dsn, log: log}
	if err := r.dial(); err != nil {
		return nil, err
	}
	return r, nil
}

// dial opens a connection and channel and starts watching them. Callers hold
// r.mu or own r exclusively.
func (r *RabbitMQ) dial() error {
	conn, err := amqp.DialConfig(r.dsn, amqp.Config{Heartbeat: heartbeat, Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	notify := make(chan *amqp.Error, 2)
	conn.NotifyClose(notify)
	ch.NotifyClose(notify)

	r.conn, r.ch, r.broken = conn, ch, false
	go r.watch(conn, notify)
	return nil
}

// watch marks the client broken once conn or its channel goes away.
func (r *RabbitMQ) watch(conn *amqp.Connection, notify <-chan *amqp.Error) {
	closeErr := <-notify

	r.mu.Lock()
	if r.conn == conn {
		r.broken = true
	}
	closed := r.closed
	r.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), types.ActionRabbitConnectionClosed)
	switch {
	case closeErr != nil:
		r.log.Error(ctx, "rabbitmq connection lost", closeErr)
	case !closed:
		r.log.Warn(ctx, "rabbitmq channel closed by server")
	}
}

// Channel returns the current channel, or ErrClosed once Close ran. The
// channel may still die underneath; call EnsureConnection first.
func (r *RabbitMQ) Channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.ch == nil {
		return nil, ErrClosed
	}
	return r.ch, nil
}

func (r *RabbitMQ) IsConnectionClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unusable()
}

func (r *RabbitMQ) unusable() bool {
	return r.closed || r.broken || r.conn == nil || r.conn.IsClosed() || r.ch == nil || r.ch.IsClosed()
}

// EnsureConnection redials with a linear backoff when the connection is gone.
func (r *RabbitMQ) EnsureConnection(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if !r.unusable() {
		return nil
	}
	r.log.Warn(ctx, "rabbitmq connection closed, reconnecting")

	var err error
	for i := range reconnectRetries {
		if err = r.dial(); err == nil {
			r.log.Info(wrap.WithAction(ctx, types.ActionRabbitReconnected), "rabbitmq reconnected", "attempt", i+1)
			return nil
		}

		wait := time.Duration(i+1) * 2 * time.Second
		r.log.Debug(ctx, "reconnect attempt failed", "attempt", i+1, "retry_in", wait.String(), "error", err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
}

// Close closes the channel and then the connection. It gives up waiting when
// ctx is done.
func (r *RabbitMQ) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosing)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ch, conn := r.ch, r.conn
	r.ch, r.conn = nil, nil
	r.mu.Unlock()

	if ch != nil {
		if err := withContext(ctx, ch.Close); err != nil && ctx.Err() == nil {
			r.log.Error(ctx, "error closing channel", err)
		}
	}
	if conn != nil {
		if err := withContext(ctx, conn.Close); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitConnectionClosed), "rabbitmq closed")
	return nil
}

func withContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeclareTopic declares a durable topic exchange.
func (r *RabbitMQ) DeclareTopic(ctx context.Context, exchange string) error {
	if err := r.EnsureConnection(ctx); err != nil {
		return err
	}
	ch, err := r.Channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return nil
}

// DeclareBoundQueue declares a queue and binds it to exchange for every key.
// An empty name asks the broker for an exclusive, auto-deleted queue.
func (r *RabbitMQ) DeclareBoundQueue(ctx context.Context, name, exchange string, keys ...string) (string, error) {
	if err := r.EnsureConnection(ctx); err != nil {
		return "", err
	}
	ch, err := r.Channel()
	if err != nil {
		return "", err
	}

	durable, exclusive := true, false
	if name == "" {
		durable, exclusive = false, true
	}

	q, err := ch.QueueDeclare(name, durable, !durable, exclusive, false, nil)
	if err != nil {
		return "", fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return "", fmt.Errorf("failed to bind queue %s to %s: %w", q.Name, key, err)
		}
	}
	return q.Name, nil
}

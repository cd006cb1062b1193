package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/rabbit"
	"github.com/rabbitmq/amqp091-go"
)

// RoutingKey maps an event to its topic key, e.g. "order.status.DELIVERED".
func RoutingKey(e models.Event) string {
	status := strings.ToUpper(e.Status)
	switch e.Type {
	case types.EventOrderCreated, types.EventOrderAssigned, types.EventOrderStatusChanged, types.EventOrderCancelled:
		return "order.status." + status
	case types.EventDriverStatus:
		return "driver.status." + status
	case types.EventIssueReported, types.EventIssueStatus:
		return "issue." + status
	case types.EventSettingsUpdated:
		return "settings.updated"
	default:
		return "event." + strings.ToLower(e.Type.String())
	}
}

func encode(e models.Event) (amqp091.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     e.ID.String(),
		CorrelationId: e.RequestID, // для трассировки
		Type:          e.Type.String(),
		Timestamp:     e.OccurredAt,
		Body:          body,
	}, nil
}

// retry runs fn up to n times. It stops early once ctx is done or the client
// is closed, returning the last error of fn.
func retry(ctx context.Context, n int, wait time.Duration, fn func() error) error {
	var err error
	for i := range n {
		if err = fn(); err == nil || errors.Is(err, rabbit.ErrClosed) {
			return err
		}
		if i < n-1 && !sleep(ctx, wait) {
			return err
		}
	}
	return err
}

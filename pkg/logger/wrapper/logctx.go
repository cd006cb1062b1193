package wrap

import (
	"context"
	"log/slog"
)

type (
	// LogCtx is the request-scoped data every log record carries.
	LogCtx struct {
		Action    string
		UserID    string
		Role      string
		RequestID string
		OrderID   string
		DriverID  string
	}

	logCtxKeyStruct struct{}
)

var LogCtxKey = &logCtxKeyStruct{}

// Attrs lists the non-empty fields as slog attributes.
func (lc LogCtx) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 6)
	for _, kv := range [...]struct{ k, v string }{
		{"action", lc.Action},
		{"user_id", lc.UserID},
		{"role", lc.Role},
		{"request_id", lc.RequestID},
		{"order_id", lc.OrderID},
		{"driver_id", lc.DriverID},
	} {
		if kv.v != "" {
			attrs = append(attrs, slog.String(kv.k, kv.v))
		}
	}
	return attrs
}

// merge fills the empty fields of lc from base.
func (lc LogCtx) merge(base LogCtx) LogCtx {
	pick := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	return LogCtx{
		Action:    pick(lc.Action, base.Action),
		UserID:    pick(lc.UserID, base.UserID),
		Role:      pick(lc.Role, base.Role),
		RequestID: pick(lc.RequestID, base.RequestID),
		OrderID:   pick(lc.OrderID, base.OrderID),
		DriverID:  pick(lc.DriverID, base.DriverID),
	}
}

// WithLogCtx stores lc in ctx; fields left empty keep their current value.
func WithLogCtx(ctx context.Context, lc LogCtx) context.Context {
	return context.WithValue(ctx, LogCtxKey, lc.merge(FromContext(ctx)))
}

func FromContext(ctx context.Context) LogCtx {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	return lc
}

func update(ctx context.Context, fn func(*LogCtx)) context.Context {
	lc := FromContext(ctx)
	fn(&lc)
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithUser records the authenticated caller.
func WithUser(ctx context.Context, userID, role string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.UserID, lc.Role = userID, role })
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.UserID = userID })
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RequestID = requestID })
}

func WithOrderID(ctx context.Context, orderID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.OrderID = orderID })
}

func WithDriverID(ctx context.Context, driverID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.DriverID = driverID })
}

func WithAction(ctx context.Context, action string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.Action = action })
}

package wrap

import (
	"context"
	"errors"
)

// ctxError carries the LogCtx of the place where the error was first seen,
// so the HTTP boundary logs it with the originating action and order.
type ctxError struct {
	err    error
	logCtx LogCtx
}

func (e *ctxError) Error() string { return e.err.Error() }

func (e *ctxError) Unwrap() error { return e.err }

// Error wraps an error with the current LogCtx from the context.
// An error that already carries a LogCtx keeps its chain and gets the newer LogCtx.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var e *ctxError
	if errors.As(err, &e) {
		if x, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
			e.logCtx = x
		}
		return err
	}

	return &ctxError{
		err:    err,
		logCtx: FromContext(ctx),
	}
}

// ErrorCtx returns ctx with the LogCtx carried by err, or ctx unchanged when
// err has none. Values already in ctx fill the gaps.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *ctxError
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}

package ws

import (
	"context"

	"go.uber.org/zap"

	"chessrooms/internal/obslog"
)

// EmitFunc sends one outbound event on a connection.
type EmitFunc func(ctx context.Context, c *Conn, event string, payload any) error

// Interceptor wraps an EmitFunc. The hub chains interceptors explicitly in
// registration order around the raw socket write, so cross-cutting
// concerns never patch the transport itself.
type Interceptor func(next EmitFunc) EmitFunc

func chainEmit(base EmitFunc, interceptors ...Interceptor) EmitFunc {
	out := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		out = interceptors[i](out)
	}
	return out
}

// EmitLogging logs every outbound event with its session.
func EmitLogging() Interceptor {
	return func(next EmitFunc) EmitFunc {
		return func(ctx context.Context, c *Conn, event string, payload any) error {
			err := next(ctx, c, event, payload)
			if err != nil {
				obslog.L().Warn("ws_emit_error",
					zap.String("event", event),
					zap.String("session_id", c.SessionID()),
					zap.Error(err),
				)
				return err
			}
			obslog.L().Debug("ws_emit",
				zap.String("event", event),
				zap.String("session_id", c.SessionID()),
			)
			return nil
		}
	}
}

package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Middleware wraps a command (e.g. logging, timeouts). The wrapped type
// remains a Command.
type Middleware func(Command) Command

// Apply applies middlewares in order; the first in the list is the innermost.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}

// WithLogger logs every execution of the command with its duration.
func WithLogger(logger *zap.Logger) Middleware {
	return func(c Command) Command {
		return Wrap(c, func(ctx context.Context, inv *Invocation, next Action) error {
			start := time.Now()
			err := next(ctx, inv)
			fields := []zap.Field{
				zap.String("invocation", inv.ID),
				zap.String("command", c.Name()),
				zap.String("guild", inv.Caller.GuildID),
				zap.String("user", inv.Caller.UserName),
				zap.Duration("took", time.Since(start)),
			}
			if err != nil {
				logger.Warn("command failed", append(fields, zap.Error(err))...)
			} else {
				logger.Info("command executed", fields...)
			}
			return err
		})
	}
}

// WithTimeout bounds the execution stage of the command.
func WithTimeout(d time.Duration) Middleware {
	return func(c Command) Command {
		return Wrap(c, func(ctx context.Context, inv *Invocation, next Action) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, inv)
		})
	}
}

// Package middleware provides interceptors for twirl services.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/twirl-rpc/twirl"
)

// LoggingInterceptor creates an interceptor that logs each dispatch using
// slog: one line when the call starts, one when it completes, with the
// RPC identity, duration and error status.
func LoggingInterceptor(logger *slog.Logger) twirl.UnaryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, req any, info *twirl.RPCInfo, next twirl.HandlerFunc) (any, error) {
		start := time.Now()

		logger.InfoContext(ctx, "rpc started",
			slog.String("service", info.Service),
			slog.String("method", info.Method),
		)

		res, err := next(ctx, req)
		duration := time.Since(start)

		if err != nil {
			logger.ErrorContext(ctx, "rpc failed",
				slog.String("service", info.Service),
				slog.String("method", info.Method),
				slog.Duration("duration", duration),
				slog.Any("error", err),
			)
		} else {
			logger.InfoContext(ctx, "rpc completed",
				slog.String("service", info.Service),
				slog.String("method", info.Method),
				slog.Duration("duration", duration),
			)
		}

		return res, err
	}
}

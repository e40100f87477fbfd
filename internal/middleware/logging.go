package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call and
// counts it in tutorledger_rpc_requests_total. It logs the procedure, code,
// request ID and duration. Internal failures log at ERROR, other
// errors at WARN. A nil reg skips metric registration.
func LoggingInterceptor(logger *slog.Logger, reg prometheus.Registerer) connect.UnaryInterceptorFunc {
	if logger == nil {
		logger = slog.Default()
	}
	factory := promauto.With(reg)
	requests := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorledger_rpc_requests_total",
		Help: "RPC calls by procedure and result code.",
	}, []string{"procedure", "code"})
	duration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tutorledger_rpc_duration_seconds",
		Help:    "RPC latency by procedure.",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure"})

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			elapsed := time.Since(start)
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			requests.WithLabelValues(procedure, code).Inc()
			duration.WithLabelValues(procedure).Observe(elapsed.Seconds())

			attrs := []any{
				"procedure", procedure,
				"request_id", GetRequestID(ctx),
				"duration_ms", elapsed.Milliseconds(),
			}
			if err == nil {
				logger.Info("RPC ok", attrs...)
				return resp, nil
			}

			var connectErr *connect.Error
			if errors.As(err, &connectErr) && connectErr.Code() != connect.CodeInternal && connectErr.Code() != connect.CodeUnknown {
				logger.Warn("RPC error", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
			} else {
				logger.Error("RPC error", append(attrs, "code", connect.CodeOf(err), "error", err)...)
			}
			return resp, err
		}
	}
}

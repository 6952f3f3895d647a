package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"gameshelf/internal/games"
	"gameshelf/internal/logging"
	"gameshelf/internal/metrics"
	"gameshelf/internal/services"
)

// GuardOptions configures a Guard.
type GuardOptions struct {
	// Timeout bounds each upstream call. Zero disables the per-call deadline.
	Timeout time.Duration
	// RequestsPerSecond feeds the token bucket. Zero disables rate limiting.
	RequestsPerSecond float64
	Burst             int

	FailureRatio     float64
	MinRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	HalfOpenRequests uint32

	Logger *slog.Logger
}

// Guard wraps a Catalog with a per-call timeout, a token-bucket rate limiter,
// and a circuit breaker. Confirmed absences count as breaker successes.
type Guard struct {
	inner   Catalog
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewGuard wraps inner.
func NewGuard(inner Catalog, opts GuardOptions) *Guard {
	name := string(inner.Source())
	logger := logging.NewComponentLogger(opts.Logger, "catalog-guard").With(logging.String(logging.FieldSource, name))

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	failureRatio := opts.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.6
	}
	minRequests := opts.MinRequests
	if minRequests == 0 {
		minRequests = 10
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: opts.HalfOpenRequests,
		Interval:    opts.Interval,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= failureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, services.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateLabel(from), stateLabel(to)).Inc()
			if to == gobreaker.StateOpen {
				logging.WarnWithContext(logger, "circuit breaker opened", "breaker_open",
					logging.String("from", stateLabel(from)),
					logging.String(logging.FieldErrorHint, "upstream catalog is failing; calls are rejected until the breaker half-opens"),
					logging.String(logging.FieldImpact, "searches degrade to the other catalog and lookups return placeholders"),
				)
				return
			}
			logger.Info("circuit breaker state change",
				logging.String("from", stateLabel(from)),
				logging.String("to", stateLabel(to)),
			)
		},
	})

	return &Guard{
		inner:   inner,
		name:    name,
		timeout: opts.Timeout,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
}

// Source implements Catalog.
func (g *Guard) Source() games.Source { return g.inner.Source() }

// MaxBatch forwards the wrapped catalog's batch cap.
func (g *Guard) MaxBatch() int { return MaxBatch(g.inner, 0) }

// State reports the breaker state as "closed", "half-open" or "open".
func (g *Guard) State() string { return stateLabel(g.breaker.State()) }

// Search implements Catalog.
func (g *Guard) Search(ctx context.Context, query string, page, pageSize int) (Page, error) {
	return call(ctx, g, "search", func(ctx context.Context) (Page, error) {
		return g.inner.Search(ctx, query, page, pageSize)
	})
}

// Lookup implements Catalog.
func (g *Guard) Lookup(ctx context.Context, ids []int64) ([]games.Record, error) {
	return call(ctx, g, "lookup", func(ctx context.Context) ([]games.Record, error) {
		return g.inner.Lookup(ctx, ids)
	})
}

// Get implements Catalog.
func (g *Guard) Get(ctx context.Context, id int64) (games.Record, error) {
	return call(ctx, g, "get", func(ctx context.Context) (games.Record, error) {
		return g.inner.Get(ctx, id)
	})
}

func call[T any](ctx context.Context, g *Guard, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			metrics.RecordUpstream(g.name, operation, "rejected", time.Since(start))
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			return zero, services.Wrap(services.ErrRejected, g.name, operation, "rate limit", err)
		}
	}

	result, err := g.breaker.Execute(func() (any, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		value, err := fn(callCtx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = services.Wrap(services.ErrTransient, g.name, operation, "upstream timeout", err)
		}
		return value, err
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordUpstream(g.name, operation, "rejected", elapsed)
			return zero, services.Wrap(services.ErrRejected, g.name, operation, "circuit breaker", err)
		}
		if errors.Is(err, services.ErrNotFound) {
			metrics.RecordUpstream(g.name, operation, "not_found", elapsed)
		} else {
			metrics.RecordUpstream(g.name, operation, "error", elapsed)
			g.logger.Debug("upstream call failed",
				logging.String(logging.FieldOperation, operation),
				logging.Duration("latency", elapsed),
				logging.Error(err),
			)
		}
		return zero, err
	}
	metrics.RecordUpstream(g.name, operation, "ok", elapsed)
	typed, _ := result.(T)
	return typed, nil
}

func stateLabel(state gobreaker.State) string {
	return state.String()
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

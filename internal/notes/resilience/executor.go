package resilience

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sheetnotes/pkg/logger"
)

// ErrRateLimitWait ожидание лимитера прервано.
const ErrRateLimitWait = "rate limiter wait aborted"

// Config объединяет настройки исполнителя.
type Config struct {
	RequestsPerSec float64
	Burst          int
	Breaker        CircuitBreakerConfig
	Retry          RetryConfig
}

// Executor пропускает вызовы через лимитер, Circuit Breaker и, для идемпотентных вызовов, повторы.
type Executor struct {
	name    string
	limiter *rate.Limiter
	breaker *CircuitBreaker
	retry   *Retry
}

// NewExecutor создает исполнитель. RequestsPerSec <= 0 отключает лимитер.
func NewExecutor(name string, cfg Config) *Executor {
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Executor{
		name:    name,
		limiter: rate.NewLimiter(limit, burst),
		breaker: NewCircuitBreaker(name, cfg.Breaker),
		retry:   NewRetry(name, cfg.Retry),
	}
}

// Do выполняет operation. Неидемпотентные вызовы не повторяются.
func (e *Executor) Do(ctx context.Context, operation string, idempotent bool, fn func(ctx context.Context) error) error {
	log := logger.Log(ctx).With(
		zap.String("service", e.name),
		zap.String("operation", operation),
	)

	attempt := func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", ErrRateLimitWait, err)
		}
		return e.breaker.Execute(ctx, func() error { return fn(ctx) })
	}

	var err error
	if idempotent {
		err = e.retry.Execute(ctx, attempt)
	} else {
		err = attempt()
	}
	if err != nil {
		log.Debug(ctx, "operation failed", zap.Error(err))
	}
	return err
}

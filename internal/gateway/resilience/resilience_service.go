package resilience

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"gotodo/pkg/logger"
)

// LogExecuting - сообщение перед выполнением защищенной операции.
const LogExecuting = "executing operation with resilience"

// Config объединяет настройки Circuit Breaker и Retry.
type Config struct {
	CircuitBreaker CircuitBreakerConfig
	Retry          RetryConfig
	Clock          clockwork.Clock
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		CircuitBreaker: DefaultCircuitBreakerConfig(),
		Retry:          DefaultRetryConfig(),
	}
}

// ServiceResilience обеспечивает отказоустойчивость вызовов одного сервиса.
type ServiceResilience struct {
	serviceName    string
	circuitBreaker *CircuitBreaker
	retry          *Retry
}

// NewServiceResilience создает обертку отказоустойчивости для сервиса.
func NewServiceResilience(serviceName string, cfg Config) *ServiceResilience {
	return &ServiceResilience{
		serviceName:    serviceName,
		circuitBreaker: NewCircuitBreaker(serviceName, cfg.CircuitBreaker, cfg.Clock),
		retry:          NewRetry(serviceName, cfg.Retry, cfg.Clock),
	}
}

// ExecuteWithResilience выполняет операцию с повторами под защитой Circuit Breaker.
func (r *ServiceResilience) ExecuteWithResilience(ctx context.Context, operationName string, operation func() error) error {
	logger.Log(ctx).Debug(ctx, LogExecuting,
		zap.String("service", r.serviceName),
		zap.String("operation", operationName))

	return r.circuitBreaker.Execute(ctx, func() error {
		return r.retry.Execute(ctx, operation)
	})
}

// ExecuteOnce выполняет операцию без повторов, но под защитой Circuit Breaker.
// Используется для неидемпотентных запросов.
func (r *ServiceResilience) ExecuteOnce(ctx context.Context, operationName string, operation func() error) error {
	logger.Log(ctx).Debug(ctx, LogExecuting,
		zap.String("service", r.serviceName),
		zap.String("operation", operationName))

	return r.circuitBreaker.Execute(ctx, operation)
}

// State возвращает состояние Circuit Breaker.
func (r *ServiceResilience) State() CircuitState {
	return r.circuitBreaker.GetState()
}

// Execute выполняет операцию с результатом типа T.
func Execute[T any](ctx context.Context, r *ServiceResilience, operationName string, retry bool, operation func() (T, error)) (T, error) {
	var result T
	run := func() error {
		var err error
		result, err = operation()
		return err
	}

	var err error
	if retry {
		err = r.ExecuteWithResilience(ctx, operationName, run)
	} else {
		err = r.ExecuteOnce(ctx, operationName, run)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

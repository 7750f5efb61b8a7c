// Package upstream содержит HTTP клиент внешнего API на базе resty.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"gotodo/internal/gateway/config"
	"gotodo/internal/gateway/ports/upstream"
	"gotodo/internal/gateway/resilience"
	"gotodo/pkg/logger"
)

// Константы для логирования.
const (
	LogUpstreamRequest = "upstream request done"
	LogUpstreamFailed  = "upstream request failed"

	ErrorNotConfigured = "upstream base url is not configured"
)

// ErrNotConfigured возвращается, если адрес внешнего API не задан.
var ErrNotConfigured = errors.New(ErrorNotConfigured)

// Client реализует upstream.Client поверх resty с Circuit Breaker и повторами.
type Client struct {
	http       *resty.Client
	resilience *resilience.ServiceResilience
	configured bool
}

// NewClient создает клиент внешнего API.
// Повторяются только GET запросы. Отказом сервиса считается только отсутствие ответа.
func NewClient(cfg *config.UpstreamConfig, rcfg resilience.Config) *Client {
	rcfg.CircuitBreaker.IsFailure = isUnavailable
	rcfg.Retry.ShouldRetry = isUnavailable

	httpClient := resty.New().
		SetBaseURL(cfg.GetBaseURL()).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:       httpClient,
		resilience: resilience.NewServiceResilience("upstream-api", rcfg),
		configured: cfg.IsConfigured(),
	}
}

// Configured сообщает, задан ли адрес внешнего API.
func (c *Client) Configured() bool {
	return c.configured
}

// Do выполняет запрос. Ответ с любым статусом возвращается без ошибки.
func (c *Client) Do(ctx context.Context, req *upstream.Request) (*upstream.Response, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	operation := req.Method + " " + req.Path
	retry := req.Method == http.MethodGet

	return resilience.Execute(ctx, c.resilience, operation, retry, func() (*upstream.Response, error) {
		return c.do(ctx, req)
	})
}

func (c *Client) do(ctx context.Context, req *upstream.Request) (*upstream.Response, error) {
	log := logger.Log(ctx).With(
		zap.String("method", req.Method),
		zap.String("path", req.Path),
	)

	r := c.http.R().SetContext(ctx)
	if req.Token != "" {
		r.SetAuthToken(req.Token)
	}
	if req.RawQuery != "" {
		r.SetQueryString(req.RawQuery)
	}
	if len(req.Body) > 0 {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}
	if id, ok := logger.GetRequestID(ctx); ok {
		r.SetHeader(logger.RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		log.Warn(ctx, LogUpstreamFailed, zap.Error(err))
		return nil, fmt.Errorf("%w: %w", upstream.ErrUnavailable, err)
	}

	log.Debug(ctx, LogUpstreamRequest,
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", time.Since(start)))

	return &upstream.Response{
		Status:      resp.StatusCode(),
		Body:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}

func isUnavailable(err error) bool {
	return errors.Is(err, upstream.ErrUnavailable)
}

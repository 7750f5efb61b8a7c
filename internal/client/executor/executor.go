// Package executor выполняет одиночные HTTP вызовы к внешнему API.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"gotodo/pkg/logger"
)

// Константы для логирования.
const (
	LogRequestDone   = "executor: request done"
	LogRequestFailed = "executor: request failed"

	ErrorDecodeFailed = "failed to decode response body"
)

// TokenSource отдает текущий access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool)
}

// Request описывает один вызов API.
type Request struct {
	Method   string
	Endpoint string
	Body     any
	// SkipAuth отключает заголовок Authorization (refresh, login).
	SkipAuth bool
}

// Response - успешный (2xx) ответ.
type Response struct {
	Status    int
	Body      []byte
	NoContent bool
}

// Decode разбирает JSON тело в into. Для 204 ничего не делает.
func (r *Response) Decode(into any) error {
	if r.NoContent || len(r.Body) == 0 || into == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, into); err != nil {
		return fmt.Errorf("%s: %w", ErrorDecodeFailed, err)
	}
	return nil
}

// Config содержит настройки исполнителя.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Executor выполняет запросы через resty.
type Executor struct {
	client *resty.Client
	tokens TokenSource
}

// New создает исполнитель для базового URL.
func New(cfg Config, tokens TokenSource) *Executor {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{})

	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Executor{client: client, tokens: tokens}
}

// Do выполняет запрос с токеном из TokenSource.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	token := ""
	if !req.SkipAuth && e.tokens != nil {
		token, _ = e.tokens.AccessToken(ctx)
	}
	return e.DoWithToken(ctx, req, token)
}

// DoWithToken выполняет запрос с явно переданным токеном.
// Пустой токен означает запрос без Authorization.
func (e *Executor) DoWithToken(ctx context.Context, req Request, token string) (*Response, error) {
	log := logger.Log(ctx).With(
		zap.String("method", req.Method),
		zap.String("endpoint", req.Endpoint),
	)

	r := e.client.R().SetContext(ctx)
	if token != "" && !req.SkipAuth {
		r.SetHeader("Authorization", "Bearer "+token)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	if id, ok := logger.GetRequestID(ctx); ok {
		r.SetHeader(logger.RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Endpoint)
	if err != nil {
		log.Warn(ctx, LogRequestFailed, zap.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.Endpoint, err)
	}

	status := resp.StatusCode()
	log.Debug(ctx, LogRequestDone,
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)))

	if status < 200 || status > 299 {
		return nil, &RequestFailedError{Status: status, Message: serverMessage(resp.Body(), status)}
	}

	if status == http.StatusNoContent {
		return &Response{Status: status, NoContent: true}, nil
	}

	return &Response{Status: status, Body: resp.Body()}, nil
}

// serverMessage извлекает поле message из тела ответа.
func serverMessage(body []byte, status int) string {
	if len(body) > 0 && gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && msg.String() != "" {
			return msg.String()
		}
	}
	return genericMessage(status)
}

// restyLogger направляет внутренние сообщения resty в zap.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	logger.Log(context.Background()).Error(context.Background(), fmt.Sprintf(format, v...))
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	logger.Log(context.Background()).Warn(context.Background(), fmt.Sprintf(format, v...))
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	logger.Log(context.Background()).Debug(context.Background(), fmt.Sprintf(format, v...))
}

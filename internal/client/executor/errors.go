package executor

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport оборачивает сетевые ошибки (DNS, отказ в соединении, таймаут).
var ErrTransport = errors.New("transport error")

// RequestFailedError - ответ внешнего API со статусом вне 2xx.
type RequestFailedError struct {
	Status  int
	Message string
}

// Error возвращает сообщение сервера или общее сообщение со статусом.
func (e *RequestFailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return genericMessage(e.Status)
}

func genericMessage(status int) string {
	return fmt.Sprintf("HTTP error! status: %d", status)
}

// StatusOf возвращает HTTP статус из цепочки ошибок или 0.
func StatusOf(err error) int {
	var failed *RequestFailedError
	if errors.As(err, &failed) {
		return failed.Status
	}
	return 0
}

// IsUnauthorized сообщает, что запрос отклонен со статусом 401.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

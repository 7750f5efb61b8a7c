// Package dto содержит объекты передачи данных для Gateway.
package dto

// LoginRequest содержит данные для входа пользователя.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest содержит данные для регистрации пользователя.
type SignupRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
}

// UpstreamLogin - успешный ответ внешнего API на вход.
type UpstreamLogin struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ID           string `json:"id"`
	Email        string `json:"email"`
}

// LoginResponse - ответ Gateway на успешный вход.
type LoginResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MessageResponse - тело ответа с сообщением.
type MessageResponse struct {
	Message string `json:"message"`
}

// SessionResponse описывает состояние сессии.
type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

// PageResponse описывает страницу, которую отдал бы сервер.
type PageResponse struct {
	Page          string `json:"page"`
	Authenticated bool   `json:"authenticated"`
}

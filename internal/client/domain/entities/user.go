// Package entities содержит доменные сущности клиента.
package entities

import "time"

// Role - роль пользователя.
type Role string

// Роли пользователей.
const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User - профиль пользователя в формате внешнего API.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin сообщает, есть ли у пользователя права администратора.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// LoginCredentials - данные для входа.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupCredentials - данные для регистрации.
type SignupCredentials struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
}

// AuthResponse - ответ login/refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ID           string `json:"id,omitempty"`
	Email        string `json:"email,omitempty"`
}

// UpdateUserData - изменяемые поля профиля.
type UpdateUserData struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *Role   `json:"role,omitempty"`
}

// UserListResponse - страница пользователей.
type UserListResponse struct {
	Data []User         `json:"data"`
	Meta map[string]any `json:"meta"`
}

package entities

import "time"

// Todo - задача пользователя.
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	UserID    string    `json:"userId"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateTodoData - данные для создания задачи.
type CreateTodoData struct {
	Title     string `json:"title"`
	Completed *bool  `json:"completed,omitempty"`
}

// UpdateTodoData - изменяемые поля задачи.
type UpdateTodoData struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// TodoFilters - фильтры списка задач.
type TodoFilters struct {
	Completed *bool
	Search    string
}

// IsEmpty сообщает, что ни один фильтр не задан.
func (f TodoFilters) IsEmpty() bool {
	return f.Completed == nil && f.Search == ""
}

// ListMeta - информация о пагинации.
type ListMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// TodoListResponse - страница задач.
type TodoListResponse struct {
	Data []Todo   `json:"data"`
	Meta ListMeta `json:"meta"`
}

// TodoStats - сводка по задачам.
type TodoStats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Active         int     `json:"active"`
	CompletionRate float64 `json:"completionRate"`
}

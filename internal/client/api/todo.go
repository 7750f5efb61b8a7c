package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gotodo/internal/client/domain/entities"
	"gotodo/internal/client/executor"
	"gotodo/internal/client/pipeline"
	"gotodo/pkg/logger"
)

const todoBase = "/api/v1/todos"

// deleteConcurrency ограничивает параллельные удаления в DeleteCompleted.
const deleteConcurrency = 4

// Константы для логирования.
const (
	LogTodoDeleted      = "todo: deleted"
	LogCompletedDeleted = "todo: completed todos deleted"

	ErrorBuildFilter = "failed to build todo filter"
	ErrorDeleteTodo  = "failed to delete todo"
)

// TodoAPI - операции над задачами.
type TodoAPI struct {
	pipeline *pipeline.Pipeline
}

// NewTodoAPI создает TodoAPI.
func NewTodoAPI(p *pipeline.Pipeline) *TodoAPI {
	return &TodoAPI{pipeline: p}
}

// Create создает задачу.
func (t *TodoAPI) Create(ctx context.Context, data entities.CreateTodoData) (*entities.Todo, error) {
	return pipeline.Call[entities.Todo](ctx, t.pipeline, executor.Request{
		Method:   http.MethodPost,
		Endpoint: todoBase,
		Body:     data,
	})
}

// List возвращает страницу задач. limit <= 0 не передается.
func (t *TodoAPI) List(ctx context.Context, page int, filters entities.TodoFilters, limit int) (*entities.TodoListResponse, error) {
	query, err := ListQuery(page, filters, limit)
	if err != nil {
		return nil, err
	}
	return pipeline.Call[entities.TodoListResponse](ctx, t.pipeline, executor.Request{
		Method:   http.MethodGet,
		Endpoint: todoBase + "?" + query.Encode(),
	})
}

// ListQuery строит параметры запроса списка: page, limit и JSON фильтр where.
func ListQuery(page int, filters entities.TodoFilters, limit int) (url.Values, error) {
	if page <= 0 {
		page = 1
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	if filters.IsEmpty() {
		return query, nil
	}

	where := map[string]any{}
	if filters.Completed != nil {
		where["completed"] = *filters.Completed
	}
	if filters.Search != "" {
		where["title"] = map[string]string{"contains": filters.Search, "mode": "insensitive"}
	}

	raw, err := json.Marshal(where)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorBuildFilter, err)
	}
	query.Set("where", string(raw))

	return query, nil
}

// Get возвращает задачу по id.
func (t *TodoAPI) Get(ctx context.Context, id string) (*entities.Todo, error) {
	return pipeline.Call[entities.Todo](ctx, t.pipeline, executor.Request{
		Method:   http.MethodGet,
		Endpoint: todoPath(id),
	})
}

// Update изменяет задачу.
func (t *TodoAPI) Update(ctx context.Context, id string, data entities.UpdateTodoData) (*entities.Todo, error) {
	return pipeline.Call[entities.Todo](ctx, t.pipeline, executor.Request{
		Method:   http.MethodPut,
		Endpoint: todoPath(id),
		Body:     data,
	})
}

// Delete удаляет задачу. Сервер отвечает 204.
func (t *TodoAPI) Delete(ctx context.Context, id string) error {
	if _, err := t.pipeline.Do(ctx, executor.Request{
		Method:   http.MethodDelete,
		Endpoint: todoPath(id),
	}); err != nil {
		return fmt.Errorf("%s %s: %w", ErrorDeleteTodo, id, err)
	}
	logger.Log(ctx).Debug(ctx, LogTodoDeleted, zap.String("todo_id", id))
	return nil
}

// Toggle устанавливает признак выполнения.
func (t *TodoAPI) Toggle(ctx context.Context, id string, completed bool) (*entities.Todo, error) {
	return t.Update(ctx, id, entities.UpdateTodoData{Completed: &completed})
}

// MarkAllCompleted устанавливает признак выполнения всем задачам.
func (t *TodoAPI) MarkAllCompleted(ctx context.Context, completed bool) error {
	_, err := t.pipeline.Do(ctx, executor.Request{
		Method:   http.MethodPost,
		Endpoint: todoBase + "/mark-all-completed",
		Body:     map[string]bool{"completed": completed},
	})
	return err
}

// Reorder задает новый порядок задач.
func (t *TodoAPI) Reorder(ctx context.Context, todoIDs []string) error {
	_, err := t.pipeline.Do(ctx, executor.Request{
		Method:   http.MethodPost,
		Endpoint: todoBase + "/reorder",
		Body:     map[string][]string{"todoIds": todoIDs},
	})
	return err
}

// DeleteCompletedBulk удаляет выполненные задачи одним запросом.
func (t *TodoAPI) DeleteCompletedBulk(ctx context.Context) error {
	_, err := t.pipeline.Do(ctx, executor.Request{
		Method:   http.MethodDelete,
		Endpoint: todoBase + "/completed",
	})
	return err
}

// DeleteCompleted удаляет выполненные задачи первой страницы по одной.
func (t *TodoAPI) DeleteCompleted(ctx context.Context) error {
	list, err := t.List(ctx, 1, entities.TodoFilters{}, 0)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)

	deleted := 0
	for _, todo := range list.Data {
		if !todo.Completed {
			continue
		}
		deleted++
		g.Go(func() error {
			return t.Delete(gctx, todo.ID)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Log(ctx).Info(ctx, LogCompletedDeleted, zap.Int("count", deleted))
	return nil
}

// Stats возвращает сводку по задачам.
func (t *TodoAPI) Stats(ctx context.Context) (*entities.TodoStats, error) {
	return pipeline.Call[entities.TodoStats](ctx, t.pipeline, executor.Request{
		Method:   http.MethodGet,
		Endpoint: todoBase + "/stats",
	})
}

func todoPath(id string) string {
	return todoBase + "/" + url.PathEscape(id)
}

// Package board хранит загруженную страницу задач и ограничивает частоту загрузок.
package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"
	"go.uber.org/zap"

	"gotodo/internal/client/domain/entities"
	"gotodo/pkg/logger"
)

// Значения по умолчанию.
const (
	DefaultMinInterval = time.Second
	DefaultPerMinute   = 30
	DefaultLimit       = 50
)

const limiterKey = "todos:load"

// Константы для логирования.
const (
	LogLoadThrottled  = "board: load throttled"
	LogStatsFailed    = "board: failed to refresh stats"
	LogTodosLoaded    = "board: todos loaded"
	ErrorLimiterSetup = "failed to create load limiter"
	ErrorLoad         = "failed to load todos"
)

// Причины отказа в загрузке.
const (
	ReasonInProgress = "load already in progress"
	ReasonTooSoon    = "too soon since last load"
	ReasonPerMinute  = "exceeded max loads per minute"
)

// ErrThrottled - загрузка отклонена ограничителем.
var ErrThrottled = errors.New("too many requests")

// TodoService - операции над задачами, нужные доске.
type TodoService interface {
	List(ctx context.Context, page int, filters entities.TodoFilters, limit int) (*entities.TodoListResponse, error)
	Create(ctx context.Context, data entities.CreateTodoData) (*entities.Todo, error)
	Update(ctx context.Context, id string, data entities.UpdateTodoData) (*entities.Todo, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string, completed bool) (*entities.Todo, error)
	MarkAllCompleted(ctx context.Context, completed bool) error
	Reorder(ctx context.Context, todoIDs []string) error
	DeleteCompleted(ctx context.Context) error
	Stats(ctx context.Context) (*entities.TodoStats, error)
}

// Config - параметры ограничителя.
type Config struct {
	MinInterval time.Duration
	PerMinute   uint64
}

// Snapshot - копия состояния доски.
type Snapshot struct {
	Todos   []entities.Todo
	Meta    *entities.ListMeta
	Page    int
	Filters entities.TodoFilters
	Stats   *entities.TodoStats
}

// Board - клиентское состояние списка задач.
type Board struct {
	todos   TodoService
	clock   clockwork.Clock
	limiter limiter.Store
	cfg     Config

	mu       sync.Mutex
	loading  bool
	lastLoad time.Time
	state    Snapshot
}

// New создает доску. clock может быть nil.
func New(todos TodoService, cfg Config, clock clockwork.Clock) (*Board, error) {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.PerMinute == 0 {
		cfg.PerMinute = DefaultPerMinute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	store, err := memorystore.New(&memorystore.Config{
		Tokens:   cfg.PerMinute,
		Interval: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorLimiterSetup, err)
	}

	return &Board{
		todos:   todos,
		clock:   clock,
		limiter: store,
		cfg:     cfg,
		state:   Snapshot{Page: 1},
	}, nil
}

// Close освобождает ограничитель.
func (b *Board) Close(ctx context.Context) error {
	return b.limiter.Close(ctx)
}

// Load загружает страницу задач. filters == nil сохраняет текущие фильтры.
// Отклоненная загрузка возвращает ErrThrottled и не выполняет запросов.
func (b *Board) Load(ctx context.Context, page int, filters *entities.TodoFilters, limit int) error {
	if page <= 0 {
		page = 1
	}

	b.mu.Lock()
	if reason := b.admit(ctx); reason != "" {
		b.mu.Unlock()
		logger.Log(ctx).Debug(ctx, LogLoadThrottled, zap.String("reason", reason))
		return fmt.Errorf("%w: %s", ErrThrottled, reason)
	}
	b.loading = true
	b.lastLoad = b.clock.Now()
	current := b.state.Filters
	b.mu.Unlock()

	effective := current
	if filters != nil {
		effective = *filters
	}

	resp, err := b.todos.List(ctx, page, effective, limit)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false

	if err != nil {
		return fmt.Errorf("%s: %w", ErrorLoad, err)
	}

	b.state.Todos = resp.Data
	meta := resp.Meta
	b.state.Meta = &meta
	b.state.Page = page
	if filters != nil {
		b.state.Filters = *filters
	}

	logger.Log(ctx).Debug(ctx, LogTodosLoaded, zap.Int("page", page), zap.Int("count", len(resp.Data)))
	return nil
}

// admit проверяет ограничения. Вызывается под b.mu.
func (b *Board) admit(ctx context.Context) string {
	if b.loading {
		return ReasonInProgress
	}
	if !b.lastLoad.IsZero() && b.clock.Since(b.lastLoad) < b.cfg.MinInterval {
		return ReasonTooSoon
	}
	if _, _, _, ok, err := b.limiter.Take(ctx, limiterKey); err != nil || !ok {
		return ReasonPerMinute
	}
	return ""
}

// Reload повторно загружает текущую страницу.
func (b *Board) Reload(ctx context.Context) error {
	return b.Load(ctx, b.Snapshot().Page, nil, 0)
}

// Snapshot возвращает копию состояния.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := b.state
	snap.Todos = slices.Clone(b.state.Todos)
	return snap
}

// Create создает задачу и добавляет ее в начало списка.
func (b *Board) Create(ctx context.Context, data entities.CreateTodoData) (*entities.Todo, error) {
	todo, err := b.todos.Create(ctx, data)
	if err != nil {
		return nil, err
	}

	created := *todo

	b.mu.Lock()
	b.state.Todos = append([]entities.Todo{created}, b.state.Todos...)
	b.mu.Unlock()

	b.RefreshStats(ctx)
	return todo, nil
}

// Update изменяет задачу.
func (b *Board) Update(ctx context.Context, id string, data entities.UpdateTodoData) (*entities.Todo, error) {
	todo, err := b.todos.Update(ctx, id, data)
	if err != nil {
		return nil, err
	}
	b.replace(*todo)
	b.RefreshStats(ctx)
	return todo, nil
}

// Toggle меняет признак выполнения задачи.
func (b *Board) Toggle(ctx context.Context, id string, completed bool) (*entities.Todo, error) {
	todo, err := b.todos.Toggle(ctx, id, completed)
	if err != nil {
		return nil, err
	}
	b.replace(*todo)
	b.RefreshStats(ctx)
	return todo, nil
}

// Delete удаляет задачу.
func (b *Board) Delete(ctx context.Context, id string) error {
	if err := b.todos.Delete(ctx, id); err != nil {
		return err
	}

	b.mu.Lock()
	b.state.Todos = slices.DeleteFunc(b.state.Todos, func(t entities.Todo) bool { return t.ID == id })
	b.mu.Unlock()

	b.RefreshStats(ctx)
	return nil
}

// MarkAllCompleted отмечает все задачи.
func (b *Board) MarkAllCompleted(ctx context.Context, completed bool) error {
	if err := b.todos.MarkAllCompleted(ctx, completed); err != nil {
		return err
	}

	b.mu.Lock()
	for i := range b.state.Todos {
		b.state.Todos[i].Completed = completed
	}
	b.mu.Unlock()

	b.RefreshStats(ctx)
	return nil
}

// DeleteCompleted удаляет выполненные задачи.
func (b *Board) DeleteCompleted(ctx context.Context) error {
	if err := b.todos.DeleteCompleted(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	b.state.Todos = slices.DeleteFunc(b.state.Todos, func(t entities.Todo) bool { return t.Completed })
	b.mu.Unlock()

	b.RefreshStats(ctx)
	return nil
}

// Reorder задает порядок задач и переставляет локальный список.
func (b *Board) Reorder(ctx context.Context, todoIDs []string) error {
	if err := b.todos.Reorder(ctx, todoIDs); err != nil {
		return err
	}

	position := make(map[string]int, len(todoIDs))
	for i, id := range todoIDs {
		position[id] = i
	}

	b.mu.Lock()
	slices.SortStableFunc(b.state.Todos, func(x, y entities.Todo) int {
		return rank(position, x.ID) - rank(position, y.ID)
	})
	for i := range b.state.Todos {
		b.state.Todos[i].Order = i
	}
	b.mu.Unlock()

	b.RefreshStats(ctx)
	return nil
}

func rank(position map[string]int, id string) int {
	if i, ok := position[id]; ok {
		return i
	}
	return len(position)
}

// RefreshStats обновляет сводку. Ошибка только логируется.
func (b *Board) RefreshStats(ctx context.Context) {
	stats, err := b.todos.Stats(ctx)
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogStatsFailed, zap.Error(err))
		return
	}

	b.mu.Lock()
	b.state.Stats = stats
	b.mu.Unlock()
}

func (b *Board) replace(todo entities.Todo) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.state.Todos {
		if b.state.Todos[i].ID == todo.ID {
			b.state.Todos[i] = todo
			return
		}
	}
}

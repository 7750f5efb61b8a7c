package main

import (
	"errors"
	"fmt"
	"strings"

	"gotodo/internal/client/domain/entities"
)

// TodosCmd - команды для задач.
type TodosCmd struct {
	List           TodosListCmd    `cmd:"" help:"List todos"`
	Add            TodosAddCmd     `cmd:"" help:"Create a todo"`
	Rename         TodosRenameCmd  `cmd:"" help:"Rename a todo"`
	Toggle         TodosToggleCmd  `cmd:"" help:"Flip the completed flag of a todo"`
	Delete         TodosDeleteCmd  `cmd:"" help:"Delete a todo"`
	CompleteAll    TodosAllCmd     `cmd:"" name:"complete-all" help:"Mark every todo as completed"`
	ClearCompleted TodosClearCmd   `cmd:"" name:"clear-completed" help:"Delete completed todos"`
	Reorder        TodosReorderCmd `cmd:"" help:"Set the order of todos"`
	Stats          TodosStatsCmd   `cmd:"" help:"Show todo statistics"`
}

// TodosListCmd - список задач.
type TodosListCmd struct {
	Page      int    `help:"Page number" default:"1"`
	Limit     int    `help:"Page size, defaults to TODO_BOARD_PAGE_SIZE"`
	Search    string `help:"Case-insensitive title filter"`
	Completed bool   `help:"Only completed todos"`
	Active    bool   `help:"Only active todos"`
}

// Run загружает страницу задач.
func (c *TodosListCmd) Run(rc *runContext) error {
	if c.Completed && c.Active {
		return errors.New("--completed and --active are mutually exclusive")
	}

	filters := entities.TodoFilters{Search: c.Search}
	switch {
	case c.Completed:
		done := true
		filters.Completed = &done
	case c.Active:
		done := false
		filters.Completed = &done
	}

	limit := c.Limit
	if limit <= 0 {
		limit = rc.pageSize
	}

	if err := rc.client.Board.Load(rc.ctx, c.Page, &filters, limit); err != nil {
		return friendly(err)
	}

	snap := rc.client.Board.Snapshot()
	renderTodos(rc.out, snap.Todos)
	if snap.Meta != nil {
		fmt.Fprintf(rc.out, "page %d of %d, %d total\n", snap.Meta.Page, snap.Meta.TotalPages, snap.Meta.Total)
	}
	return nil
}

// TodosAddCmd - создание задачи.
type TodosAddCmd struct {
	Title []string `arg:"" help:"Todo title"`
}

// Run создает задачу.
func (c *TodosAddCmd) Run(rc *runContext) error {
	todo, err := rc.client.Board.Create(rc.ctx, entities.CreateTodoData{Title: strings.Join(c.Title, " ")})
	if err != nil {
		return friendly(err)
	}
	renderTodos(rc.out, []entities.Todo{*todo})
	return nil
}

// TodosRenameCmd - переименование задачи.
type TodosRenameCmd struct {
	ID    string   `arg:"" help:"Todo id"`
	Title []string `arg:"" help:"New title"`
}

// Run меняет заголовок.
func (c *TodosRenameCmd) Run(rc *runContext) error {
	title := strings.Join(c.Title, " ")
	todo, err := rc.client.Board.Update(rc.ctx, c.ID, entities.UpdateTodoData{Title: &title})
	if err != nil {
		return friendly(err)
	}
	renderTodos(rc.out, []entities.Todo{*todo})
	return nil
}

// TodosToggleCmd - переключение отметки.
type TodosToggleCmd struct {
	ID string `arg:"" help:"Todo id"`
}

// Run переключает отметку о выполнении.
func (c *TodosToggleCmd) Run(rc *runContext) error {
	current, err := rc.client.Todos.Get(rc.ctx, c.ID)
	if err != nil {
		return friendly(err)
	}
	todo, err := rc.client.Board.Toggle(rc.ctx, c.ID, !current.Completed)
	if err != nil {
		return friendly(err)
	}
	renderTodos(rc.out, []entities.Todo{*todo})
	return nil
}

// TodosDeleteCmd - удаление задачи.
type TodosDeleteCmd struct {
	ID string `arg:"" help:"Todo id"`
}

// Run удаляет задачу.
func (c *TodosDeleteCmd) Run(rc *runContext) error {
	if err := rc.client.Board.Delete(rc.ctx, c.ID); err != nil {
		return friendly(err)
	}
	fmt.Fprintf(rc.out, "deleted %s\n", c.ID)
	return nil
}

// TodosAllCmd - отметить все.
type TodosAllCmd struct {
	Undo bool `help:"Mark every todo as active instead"`
}

// Run отмечает все задачи.
func (c *TodosAllCmd) Run(rc *runContext) error {
	return friendly(rc.client.Board.MarkAllCompleted(rc.ctx, !c.Undo))
}

// TodosClearCmd - удаление выполненных.
type TodosClearCmd struct{}

// Run удаляет выполненные задачи.
func (c *TodosClearCmd) Run(rc *runContext) error {
	return friendly(rc.client.Board.DeleteCompleted(rc.ctx))
}

// TodosReorderCmd - порядок задач.
type TodosReorderCmd struct {
	IDs []string `arg:"" help:"Todo ids in the desired order"`
}

// Run задает порядок.
func (c *TodosReorderCmd) Run(rc *runContext) error {
	return friendly(rc.client.Board.Reorder(rc.ctx, c.IDs))
}

// TodosStatsCmd - статистика.
type TodosStatsCmd struct{}

// Run печатает статистику.
func (c *TodosStatsCmd) Run(rc *runContext) error {
	stats, err := rc.client.Todos.Stats(rc.ctx)
	if err != nil {
		return friendly(err)
	}
	renderStats(rc.out, stats)
	return nil
}

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"gotodo/internal/client/domain/entities"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	return table
}

func renderTodos(w io.Writer, todos []entities.Todo) {
	if len(todos) == 0 {
		fmt.Fprintln(w, "no todos")
		return
	}

	table := newTable(w, "ID", "Done", "Title", "Order", "Updated")
	for _, t := range todos {
		done := " "
		if t.Completed {
			done = "x"
		}
		table.Append([]string{t.ID, done, t.Title, strconv.Itoa(t.Order), t.UpdatedAt.Local().Format(timeLayout)})
	}
	table.Render()
}

func renderUsers(w io.Writer, users []entities.User) {
	table := newTable(w, "ID", "Email", "Name", "Role")
	for _, u := range users {
		name := ""
		if u.Name != nil {
			name = *u.Name
		}
		table.Append([]string{u.ID, u.Email, name, string(u.Role)})
	}
	table.Render()
}

func renderStats(w io.Writer, s *entities.TodoStats) {
	table := newTable(w, "Total", "Completed", "Active", "Completion")
	table.Append([]string{
		strconv.Itoa(s.Total),
		strconv.Itoa(s.Completed),
		strconv.Itoa(s.Active),
		strconv.FormatFloat(s.CompletionRate, 'f', 1, 64) + "%",
	})
	table.Render()
}

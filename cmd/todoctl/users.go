package main

import (
	"fmt"

	"gotodo/internal/client/domain/entities"
)

// UsersCmd - команды администратора.
type UsersCmd struct {
	List   UsersListCmd   `cmd:"" help:"List users"`
	Show   UsersShowCmd   `cmd:"" help:"Show a user"`
	Role   UsersRoleCmd   `cmd:"" help:"Change the role of a user"`
	Delete UsersDeleteCmd `cmd:"" help:"Delete a user"`
}

// UsersListCmd - список пользователей.
type UsersListCmd struct {
	Page int `help:"Page number" default:"1"`
}

// Run печатает пользователей.
func (c *UsersListCmd) Run(rc *runContext) error {
	resp, err := rc.client.Auth.ListUsers(rc.ctx, c.Page)
	if err != nil {
		return friendly(err)
	}
	renderUsers(rc.out, resp.Data)
	return nil
}

// UsersShowCmd - один пользователь.
type UsersShowCmd struct {
	ID string `arg:"" help:"User id"`
}

// Run печатает пользователя.
func (c *UsersShowCmd) Run(rc *runContext) error {
	user, err := rc.client.Auth.GetUser(rc.ctx, c.ID)
	if err != nil {
		return friendly(err)
	}
	renderUsers(rc.out, []entities.User{*user})
	return nil
}

// UsersRoleCmd - смена роли.
type UsersRoleCmd struct {
	ID   string `arg:"" help:"User id"`
	Role string `arg:"" enum:"ADMIN,USER" help:"New role"`
}

// Run меняет роль.
func (c *UsersRoleCmd) Run(rc *runContext) error {
	role := entities.Role(c.Role)
	user, err := rc.client.Auth.UpdateUser(rc.ctx, c.ID, entities.UpdateUserData{Role: &role})
	if err != nil {
		return friendly(err)
	}
	renderUsers(rc.out, []entities.User{*user})
	return nil
}

// UsersDeleteCmd - удаление пользователя.
type UsersDeleteCmd struct {
	ID string `arg:"" help:"User id"`
}

// Run удаляет пользователя.
func (c *UsersDeleteCmd) Run(rc *runContext) error {
	if err := rc.client.Auth.DeleteUser(rc.ctx, c.ID); err != nil {
		return friendly(err)
	}
	fmt.Fprintf(rc.out, "deleted %s\n", c.ID)
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"gotodo/internal/client/app"
	"gotodo/internal/client/config"
	"gotodo/internal/client/domain/entities"
	"gotodo/internal/client/pipeline"
	"gotodo/pkg/logger"
)

// CLI описывает команды todoctl.
type CLI struct {
	EnvFile string `help:"Path to an optional .env file" default:".env" env:"TODO_ENV_FILE"`
	Debug   bool   `help:"Enable debug logging"`

	Login  LoginCmd  `cmd:"" help:"Log in and store credentials"`
	Signup SignupCmd `cmd:"" help:"Create an account"`
	Logout LogoutCmd `cmd:"" help:"Log out and forget credentials"`
	Whoami WhoamiCmd `cmd:"" help:"Show the current user"`
	Todos  TodosCmd  `cmd:"" help:"Manage todos"`
	Users  UsersCmd  `cmd:"" help:"Manage users (admin only)"`
}

// runContext передается в Run каждой команды.
type runContext struct {
	ctx      context.Context
	client   *app.Client
	out      io.Writer
	pageSize int
}

func newRunContext(ctx context.Context, cli *CLI, redirector pipeline.Redirector) (*runContext, error) {
	cfg, err := config.Load(ctx, cli.EnvFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if cli.Debug {
		level = "debug"
	}
	log, err := logger.NewLogger(cfg.Logging.GetEnvironment(), level)
	if err != nil {
		return nil, err
	}
	logger.SetGlobalLogger(log)

	client, err := app.New(ctx, cfg, redirector)
	if err != nil {
		return nil, err
	}

	return &runContext{ctx: ctx, client: client, out: os.Stdout, pageSize: cfg.Board.PageSize}, nil
}

// Close освобождает клиента.
func (rc *runContext) Close() error {
	if err := rc.client.Close(rc.ctx); err != nil {
		logger.Log(rc.ctx).Warn(rc.ctx, "failed to close client", zap.Error(err))
	}
	return nil
}

// friendly превращает ошибку истекшей сессии в короткое сообщение.
func friendly(err error) error {
	if err == nil {
		return nil
	}
	if pipeline.IsAuthError(err) {
		return errors.New(MsgSessionExpired)
	}
	return err
}

// LoginCmd - вход.
type LoginCmd struct {
	Email    string `arg:"" help:"Account email"`
	Password string `help:"Account password" env:"TODO_PASSWORD" required:""`
}

// Run выполняет вход.
func (c *LoginCmd) Run(rc *runContext) error {
	resp, err := rc.client.Auth.Login(rc.ctx, entities.LoginCredentials{Email: c.Email, Password: c.Password})
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "logged in as %s\n", orFallback(resp.Email, c.Email))
	return nil
}

// SignupCmd - регистрация.
type SignupCmd struct {
	Email    string `arg:"" help:"Account email"`
	Password string `help:"Account password" env:"TODO_PASSWORD" required:""`
	Name     string `help:"Display name"`
}

// Run регистрирует пользователя.
func (c *SignupCmd) Run(rc *runContext) error {
	creds := entities.SignupCredentials{Email: c.Email, Password: c.Password}
	if c.Name != "" {
		creds.Name = &c.Name
	}
	if err := rc.client.Auth.Signup(rc.ctx, creds); err != nil {
		return err
	}
	fmt.Fprintln(rc.out, "account created, run `todoctl login` to continue")
	return nil
}

// LogoutCmd - выход.
type LogoutCmd struct{}

// Run выполняет выход. Локальные данные удаляются всегда.
func (c *LogoutCmd) Run(rc *runContext) error {
	if err := rc.client.Auth.Logout(rc.ctx); err != nil {
		return err
	}
	fmt.Fprintln(rc.out, "logged out")
	return nil
}

// WhoamiCmd - текущий пользователь.
type WhoamiCmd struct{}

// Run восстанавливает сессию и печатает пользователя.
func (c *WhoamiCmd) Run(rc *runContext) error {
	user, err := rc.client.Auth.Restore(rc.ctx)
	if err != nil {
		return friendly(err)
	}
	renderUsers(rc.out, []entities.User{*user})
	return nil
}

func orFallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

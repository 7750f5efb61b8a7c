package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"gotodo/internal/client/pipeline"
	"gotodo/pkg/logger"
)

// MsgSessionExpired выводится, когда обновить сессию не удалось.
const MsgSessionExpired = "session expired, run `todoctl login`"

var cli CLI

func main() {
	kctx := kong.Parse(
		&cli,
		kong.UsageOnError(),
		kong.Name("todoctl"),
		kong.Description("Command line client for the todo API"),
	)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	rc, err := newRunContext(ctx, &cli, pipeline.RedirectFunc(func(context.Context) {
		fmt.Fprintln(os.Stderr, MsgSessionExpired)
	}))
	kctx.FatalIfErrorf(err)

	err = kctx.Run(rc)
	if closeErr := rc.Close(); err == nil {
		err = closeErr
	}
	kctx.FatalIfErrorf(err)
}

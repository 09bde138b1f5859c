package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/resourcesync/cmd/resourcesync/commands"
)

func main() {
	var cli commands.CLI
	kctx := kong.Parse(&cli, commands.Options()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, kctx)
	stop()
	os.Exit(code)
}

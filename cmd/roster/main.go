package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cpsroster/cmd/roster/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.ExecuteContext(ctx)
	stop()
	os.Exit(code)
}

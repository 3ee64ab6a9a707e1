package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/county-loads/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := cli.ExecuteContext(ctx)
	os.Exit(code)
}

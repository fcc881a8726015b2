// Package main is the entry point for the bcload CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bcload/internal/backend/basecamp"
	"bcload/internal/backend/googletasks"
	"bcload/internal/cli"
	"bcload/internal/commands"
	"bcload/internal/config"
	"bcload/internal/service"
)

func main() {
	// Cancel on interrupt so a load stops between requests
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		if cfg.Backend == config.BackendGoogleTasks {
			return googletasks.New(ctx, cfg)
		}
		return basecamp.New(ctx, cfg)
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

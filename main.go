package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	relay "github.com/putto11262002/relay/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer stop()

	config, err := relay.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app, err := relay.New(ctx, config)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}

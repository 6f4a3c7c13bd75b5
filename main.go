package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kettleby/slate/internal"
)

// main() is the entry point to the program. The configuration is read
// from the path in SLATE_CONFIG (falling back to the environment when
// unset), the services are wired up, and the scan is started.
func main() {
	config := internal.SlateConfig{}
	if path := os.Getenv("SLATE_CONFIG"); path != "" {
		if err := config.LoadFromFile(path); err != nil {
			log.Panicf("Failed to load configuration - %v\n", err.Error())
		}
	} else if err := config.LoadFromEnv(); err != nil {
		log.Panicf("Failed to load configuration - %v\n", err.Error())
	}

	slate, err := internal.New(config)
	if err != nil {
		log.Panicf("Failed to initialise Slate - %v\n", err.Error())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := slate.Run(ctx); err != nil {
		log.Panicf("Slate failed - %v\n", err.Error())
	}
}

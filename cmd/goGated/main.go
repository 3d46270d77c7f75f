// Command goGated serves the goGate engine over HTTP, backed by Postgres and
// Redis.
//
//	goGated -config /etc/gogate/config.yaml
//
// A .env file in the working directory is loaded first; GOGATE_* variables
// override the config file.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	if err := app.run(ctx); err != nil {
		log.Printf("goGated stopped: %v", err)
		os.Exit(1)
	}
}

package main

import (
	"log"
	"log/slog"
	"merot-portal/cmd"
	"merot-portal/internal/config"
	"merot-portal/internal/database"
	"merot-portal/internal/messaging"
	"merot-portal/internal/worker"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

// The notification worker consumes review and comment events from RabbitMQ and
// writes notifications for the dev API. It shares the API's database.
func main() {
	log.Println("Starting notification worker...")

	flags := pflag.NewFlagSet("worker", pflag.ExitOnError)
	envFile := flags.String("env", "", "path to load env from")
	_ = flags.Parse(os.Args[1:])

	cmd.LoadEnvFile(*envFile)

	cfg, err := config.LoadDevAPIConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.RabbitMQURL == "" {
		log.Fatalf("RABBITMQ_URL is required for a standalone worker")
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	reciever, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	notifier := worker.NewNotificationProcessor(db, reciever)

	done := make(chan struct{})
	go func() {
		notifier.Start()
		close(done)
	}()

	slog.Info("worker started, waiting for events")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutdown signal received")
	notifier.Stop()
	<-done

	slog.Info("worker stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"merot-portal/cmd"
	"merot-portal/internal/api"
	"merot-portal/internal/config"
	"merot-portal/internal/database"
	"merot-portal/internal/messaging"
	"merot-portal/internal/worker"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/pflag"
	"gorm.io/gorm"
)

// createQueues returns the publisher for review events and, when events are
// handled in this process, the receiver the notifier reads from. With RabbitMQ
// the notifier runs as the separate worker binary.
func createQueues(rabbitMQURL string) (messaging.Publisher, messaging.Reciever) {
	if rabbitMQURL == "" {
		slog.Info("RABBITMQ_URL not set, using in-memory queue")
		queue := messaging.NewInMemoryQueue()
		return queue, queue
	}

	publisher, err := messaging.NewRabbitMQPublisher(rabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	return publisher, nil
}

func createServer(db *gorm.DB, publisher messaging.Publisher, port int) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	service := api.NewBackendService(db, publisher)
	r.Route("/api/v1", service.AddRoutes)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}

func main() {
	flags := pflag.NewFlagSet("devapi", pflag.ExitOnError)
	envFile := flags.String("env", "", "path to load env from")
	seed := flags.Bool("seed", false, "create dev accounts and sample tasks on start")
	port := flags.Int("port", 0, "port to listen on (overrides PORT)")
	_ = flags.Parse(os.Args[1:])

	cmd.LoadEnvFile(*envFile)

	cfg, err := config.LoadDevAPIConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *seed || cfg.Seed {
		if err := cmd.SeedDevData(context.Background(), db); err != nil {
			log.Fatalf("Failed to seed dev data: %v", err)
		}
		slog.Info("dev accounts ready", "password", cmd.DevPassword)
	}

	publisher, reciever := createQueues(cfg.RabbitMQURL)
	defer publisher.Close()

	server := createServer(db, publisher, cfg.Port)

	var notifier *worker.NotificationProcessor
	if reciever != nil {
		notifier = worker.NewNotificationProcessor(db, reciever)
		slog.Info("starting notification worker")
		go notifier.Start()
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		if notifier != nil {
			slog.Info("shutting down worker")
			notifier.Stop()
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	slog.Info("server stopped")
}

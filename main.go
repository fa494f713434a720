package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"deathpool-service/config"
	"deathpool-service/database"
	"deathpool-service/logger"
	"deathpool-service/services"
	"deathpool-service/timezone"
	"deathpool-service/web"
)

func main() {
	// .env is optional; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Printf("Starting death pool service (env: %s)", cfg.Environment)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	catalog := services.NewVoteCatalog(db)
	if err := catalog.SeedDefaults(cfg.VoteLength, cfg.ResultLength,
		cfg.VoteOptions, cfg.RandomizeFrom); err != nil {
		logger.Fatalf("Failed to seed vote catalog: %v", err)
	}

	clock, err := timezone.NewClock(cfg.ShowTimezone)
	if err != nil {
		logger.Fatalf("Invalid show timezone %q: %v", cfg.ShowTimezone, err)
	}

	hub := web.NewHub()
	go hub.Run()

	var broker services.MessageBroker
	if cfg.AMQPURL != "" {
		broker, err = services.NewAMQPBroker(cfg.AMQPURL)
		if err != nil {
			logger.Fatalf("Failed to connect to AMQP broker: %v", err)
		}
		logger.Println("Using AMQP vote queue")
	} else {
		broker = services.NewInMemoryBroker(cfg.VoteQueueSize)
		logger.Println("Using in-memory vote queue")
	}
	defer broker.Close()

	worker := services.NewVoteWorker(broker, services.NewLiveVoteService(db), hub)
	go func() {
		if err := worker.Start(); err != nil {
			logger.Fatalf("Vote worker failed: %v", err)
		}
	}()

	server := web.NewServer(cfg, db, hub, clock, broker)
	go func() {
		logger.Printf("HTTP server listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down...")
	worker.Stop()
	server.Stop()
	logger.Println("Shutdown complete")
}

package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"pdf-chat-backend/internal/app"
	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/queue"
	"pdf-chat-backend/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required to run the indexing worker")
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg)
	if err != nil {
		log.Fatal("Failed to initialize tracing:", err)
	}
	defer shutdownTracer(context.Background())

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	application, err := app.New(context.Background(), cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize services:", err)
	}
	defer application.Close(context.Background())

	redisOpt := queue.RedisClientOpt(cfg)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				queue.QueueCritical: 6,
				queue.QueueDefault:  3,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := queue.NewServeMux(queue.NewTaskProcessor(application.Documents))

	logger.Info("starting asynq worker",
		"concurrency", 4,
		"queues", "critical(6), default(3)",
		"redis", redisOpt.Addr,
	)

	// Run blocks until SIGTERM or SIGINT
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}

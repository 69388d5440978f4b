package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oenmin/affect-analyzer/internal/app"
	"github.com/oenmin/affect-analyzer/internal/infra/config"
	"github.com/oenmin/affect-analyzer/internal/infra/email"
	"github.com/oenmin/affect-analyzer/internal/infra/ffmpeg"
	"github.com/oenmin/affect-analyzer/internal/infra/metrics"
	miniostorage "github.com/oenmin/affect-analyzer/internal/infra/minio"
	"github.com/oenmin/affect-analyzer/internal/infra/postgres"
	"github.com/oenmin/affect-analyzer/internal/infra/rabbitmq"
	"github.com/oenmin/affect-analyzer/internal/infra/tracing"
	"github.com/oenmin/affect-analyzer/internal/usecase"
	"github.com/oenmin/affect-analyzer/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting affect-analyzer worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := tracing.Setup(ctx, cfg.TracingEnabled, cfg.JaegerEndpoint, "affect-analyzer-worker", log)
	defer shutdownTracing(context.Background())

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		ResultBucket: cfg.MinIOResultBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// Detector: the worker is useless without it, so load before consuming.
	pipeline := app.NewPipeline(cfg, log)
	defer pipeline.Close(log)
	fatalOnErr(pipeline.LoadModel(ctx, log), "load model")

	metrics.StartMetricsServer(ctx, cfg.MetricsPort, pipeline.Landmarker, log)

	// The consumer declares the topology and its connection is shared with the publishers.
	var uc *usecase.ProcessJobUseCase
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL: cfg.RabbitMQURL,
		Topology: rabbitmq.Topology{
			Exchange:       cfg.RabbitMQExchange,
			RequestedQueue: cfg.RabbitMQRequestedQueue,
			StatusQueue:    cfg.RabbitMQStatusQueue,
			DLQ:            cfg.RabbitMQDLQ,
		},
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, func(ctx context.Context, body []byte) error {
		return uc.Execute(ctx, body)
	}, log)
	fatalOnErr(err, "create consumer")
	defer consumer.Close()

	pub, err := rabbitmq.NewPublisher(consumer.Connection(), cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	uc = usecase.NewProcessJobUseCase(
		postgres.NewJobRepository(pool),
		storage,
		pipeline.Video,
		ffmpeg.NewFrameArchiver(),
		rabbitmq.NewStatusPublisher(pub),
		rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ),
		email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log),
		log,
		usecase.ProcessJobConfig{
			TempDir:       cfg.TempDir,
			MaxRetries:    cfg.MaxRetries,
			ArchiveFrames: cfg.ArchiveFrames,
		},
	)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("affect-analyzer worker started, consuming messages",
		zap.Int("workers", cfg.WorkerCount),
		zap.Bool("archive_frames", cfg.ArchiveFrames),
	)

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	log.Info("affect-analyzer worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oenmin/affect-analyzer/internal/app"
	"github.com/oenmin/affect-analyzer/internal/infra/config"
	"github.com/oenmin/affect-analyzer/internal/infra/httpapi"
	"github.com/oenmin/affect-analyzer/internal/infra/metrics"
	miniostorage "github.com/oenmin/affect-analyzer/internal/infra/minio"
	"github.com/oenmin/affect-analyzer/internal/infra/postgres"
	"github.com/oenmin/affect-analyzer/internal/infra/rabbitmq"
	"github.com/oenmin/affect-analyzer/internal/infra/tracing"
	"github.com/oenmin/affect-analyzer/internal/usecase"
	"github.com/oenmin/affect-analyzer/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting affect-analyzer server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Setup(ctx, cfg.TracingEnabled, cfg.JaegerEndpoint, "affect-analyzer-server", log)
	defer shutdownTracing(context.Background())

	fatalOnErr(os.MkdirAll(cfg.TempDir, 0o755), "create temp dir")

	pipeline := app.NewPipeline(cfg, log)
	defer pipeline.Close(log)

	handler := httpapi.NewHandler(httpapi.Config{
		TempDir:        cfg.TempDir,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		SamplingRate:   cfg.FrameRate,
	}, pipeline.Video, pipeline.Landmarker, log.Named("http"))

	if cfg.JobsEnabled {
		closeJobs := wireJobs(ctx, cfg, handler, log)
		defer closeJobs()
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, handler.Router(), log)
	metrics.StartMetricsServer(ctx, cfg.MetricsPort, pipeline.Landmarker, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return loadModel(gctx, pipeline.LoadModel, log)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		pipeline.Close(log)
		log.Sync()
		os.Exit(1)
	}
	log.Info("affect-analyzer server stopped")
}

// wireJobs connects the job API to Postgres, MinIO and RabbitMQ and returns a
// func that releases those connections.
func wireJobs(ctx context.Context, cfg *config.Config, handler *httpapi.Handler, log *zap.Logger) func() {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

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

	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq")

	topologyCh, err := rmqConn.Channel()
	fatalOnErr(err, "open rabbitmq channel")
	fatalOnErr(topology(cfg).Declare(topologyCh), "declare rabbitmq topology")
	topologyCh.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	repo := postgres.NewJobRepository(pool)
	submit := usecase.NewSubmitJobUseCase(repo, storage, rabbitmq.NewRequestPublisher(pub), log, cfg.MaxRetries)
	handler.WithJobs(submit, usecase.NewGetJobUseCase(repo, storage))

	log.Info("job API enabled", zap.String("exchange", cfg.RabbitMQExchange))
	return func() {
		pub.Close()
		rmqConn.Close()
		pool.Close()
	}
}

func topology(cfg *config.Config) rabbitmq.Topology {
	return rabbitmq.Topology{
		Exchange:       cfg.RabbitMQExchange,
		RequestedQueue: cfg.RabbitMQRequestedQueue,
		StatusQueue:    cfg.RabbitMQStatusQueue,
		DLQ:            cfg.RabbitMQDLQ,
	}
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}

// loadModel loads the detector while requests are already being served. A
// failure leaves the service up and not ready: /health reports
// modelLoaded=false and /upload answers 503.
func loadModel(ctx context.Context, load func(context.Context, *zap.Logger) error, log *zap.Logger) error {
	if err := load(ctx, log); err != nil {
		if ctx.Err() == nil {
			log.Error("model load failed, serving without a model", zap.Error(err))
		}
		return nil
	}
	log.Info("model ready, accepting uploads")
	return nil
}

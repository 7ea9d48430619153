package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/internal/uploads/repository"
	"github.com/reelstream/media-service/internal/worker"
	"github.com/reelstream/media-service/pkg/db/aws"
	"github.com/reelstream/media-service/pkg/db/postgres"
	clientRedis "github.com/reelstream/media-service/pkg/db/redis"
	"github.com/reelstream/media-service/pkg/logger"
)

func main() {
	log.Println("Starting transcode worker")

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfgFile, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to postgres: %v", err)
	}
	defer psqlDB.Close()

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %v", err)
	}
	defer redisClient.Close()

	s3Client, preSignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not create s3 client: %v", err)
	}

	uploadRepo := repository.NewUploadsRepo(psqlDB)
	blobRepo := repository.NewAwsRepository(s3Client, preSignClient)
	queue := repository.NewJobQueue(redisClient, cfg)

	prober := worker.NewFFprobeProber(cfg.Worker.FFprobePath)
	encoder := worker.NewFFmpegEncoder(cfg.Worker.FFmpegPath, cfg.Worker.SegmentSeconds)
	processor := worker.NewProcessor(cfg, uploadRepo, queue, blobRepo, prober, encoder, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutdown signal received")
		cancel()
	}()

	w := worker.NewWorker(cfg, queue, uploadRepo, processor, appLogger)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		appLogger.Fatalf("worker stopped: %v", err)
	}
}

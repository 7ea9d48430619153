package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/internal/server"
	"github.com/reelstream/media-service/pkg/db/aws"
	"github.com/reelstream/media-service/pkg/db/postgres"
	"github.com/reelstream/media-service/pkg/db/redis"
	"github.com/reelstream/media-service/pkg/logger"
)

func main() {
	log.Println("Starting api server")

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
	appLogger.Infof("postgres connected, status: %#v", psqlDB.Stats())

	redisClient, err := redis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %v", err)
	}
	defer redisClient.Close()
	appLogger.Info("redis connected")

	s3Client, preSignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not create s3 client: %v", err)
	}

	s := server.NewServer(cfg, psqlDB, redisClient, s3Client, preSignClient, appLogger)
	if err = s.Run(); err != nil {
		appLogger.Fatalf("server stopped: %v", err)
	}
}

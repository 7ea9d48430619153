package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	S3       S3Config
	Logger   Logger
	Upload   UploadConfig
	Queue    QueueConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	AppVersion   string
	Port         string
	Mode         string
	JwtSecretKey string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	UseTLS        bool
}

type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	InputBucket  string
	OutputBucket string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

// UploadConfig bounds what InitUpload accepts.
type UploadConfig struct {
	MaxFileSizeBytes int64
	PresignExpiry    time.Duration
	AllowedMimeTypes []string
}

type QueueConfig struct {
	Name            string
	MaxAttempts     int
	BackoffBase     time.Duration
	VisibilityTTL   time.Duration
	RetentionTTL    time.Duration
	DefaultPriority int
}

type WorkerConfig struct {
	PollInterval   time.Duration
	MaxCPUUsage    float64
	SegmentSeconds int
	FFmpegPath     string
	FFprobePath    string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Upload.MaxFileSizeBytes == 0 {
		c.Upload.MaxFileSizeBytes = 4 << 30
	}
	if c.Upload.PresignExpiry == 0 {
		c.Upload.PresignExpiry = time.Hour
	}
	if len(c.Upload.AllowedMimeTypes) == 0 {
		c.Upload.AllowedMimeTypes = []string{
			"video/mp4",
			"video/quicktime",
			"video/x-matroska",
			"video/webm",
		}
	}
	if c.Queue.Name == "" {
		c.Queue.Name = "transcode_jobs"
	}
	if c.Queue.MaxAttempts == 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.BackoffBase == 0 {
		c.Queue.BackoffBase = 30 * time.Second
	}
	if c.Queue.VisibilityTTL == 0 {
		c.Queue.VisibilityTTL = 30 * time.Minute
	}
	if c.Queue.RetentionTTL == 0 {
		c.Queue.RetentionTTL = 7 * 24 * time.Hour
	}
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = 3 * time.Second
	}
	if c.Worker.MaxCPUUsage == 0 {
		c.Worker.MaxCPUUsage = 85.0
	}
	if c.Worker.SegmentSeconds == 0 {
		c.Worker.SegmentSeconds = 10
	}
	if c.Worker.FFmpegPath == "" {
		c.Worker.FFmpegPath = "ffmpeg"
	}
	if c.Worker.FFprobePath == "" {
		c.Worker.FFprobePath = "ffprobe"
	}
}

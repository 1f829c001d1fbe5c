package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL    string        `env:"DATABASE_URL,required"`
	MigrationsURL  string        `env:"MIGRATIONS_URL" envDefault:"file://internal/database/migrations"`
	ServerPort     string        `env:"SERVER_PORT"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Секрет для проверки bearer-токенов (HS256)
	JWTSecret string `env:"JWT_SECRET,required"`

	// Настройки для MinIO
	MinioEndpoint        string `env:"MINIO_ENDPOINT,required"`
	MinioAccessKeyID     string `env:"MINIO_ACCESS_KEY_ID,required"`
	MinioSecretAccessKey string `env:"MINIO_SECRET_ACCESS_KEY,required"`
	MinioUseSSL          bool   `env:"MINIO_USE_SSL"`
	MinioBucketName      string `env:"MINIO_BUCKET_NAME,required"`
	MinioRegion          string `env:"MINIO_REGION,required"`
	MinioPublicURL       string `env:"MINIO_PUBLIC_URL"`

	RabbitMQ struct {
		RabbitMQURL       string `env:"RABBITMQ_URL,required"`
		RabbitMQQueueName string `env:"RABBITMQ_QUEUE_NAME" envDefault:"photo_events_queue"`
	}

	// Загрузки
	UploadConcurrency   int `env:"UPLOAD_CONCURRENCY" envDefault:"5"`
	UploadRatePerMinute int `env:"UPLOAD_RATE_PER_MINUTE" envDefault:"20"`

	// Камера и обработка изображений
	CaptureOpenTimeout time.Duration `env:"CAPTURE_OPEN_TIMEOUT" envDefault:"30s"`
	ThumbnailSize      int           `env:"THUMBNAIL_SIZE" envDefault:"256"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
// В режиме разработки пытается загрузить .env файл.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); !os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации из окружения: %w", err)
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.UploadConcurrency <= 0 {
		return nil, fmt.Errorf("UPLOAD_CONCURRENCY должен быть больше нуля, получено %d", cfg.UploadConcurrency)
	}
	if cfg.ThumbnailSize <= 0 {
		return nil, fmt.Errorf("THUMBNAIL_SIZE должен быть больше нуля, получено %d", cfg.ThumbnailSize)
	}

	return &cfg, nil
}

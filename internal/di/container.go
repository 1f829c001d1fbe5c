package di

import (
	"context"

	"github.com/GoArmGo/MarketApp/internal/adapter/camera"
	"github.com/GoArmGo/MarketApp/internal/adapter/imaging"
	"github.com/GoArmGo/MarketApp/internal/adapter/storage/minio"
	"github.com/GoArmGo/MarketApp/internal/app"
	"github.com/GoArmGo/MarketApp/internal/auth"
	"github.com/GoArmGo/MarketApp/internal/capture"
	"github.com/GoArmGo/MarketApp/internal/config"
	"github.com/GoArmGo/MarketApp/internal/database/client"
	"github.com/GoArmGo/MarketApp/internal/database/postgres"
	"github.com/GoArmGo/MarketApp/internal/database/storage"
	"github.com/GoArmGo/MarketApp/internal/logger"
	"github.com/GoArmGo/MarketApp/internal/rabbitmq"
	"github.com/GoArmGo/MarketApp/internal/usecase"
)

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
func BuildApp(ctx context.Context) (*app.App, error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// 2. Инициализация PostgreSQL клиента (миграции применяются при подключении)
	dbClient, err := client.NewClient(cfg, slogger)
	if err != nil {
		return nil, err
	}

	// 3. Инициализация хранилищ
	photoStorage := storage.NewPostgresStorage(dbClient.DB, slogger)
	userStorage := postgres.NewGormUserStorage(dbClient.Gorm, slogger)
	serviceStorage := postgres.NewGormServiceStorage(dbClient.Gorm, slogger)

	// 4. Файловое хранилище (S3 / MinIO)
	fileStorage, err := minio.NewMinioClient(ctx, cfg, slogger)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	// 5. Инициализация RabbitMQ клиента (publisher для сервера, consumer для воркера)
	rabbitMQClient, err := rabbitmq.NewClient(cfg, slogger)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	// 6. Обработка изображений и камера
	images := imaging.NewProcessor()
	hub := camera.NewHub(slogger)
	captureManager := capture.NewManager(hub.Source, images, slogger)

	// 7. Инициализация бизнес-логики (usecases)
	useCases := app.UseCases{
		Photo:   usecase.NewPhotoUseCase(photoStorage, fileStorage, images, rabbitMQClient, cfg.ThumbnailSize, slogger),
		Profile: usecase.NewProfileUseCase(userStorage, photoStorage, slogger),
		Service: usecase.NewServiceUseCase(serviceStorage, userStorage, photoStorage, slogger),
	}

	// 8. Лимитер параллельных загрузок
	uploadLimiter := make(chan struct{}, cfg.UploadConcurrency)

	// 9. Сборка итогового приложения
	application := app.NewApp(
		cfg,
		slogger,
		useCases,
		app.Capture{Manager: captureManager, Hub: hub},
		auth.NewVerifier(cfg.JWTSecret),
		rabbitMQClient,
		uploadLimiter,
	)
	application.OnShutdown("postgres", dbClient.Close)
	application.OnShutdown("rabbitmq", rabbitMQClient.Close)

	slogger.Info("all dependencies initialized")
	return application, nil
}

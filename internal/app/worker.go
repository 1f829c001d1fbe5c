package app

import (
	"context"
	"fmt"
	"time"

	"github.com/GoArmGo/MarketApp/internal/messaging/payloads"
)

// runWorker запускает потребителя RabbitMQ и обрабатывает события о фотографиях до отмены ctx
func (a *App) runWorker(ctx context.Context) error {
	a.logger.Info("worker started, waiting for photo events")

	handle := func(ctx context.Context, event payloads.PhotoEventPayload) error {
		start := time.Now()
		if err := a.useCases.Photo.HandlePhotoEvent(ctx, event); err != nil {
			return fmt.Errorf("worker: событие %s для фото %s: %w", event.Type, event.PhotoID, err)
		}
		a.logger.Debug("photo event handled",
			"type", event.Type,
			"photo_id", event.PhotoID,
			"owner_id", event.OwnerID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	if err := a.consumer.StartConsumingPhotoEvents(ctx, handle); err != nil {
		return fmt.Errorf("ошибка при запуске потребителя RabbitMQ: %w", err)
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received, stopping worker")
	return nil
}

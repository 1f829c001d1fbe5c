package ports

import (
	"context"

	"github.com/GoArmGo/MarketApp/internal/messaging/payloads"
)

// PhotoEventPublisher публикует события о фотографиях
// используется сценариями загрузки и удаления фото
type PhotoEventPublisher interface {
	PublishPhotoEvent(ctx context.Context, payload payloads.PhotoEventPayload) error
}

// PhotoEventConsumer определяет методы для потребления событий о фотографиях
// будет использоваться воркером для получения задач из очереди
type PhotoEventConsumer interface {
	// StartConsumingPhotoEvents начинает прослушивание очереди
	// принимает функцию-обработчик, которая будет вызываться для каждого полученного сообщения
	StartConsumingPhotoEvents(ctx context.Context, handler func(context.Context, payloads.PhotoEventPayload) error) error
}

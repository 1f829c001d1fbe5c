package usecase

import (
	"context"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/GoArmGo/MarketApp/internal/messaging/payloads"
	"github.com/google/uuid"
)

// LiveCapture - активная сессия камеры, с которой можно снять кадр.
// Реализуется capture.Session.
type LiveCapture interface {
	Capture(ctx context.Context) (domain.Payload, error)
	Stop() error
}

// PhotoUseCase определяет бизнес-логику набора фотографий профиля.
// У каждого владельца не более одной основной фотографии.
type PhotoUseCase interface {
	// ListPhotos возвращает фото владельца, новые первыми
	ListPhotos(ctx context.Context, ownerID string) ([]domain.ProfilePhoto, error)

	// AddPhoto проверяет и загружает изображение, затем сохраняет запись.
	// Первая фотография владельца становится основной.
	AddPhoto(ctx context.Context, ownerID string, payload domain.Payload) (*domain.ProfilePhoto, error)

	// SetPrimary делает фото основным, снимая флаг с остальных фото владельца
	SetPrimary(ctx context.Context, ownerID string, photoID uuid.UUID) error

	// DeletePhoto удаляет запись о фото. Основная фотография при этом не переназначается,
	// это делает воркер через ReconcilePrimary.
	DeletePhoto(ctx context.Context, photoID uuid.UUID) error

	// DeleteOwnPhoto удаляет фото, только если оно принадлежит ownerID (иначе domain.ErrForbidden)
	DeleteOwnPhoto(ctx context.Context, ownerID string, photoID uuid.UUID) error

	// CapturePhotoFromLiveSource снимает кадр с активной камеры
	CapturePhotoFromLiveSource(ctx context.Context, source LiveCapture) (domain.Payload, error)

	// CaptureAndAddPhoto снимает кадр и добавляет его как фото. Камера освобождается всегда.
	CaptureAndAddPhoto(ctx context.Context, ownerID string, source LiveCapture) (*domain.ProfilePhoto, error)

	// ReconcilePrimary восстанавливает ровно одну основную фотографию, если фото есть
	ReconcilePrimary(ctx context.Context, ownerID string) (bool, error)

	// HandlePhotoEvent обрабатывает событие из очереди (используется воркером)
	HandlePhotoEvent(ctx context.Context, event payloads.PhotoEventPayload) error
}

// ProfileUseCase - профили пользователей
type ProfileUseCase interface {
	// GetOrCreateProfile возвращает профиль, создавая его по данным токена при первом входе
	GetOrCreateProfile(ctx context.Context, identity domain.Identity) (*domain.User, error)
	GetProfile(ctx context.Context, uid string) (*domain.User, error)
	UpdateProfile(ctx context.Context, uid string, update domain.ProfileUpdate) (*domain.User, error)
	// ListProviders возвращает исполнителей вместе с их фотографиями
	ListProviders(ctx context.Context) ([]domain.ProviderCard, error)
}

// ServiceUseCase - каталог услуг
type ServiceUseCase interface {
	CreateService(ctx context.Context, providerID string, input domain.NewService) (*domain.Service, error)
	ListProviderServices(ctx context.Context, providerID string) ([]domain.Service, error)
	// ListActiveServices возвращает активные услуги с профилем и фото исполнителя
	ListActiveServices(ctx context.Context) ([]domain.ServiceListing, error)
}

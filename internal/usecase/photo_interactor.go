package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/GoArmGo/MarketApp/internal/core/ports"
	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/GoArmGo/MarketApp/internal/messaging/payloads"
	"github.com/google/uuid"
)

// photoUseCase реализует PhotoUseCase
type photoUseCase struct {
	photoStorage  ports.PhotoStorage
	fileStorage   ports.FileStorage
	images        ports.ImageProcessor
	publisher     ports.PhotoEventPublisher
	logger        *slog.Logger
	thumbnailSize int

	locks *ownerLocks
	now   func() time.Time
}

// NewPhotoUseCase создает новый экземпляр PhotoUseCase.
// publisher может быть nil, тогда события не отправляются.
func NewPhotoUseCase(
	photoStorage ports.PhotoStorage,
	fileStorage ports.FileStorage,
	images ports.ImageProcessor,
	publisher ports.PhotoEventPublisher,
	thumbnailSize int,
	logger *slog.Logger,
) PhotoUseCase {
	return newPhotoUseCase(photoStorage, fileStorage, images, publisher, thumbnailSize, logger)
}

func newPhotoUseCase(
	photoStorage ports.PhotoStorage,
	fileStorage ports.FileStorage,
	images ports.ImageProcessor,
	publisher ports.PhotoEventPublisher,
	thumbnailSize int,
	logger *slog.Logger,
) *photoUseCase {
	return &photoUseCase{
		photoStorage:  photoStorage,
		fileStorage:   fileStorage,
		images:        images,
		publisher:     publisher,
		logger:        logger,
		thumbnailSize: thumbnailSize,
		locks:         newOwnerLocks(),
		now:           time.Now,
	}
}

// ListPhotos возвращает фото владельца, новые первыми
func (uc *photoUseCase) ListPhotos(ctx context.Context, ownerID string) ([]domain.ProfilePhoto, error) {
	photos, err := uc.photoStorage.ListPhotosByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении фото пользователя %s: %w: %w", ownerID, domain.ErrStoreUnavailable, err)
	}
	return photos, nil
}

// AddPhoto загружает изображение в хранилище и создает запись о нем.
// Запись создается под блокировкой владельца, поэтому "первая фотография" определяется однозначно.
// Если запись не удалось сохранить, загруженный файл остается в хранилище.
func (uc *photoUseCase) AddPhoto(ctx context.Context, ownerID string, payload domain.Payload) (*domain.ProfilePhoto, error) {
	start := time.Now()

	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("usecase: %w", err)
	}

	// 1. Загружаем файл
	objectKey := fmt.Sprintf("profile-photos/%s/%d_%s", ownerID, uc.now().UnixMilli(), payload.Filename)
	url, err := uc.fileStorage.UploadFile(ctx, objectKey, bytes.NewReader(payload.Data), payload.ContentType)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка загрузки фото %s: %w: %w", objectKey, domain.ErrUploadFailed, err)
	}

	// 2. Сохраняем запись
	unlock := uc.locks.lock(ownerID)
	count, err := uc.photoStorage.CountPhotosByOwner(ctx, ownerID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("usecase: ошибка при подсчете фото пользователя %s: %w: %w", ownerID, domain.ErrStoreUnavailable, err)
	}

	photo := &domain.ProfilePhoto{
		ID:         uuid.New(),
		UserID:     ownerID,
		URL:        url,
		ObjectKey:  objectKey,
		UploadedAt: uc.now().UTC(),
		IsPrimary:  count == 0,
	}
	err = uc.photoStorage.SavePhoto(ctx, photo)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при сохранении фото %s: %w: %w", photo.ID, domain.ErrStoreUnavailable, err)
	}

	uc.publish(ctx, payloads.PhotoEventPayload{
		Type:      payloads.PhotoUploaded,
		PhotoID:   photo.ID.String(),
		OwnerID:   ownerID,
		ObjectKey: objectKey,
	})

	uc.logger.Info("photo added",
		"id", photo.ID,
		"user_id", ownerID,
		"is_primary", photo.IsPrimary,
		"size", payload.Size(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return photo, nil
}

// SetPrimary делает photoID единственной основной фотографией владельца
func (uc *photoUseCase) SetPrimary(ctx context.Context, ownerID string, photoID uuid.UUID) error {
	unlock := uc.locks.lock(ownerID)
	defer unlock()

	ok, err := uc.photoStorage.SetPrimaryPhoto(ctx, ownerID, photoID)
	if err != nil {
		return fmt.Errorf("usecase: ошибка при выборе основного фото %s: %w: %w", photoID, domain.ErrStoreUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("usecase: фото %s пользователя %s: %w", photoID, ownerID, domain.ErrNotFound)
	}
	return nil
}

// DeletePhoto удаляет запись о фото. Файл в хранилище не удаляется.
func (uc *photoUseCase) DeletePhoto(ctx context.Context, photoID uuid.UUID) error {
	photo, err := uc.getPhoto(ctx, photoID)
	if err != nil {
		return err
	}
	return uc.deletePhoto(ctx, photo)
}

// DeleteOwnPhoto удаляет фото от имени владельца
func (uc *photoUseCase) DeleteOwnPhoto(ctx context.Context, ownerID string, photoID uuid.UUID) error {
	photo, err := uc.getPhoto(ctx, photoID)
	if err != nil {
		return err
	}
	if photo.UserID != ownerID {
		return fmt.Errorf("usecase: фото %s принадлежит другому пользователю: %w", photoID, domain.ErrForbidden)
	}
	return uc.deletePhoto(ctx, photo)
}

func (uc *photoUseCase) getPhoto(ctx context.Context, photoID uuid.UUID) (*domain.ProfilePhoto, error) {
	photo, err := uc.photoStorage.GetPhotoByID(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении фото %s: %w: %w", photoID, domain.ErrStoreUnavailable, err)
	}
	if photo == nil {
		return nil, fmt.Errorf("usecase: фото %s: %w", photoID, domain.ErrNotFound)
	}
	return photo, nil
}

func (uc *photoUseCase) deletePhoto(ctx context.Context, photo *domain.ProfilePhoto) error {
	unlock := uc.locks.lock(photo.UserID)
	deleted, err := uc.photoStorage.DeletePhoto(ctx, photo.ID)
	unlock()
	if err != nil {
		return fmt.Errorf("usecase: ошибка при удалении фото %s: %w: %w", photo.ID, domain.ErrStoreUnavailable, err)
	}
	if !deleted {
		return fmt.Errorf("usecase: фото %s: %w", photo.ID, domain.ErrNotFound)
	}

	uc.publish(ctx, payloads.PhotoEventPayload{
		Type:      payloads.PhotoDeleted,
		PhotoID:   photo.ID.String(),
		OwnerID:   photo.UserID,
		ObjectKey: photo.ObjectKey,
	})
	uc.logger.Info("photo deleted", "id", photo.ID, "user_id", photo.UserID, "was_primary", photo.IsPrimary)
	return nil
}

// CapturePhotoFromLiveSource снимает JPEG-кадр с активной камеры
func (uc *photoUseCase) CapturePhotoFromLiveSource(ctx context.Context, source LiveCapture) (domain.Payload, error) {
	payload, err := source.Capture(ctx)
	if err != nil {
		return domain.Payload{}, fmt.Errorf("usecase: ошибка снимка с камеры: %w", err)
	}
	return payload, nil
}

// CaptureAndAddPhoto снимает кадр и сохраняет его как фото профиля.
// Камера останавливается при любом исходе.
func (uc *photoUseCase) CaptureAndAddPhoto(ctx context.Context, ownerID string, source LiveCapture) (*domain.ProfilePhoto, error) {
	defer func() {
		if err := source.Stop(); err != nil {
			uc.logger.Warn("failed to stop capture after shot", "user_id", ownerID, "error", err)
		}
	}()

	payload, err := uc.CapturePhotoFromLiveSource(ctx, source)
	if err != nil {
		return nil, err
	}
	return uc.AddPhoto(ctx, ownerID, payload)
}

// ReconcilePrimary оставляет ровно одну основную фотографию:
// при нескольких основных - самую новую из них, при отсутствии - самое новое фото.
func (uc *photoUseCase) ReconcilePrimary(ctx context.Context, ownerID string) (bool, error) {
	unlock := uc.locks.lock(ownerID)
	defer unlock()

	photos, err := uc.photoStorage.ListPhotosByOwner(ctx, ownerID)
	if err != nil {
		return false, fmt.Errorf("usecase: ошибка при получении фото пользователя %s: %w: %w", ownerID, domain.ErrStoreUnavailable, err)
	}
	if len(photos) == 0 || domain.CountPrimary(photos) == 1 {
		return false, nil
	}

	// список отсортирован от новых к старым
	target := photos[0]
	if p := domain.PrimaryPhoto(photos); p != nil {
		target = *p
	}

	ok, err := uc.photoStorage.SetPrimaryPhoto(ctx, ownerID, target.ID)
	if err != nil {
		return false, fmt.Errorf("usecase: ошибка при восстановлении основного фото: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if ok {
		uc.logger.Info("primary photo reconciled", "user_id", ownerID, "id", target.ID)
	}
	return ok, nil
}

// HandlePhotoEvent обрабатывает событие из очереди
func (uc *photoUseCase) HandlePhotoEvent(ctx context.Context, event payloads.PhotoEventPayload) error {
	switch event.Type {
	case payloads.PhotoUploaded:
		return uc.generateThumbnail(ctx, event)
	case payloads.PhotoDeleted:
		_, err := uc.ReconcilePrimary(ctx, event.OwnerID)
		return err
	default:
		uc.logger.Warn("unknown photo event type, skipping", "type", event.Type)
		return nil
	}
}

// generateThumbnail скачивает оригинал, делает квадратную миниатюру и сохраняет ссылку на нее
func (uc *photoUseCase) generateThumbnail(ctx context.Context, event payloads.PhotoEventPayload) error {
	start := time.Now()

	photoID, err := uuid.Parse(event.PhotoID)
	if err != nil {
		uc.logger.Warn("invalid photo id in event, skipping", "photo_id", event.PhotoID)
		return nil
	}

	photo, err := uc.photoStorage.GetPhotoByID(ctx, photoID)
	if err != nil {
		return fmt.Errorf("usecase: ошибка при получении фото %s: %w: %w", photoID, domain.ErrStoreUnavailable, err)
	}
	if photo == nil {
		// фото удалили раньше, чем дошла очередь
		uc.logger.Info("photo gone before thumbnail generation", "photo_id", photoID)
		return nil
	}

	rc, err := uc.fileStorage.GetFile(ctx, photo.ObjectKey)
	if err != nil {
		return fmt.Errorf("usecase: ошибка при скачивании %s: %w", photo.ObjectKey, err)
	}
	original, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("usecase: ошибка чтения %s: %w", photo.ObjectKey, err)
	}

	thumb, err := uc.images.Thumbnail(original, uc.thumbnailSize)
	if err != nil {
		// битое изображение не станет лучше при повторе
		uc.logger.Warn("failed to generate thumbnail", "photo_id", photoID, "error", err)
		return nil
	}

	key := fmt.Sprintf("thumbnails/%s/%d_%s", photo.UserID, uc.now().UnixMilli(), path.Base(photo.ObjectKey))
	url, err := uc.fileStorage.UploadFile(ctx, key, bytes.NewReader(thumb), "image/jpeg")
	if err != nil {
		return fmt.Errorf("usecase: ошибка загрузки миниатюры %s: %w: %w", key, domain.ErrUploadFailed, err)
	}
	if err := uc.photoStorage.UpdateThumbnail(ctx, photoID, url); err != nil {
		return fmt.Errorf("usecase: ошибка при сохранении миниатюры: %w: %w", domain.ErrStoreUnavailable, err)
	}

	uc.logger.Info("thumbnail generated",
		"photo_id", photoID,
		"key", key,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (uc *photoUseCase) publish(ctx context.Context, event payloads.PhotoEventPayload) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishPhotoEvent(ctx, event); err != nil {
		uc.logger.Warn("failed to publish photo event", "type", event.Type, "photo_id", event.PhotoID, "error", err)
	}
}

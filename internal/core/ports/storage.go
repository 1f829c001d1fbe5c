package ports

import (
	"context"
	"io"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/google/uuid"
)

// PhotoStorage определяет методы для взаимодействия с хранилищем фотографий профиля.
// Отсутствующая запись возвращается как (nil, nil).
type PhotoStorage interface {
	SavePhoto(ctx context.Context, photo *domain.ProfilePhoto) error
	GetPhotoByID(ctx context.Context, id uuid.UUID) (*domain.ProfilePhoto, error)
	ListPhotosByOwner(ctx context.Context, ownerID string) ([]domain.ProfilePhoto, error)
	CountPhotosByOwner(ctx context.Context, ownerID string) (int, error)
	// SetPrimaryPhoto в одной транзакции снимает флаг с остальных фото владельца и выставляет его photoID.
	// Возвращает false, если photoID не принадлежит владельцу (ничего не меняется).
	SetPrimaryPhoto(ctx context.Context, ownerID string, photoID uuid.UUID) (bool, error)
	UpdateThumbnail(ctx context.Context, id uuid.UUID, thumbnailURL string) error
	DeletePhoto(ctx context.Context, id uuid.UUID) (bool, error)
}

// UserStorage определяет методы для взаимодействия с хранилищем профилей
type UserStorage interface {
	GetUser(ctx context.Context, uid string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, uid string, update domain.ProfileUpdate) (*domain.User, error)
	ListProviders(ctx context.Context) ([]domain.User, error)
}

// ServiceStorage определяет методы для работы с услугами исполнителей
type ServiceStorage interface {
	CreateService(ctx context.Context, service *domain.Service) error
	ListServicesByProvider(ctx context.Context, providerID string) ([]domain.Service, error)
	ListActiveServices(ctx context.Context) ([]domain.Service, error)
}

// FileStorage определяет интерфейс для работы с файловым хранилищем (AWS S3, MinIO)
// порт для хранения бинарных данных (самих изображений)
type FileStorage interface {
	// UploadFile загружает файл в хранилище и возвращает его публичный URL.
	UploadFile(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)

	// GetFile возвращает содержимое файла по ключу. Вызывающий закрывает reader.
	GetFile(ctx context.Context, key string) (io.ReadCloser, error)
}

// ImageProcessor перекодирует изображения (кадры камеры, миниатюры)
type ImageProcessor interface {
	EncodeJPEG(data []byte, quality int) ([]byte, error)
	Thumbnail(data []byte, size int) ([]byte, error)
}

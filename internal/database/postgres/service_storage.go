package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormServiceStorage реализует ports.ServiceStorage
type GormServiceStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormServiceStorage(db *gorm.DB, logger *slog.Logger) *GormServiceStorage {
	return &GormServiceStorage{db: db, logger: logger}
}

// CreateService сохраняет услугу
func (s *GormServiceStorage) CreateService(ctx context.Context, service *domain.Service) error {
	start := time.Now()

	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}

	result := s.db.WithContext(ctx).Create(service)
	if result.Error != nil {
		s.logger.Error("failed to create service", "provider_id", service.ProviderID, "error", result.Error)
		return fmt.Errorf("ошибка при сохранении услуги с GORM: %w", result.Error)
	}

	s.logger.Info("service created",
		"id", service.ID,
		"provider_id", service.ProviderID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ListServicesByProvider возвращает услуги исполнителя, новые первыми
func (s *GormServiceStorage) ListServicesByProvider(ctx context.Context, providerID string) ([]domain.Service, error) {
	services := []domain.Service{}
	result := s.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at DESC").
		Find(&services)
	if result.Error != nil {
		return nil, fmt.Errorf("ошибка при получении услуг исполнителя с GORM: %w", result.Error)
	}
	return services, nil
}

// ListActiveServices возвращает все активные услуги, новые первыми
func (s *GormServiceStorage) ListActiveServices(ctx context.Context) ([]domain.Service, error) {
	services := []domain.Service{}
	result := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&services)
	if result.Error != nil {
		return nil, fmt.Errorf("ошибка при получении активных услуг с GORM: %w", result.Error)
	}
	return services, nil
}

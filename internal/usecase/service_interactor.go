package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GoArmGo/MarketApp/internal/core/ports"
	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/google/uuid"
)

type serviceUseCase struct {
	serviceStorage ports.ServiceStorage
	userStorage    ports.UserStorage
	photoStorage   ports.PhotoStorage
	logger         *slog.Logger
	now            func() time.Time
}

// NewServiceUseCase создает новый экземпляр ServiceUseCase
func NewServiceUseCase(
	serviceStorage ports.ServiceStorage,
	userStorage ports.UserStorage,
	photoStorage ports.PhotoStorage,
	logger *slog.Logger,
) ServiceUseCase {
	return &serviceUseCase{
		serviceStorage: serviceStorage,
		userStorage:    userStorage,
		photoStorage:   photoStorage,
		logger:         logger,
		now:            time.Now,
	}
}

func validateNewService(input domain.NewService) error {
	switch {
	case strings.TrimSpace(input.Title) == "":
		return fmt.Errorf("%w: не указано название услуги", domain.ErrValidation)
	case strings.TrimSpace(input.Category) == "":
		return fmt.Errorf("%w: не указана категория", domain.ErrValidation)
	case input.Price < 0:
		return fmt.Errorf("%w: цена не может быть отрицательной", domain.ErrValidation)
	case input.Duration <= 0:
		return fmt.Errorf("%w: длительность должна быть больше нуля", domain.ErrValidation)
	}
	return nil
}

// CreateService создает активную услугу. Доступно только исполнителям.
func (uc *serviceUseCase) CreateService(ctx context.Context, providerID string, input domain.NewService) (*domain.Service, error) {
	if err := validateNewService(input); err != nil {
		return nil, fmt.Errorf("usecase: %w", err)
	}

	user, err := uc.userStorage.GetUser(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении профиля %s: %w: %w", providerID, domain.ErrStoreUnavailable, err)
	}
	if user == nil || !user.Provider() {
		return nil, fmt.Errorf("usecase: пользователь %s не является исполнителем: %w", providerID, domain.ErrForbidden)
	}

	service := &domain.Service{
		ID:          uuid.New(),
		ProviderID:  providerID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Duration:    input.Duration,
		Category:    strings.TrimSpace(input.Category),
		CreatedAt:   uc.now().UTC(),
		IsActive:    true,
	}
	if err := uc.serviceStorage.CreateService(ctx, service); err != nil {
		return nil, fmt.Errorf("usecase: ошибка при создании услуги: %w: %w", domain.ErrStoreUnavailable, err)
	}

	uc.logger.Info("service created", "id", service.ID, "provider_id", providerID)
	return service, nil
}

// ListProviderServices возвращает услуги исполнителя, новые первыми
func (uc *serviceUseCase) ListProviderServices(ctx context.Context, providerID string) ([]domain.Service, error) {
	services, err := uc.serviceStorage.ListServicesByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении услуг исполнителя %s: %w: %w", providerID, domain.ErrStoreUnavailable, err)
	}
	return services, nil
}

// ListActiveServices возвращает активные услуги вместе с профилем и фото исполнителя
func (uc *serviceUseCase) ListActiveServices(ctx context.Context) ([]domain.ServiceListing, error) {
	start := time.Now()

	services, err := uc.serviceStorage.ListActiveServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении услуг: %w: %w", domain.ErrStoreUnavailable, err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, s := range services {
		if _, ok := seen[s.ProviderID]; !ok {
			seen[s.ProviderID] = struct{}{}
			ids = append(ids, s.ProviderID)
		}
	}

	profiles, photos, err := providerDetails(ctx, uc.userStorage, uc.photoStorage, ids)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении данных исполнителей: %w: %w", domain.ErrStoreUnavailable, err)
	}

	listings := make([]domain.ServiceListing, 0, len(services))
	for _, s := range services {
		set := photos[s.ProviderID]
		if set == nil {
			set = []domain.ProfilePhoto{}
		}
		listings = append(listings, domain.ServiceListing{
			Service:         s,
			ProviderProfile: profiles[s.ProviderID],
			ProviderPhotos:  set,
		})
	}

	uc.logger.Debug("active services listed",
		"count", len(listings),
		"providers", len(ids),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return listings, nil
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/GoArmGo/MarketApp/internal/core/ports"
	"github.com/GoArmGo/MarketApp/internal/domain"
	"golang.org/x/sync/errgroup"
)

// fanOutLimit ограничивает число параллельных запросов к хранилищу при сборке списков
const fanOutLimit = 8

var phonePattern = regexp.MustCompile(`^[\d\s+\-()]+$`)

type profileUseCase struct {
	userStorage  ports.UserStorage
	photoStorage ports.PhotoStorage
	logger       *slog.Logger
	now          func() time.Time
}

// NewProfileUseCase создает новый экземпляр ProfileUseCase
func NewProfileUseCase(userStorage ports.UserStorage, photoStorage ports.PhotoStorage, logger *slog.Logger) ProfileUseCase {
	return &profileUseCase{
		userStorage:  userStorage,
		photoStorage: photoStorage,
		logger:       logger,
		now:          time.Now,
	}
}

// GetOrCreateProfile возвращает профиль пользователя, создавая его при первом обращении
func (uc *profileUseCase) GetOrCreateProfile(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := uc.userStorage.GetUser(ctx, identity.UID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении профиля %s: %w: %w", identity.UID, domain.ErrStoreUnavailable, err)
	}
	if user != nil {
		return user, nil
	}

	no := false
	user = &domain.User{
		UID:        identity.UID,
		Email:      identity.Email,
		IsProvider: &no,
		IsClient:   &no,
		CreatedAt:  uc.now().UTC(),
	}
	if name := strings.TrimSpace(identity.DisplayName); name != "" {
		user.DisplayName = &name
	}

	if err := uc.userStorage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("usecase: ошибка при создании профиля %s: %w: %w", identity.UID, domain.ErrStoreUnavailable, err)
	}

	// профиль мог создать параллельный запрос, читаем сохраненную версию
	stored, err := uc.userStorage.GetUser(ctx, identity.UID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении профиля %s: %w: %w", identity.UID, domain.ErrStoreUnavailable, err)
	}
	if stored == nil {
		return user, nil
	}
	uc.logger.Info("profile created", "uid", identity.UID)
	return stored, nil
}

// GetProfile возвращает профиль или domain.ErrNotFound
func (uc *profileUseCase) GetProfile(ctx context.Context, uid string) (*domain.User, error) {
	user, err := uc.userStorage.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении профиля %s: %w: %w", uid, domain.ErrStoreUnavailable, err)
	}
	if user == nil {
		return nil, fmt.Errorf("usecase: профиль %s: %w", uid, domain.ErrNotFound)
	}
	return user, nil
}

// UpdateProfile частично обновляет профиль. Пустой телефон или адрес очищают поле.
func (uc *profileUseCase) UpdateProfile(ctx context.Context, uid string, update domain.ProfileUpdate) (*domain.User, error) {
	if update.PhoneNumber != nil {
		phone := strings.TrimSpace(*update.PhoneNumber)
		if phone != "" && !phonePattern.MatchString(phone) {
			return nil, fmt.Errorf("usecase: %w: некорректный номер телефона", domain.ErrValidation)
		}
		update.PhoneNumber = &phone
	}
	if update.Location != nil {
		location := strings.TrimSpace(*update.Location)
		update.Location = &location
	}
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		update.DisplayName = &name
	}

	user, err := uc.userStorage.UpdateUser(ctx, uid, update)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при обновлении профиля %s: %w: %w", uid, domain.ErrStoreUnavailable, err)
	}
	if user == nil {
		return nil, fmt.Errorf("usecase: профиль %s: %w", uid, domain.ErrNotFound)
	}
	return user, nil
}

// ListProviders возвращает исполнителей с их фотографиями
func (uc *profileUseCase) ListProviders(ctx context.Context) ([]domain.ProviderCard, error) {
	start := time.Now()

	providers, err := uc.userStorage.ListProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении исполнителей: %w: %w", domain.ErrStoreUnavailable, err)
	}

	cards := make([]domain.ProviderCard, len(providers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, p := range providers {
		g.Go(func() error {
			photos, err := uc.photoStorage.ListPhotosByOwner(gctx, p.UID)
			if err != nil {
				return err
			}
			cards[i] = domain.ProviderCard{Profile: p, Photos: photos}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении фото исполнителей: %w: %w", domain.ErrStoreUnavailable, err)
	}

	uc.logger.Debug("providers listed", "count", len(cards), "duration_ms", time.Since(start).Milliseconds())
	return cards, nil
}

// providerDetails загружает профили и фото исполнителей параллельно
func providerDetails(ctx context.Context, users ports.UserStorage, photos ports.PhotoStorage, ids []string) (map[string]*domain.User, map[string][]domain.ProfilePhoto, error) {
	var mu sync.Mutex
	profiles := make(map[string]*domain.User, len(ids))
	photoSets := make(map[string][]domain.ProfilePhoto, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for _, id := range ids {
		g.Go(func() error {
			user, err := users.GetUser(gctx, id)
			if err != nil {
				return err
			}
			set, err := photos.ListPhotosByOwner(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			profiles[id] = user
			photoSets[id] = set
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return profiles, photoSets, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"gorm.io/gorm"
)

// GormUserStorage реализует интерфейс ports.UserStorage с использованием GORM
type GormUserStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewGormUserStorage создает новый экземпляр GormUserStorage
func NewGormUserStorage(db *gorm.DB, logger *slog.Logger) *GormUserStorage {
	return &GormUserStorage{db: db, logger: logger}
}

// GetUser получает профиль по uid, (nil, nil) если профиля нет
func (s *GormUserStorage) GetUser(ctx context.Context, uid string) (*domain.User, error) {
	var user domain.User
	result := s.db.WithContext(ctx).First(&user, "uid = ?", uid)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("failed to get user", "uid", uid, "error", result.Error)
		return nil, fmt.Errorf("ошибка при получении профиля с GORM: %w", result.Error)
	}
	return &user, nil
}

// CreateUser создает профиль. Если профиль уже есть (параллельный get-or-create),
// ничего не делает.
func (s *GormUserStorage) CreateUser(ctx context.Context, user *domain.User) error {
	start := time.Now()

	result := s.db.WithContext(ctx).
		Exec(`INSERT INTO users (uid, email, display_name, is_provider, is_client, phone_number, location, created_at, is_verified)
		      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (uid) DO NOTHING`,
			user.UID, user.Email, user.DisplayName, user.IsProvider, user.IsClient,
			user.PhoneNumber, user.Location, user.CreatedAt, user.IsVerified)
	if result.Error != nil {
		s.logger.Error("failed to create user", "uid", user.UID, "error", result.Error)
		return fmt.Errorf("ошибка при создании профиля с GORM: %w", result.Error)
	}

	s.logger.Info("user profile created",
		"uid", user.UID,
		"inserted", result.RowsAffected > 0,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// UpdateUser применяет частичное обновление; пустые строки записываются как NULL
func (s *GormUserStorage) UpdateUser(ctx context.Context, uid string, update domain.ProfileUpdate) (*domain.User, error) {
	updates := map[string]any{}
	if update.DisplayName != nil {
		updates["display_name"] = nullIfBlank(*update.DisplayName)
	}
	if update.IsProvider != nil {
		updates["is_provider"] = *update.IsProvider
	}
	if update.IsClient != nil {
		updates["is_client"] = *update.IsClient
	}
	if update.PhoneNumber != nil {
		updates["phone_number"] = nullIfBlank(*update.PhoneNumber)
	}
	if update.Location != nil {
		updates["location"] = nullIfBlank(*update.Location)
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&domain.User{}).Where("uid = ?", uid).Updates(updates)
		if result.Error != nil {
			s.logger.Error("failed to update user", "uid", uid, "error", result.Error)
			return nil, fmt.Errorf("ошибка при обновлении профиля с GORM: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, nil
		}
		s.logger.Info("user profile updated", "uid", uid, "fields", len(updates))
	}

	return s.GetUser(ctx, uid)
}

// ListProviders возвращает профили исполнителей
func (s *GormUserStorage) ListProviders(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	result := s.db.WithContext(ctx).
		Where("is_provider = ?", true).
		Order("created_at DESC").
		Find(&users)
	if result.Error != nil {
		s.logger.Error("failed to list providers", "error", result.Error)
		return nil, fmt.Errorf("ошибка при получении исполнителей с GORM: %w", result.Error)
	}
	return users, nil
}

func nullIfBlank(v string) any {
	if v == "" {
		return nil
	}
	return v
}

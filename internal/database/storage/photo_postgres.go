package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// уникальный частичный индекс "одна основная фотография на пользователя"
const onePrimaryIndex = "profile_photos_one_primary_idx"

type PostgresStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresStorage(db *sqlx.DB, logger *slog.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// SavePhoto сохраняет запись о фотографии.
// Если запись помечена основной, а у владельца основная уже появилась
// (гонка параллельных загрузок), запись сохраняется как обычная и photo.IsPrimary сбрасывается.
func (s *PostgresStorage) SavePhoto(ctx context.Context, photo *domain.ProfilePhoto) error {
	start := time.Now()

	if photo.ID == uuid.Nil {
		photo.ID = uuid.New()
	}
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO profile_photos (id, user_id, url, object_key, thumbnail_url, uploaded_at, is_primary)
	VALUES (:id, :user_id, :url, :object_key, :thumbnail_url, :uploaded_at, :is_primary)
	`

	_, err := s.db.NamedExecContext(ctx, query, photo)
	if err != nil && photo.IsPrimary && isUniqueViolation(err, onePrimaryIndex) {
		s.logger.Warn("primary photo already exists, saving as regular",
			"id", photo.ID,
			"user_id", photo.UserID,
		)
		photo.IsPrimary = false
		_, err = s.db.NamedExecContext(ctx, query, photo)
	}
	if err != nil {
		s.logger.Error("failed to save photo", "user_id", photo.UserID, "error", err)
		return fmt.Errorf("ошибка при сохранении фото: %w", err)
	}

	s.logger.Info("photo saved successfully",
		"id", photo.ID,
		"user_id", photo.UserID,
		"is_primary", photo.IsPrimary,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// GetPhotoByID получает фото по ID
func (s *PostgresStorage) GetPhotoByID(ctx context.Context, id uuid.UUID) (*domain.ProfilePhoto, error) {
	start := time.Now()

	var photo domain.ProfilePhoto
	query := `SELECT * FROM profile_photos WHERE id = $1 LIMIT 1`

	err := s.db.GetContext(ctx, &photo, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("photo not found by id", "id", id)
			return nil, nil
		}
		s.logger.Error("failed to get photo by id", "id", id, "error", err)
		return nil, fmt.Errorf("ошибка при получении фото по ID: %w", err)
	}

	s.logger.Debug("photo retrieved by id",
		"id", id,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &photo, nil
}

// ListPhotosByOwner получает фото пользователя, новые первыми
func (s *PostgresStorage) ListPhotosByOwner(ctx context.Context, ownerID string) ([]domain.ProfilePhoto, error) {
	start := time.Now()

	q := `
	SELECT * FROM profile_photos
	WHERE user_id = $1
	ORDER BY uploaded_at DESC, id DESC
	`

	photos := []domain.ProfilePhoto{}
	if err := s.db.SelectContext(ctx, &photos, q, ownerID); err != nil {
		s.logger.Error("failed to list photos", "user_id", ownerID, "error", err)
		return nil, fmt.Errorf("ошибка при получении списка фото: %w", err)
	}

	s.logger.Debug("listed photos successfully",
		"user_id", ownerID,
		"count", len(photos),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return photos, nil
}

// CountPhotosByOwner считает фото пользователя
func (s *PostgresStorage) CountPhotosByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM profile_photos WHERE user_id = $1`, ownerID); err != nil {
		s.logger.Error("failed to count photos", "user_id", ownerID, "error", err)
		return 0, fmt.Errorf("ошибка при подсчете фото: %w", err)
	}
	return n, nil
}

// SetPrimaryPhoto в одной транзакции делает photoID единственной основной фотографией владельца.
// Если фото не принадлежит владельцу, ничего не меняется и возвращается false.
func (s *PostgresStorage) SetPrimaryPhoto(ctx context.Context, ownerID string, photoID uuid.UUID) (bool, error) {
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM profile_photos WHERE id = $1 AND user_id = $2)`, photoID, ownerID)
	if err != nil {
		s.logger.Error("failed to check photo owner", "id", photoID, "user_id", ownerID, "error", err)
		return false, fmt.Errorf("ошибка при проверке владельца фото: %w", err)
	}
	if !exists {
		return false, nil
	}

	// сначала снимаем флаг, иначе уникальный индекс сработает на середине
	if _, err := tx.ExecContext(ctx,
		`UPDATE profile_photos SET is_primary = false WHERE user_id = $1 AND is_primary AND id <> $2`,
		ownerID, photoID); err != nil {
		s.logger.Error("failed to reset primary photos", "user_id", ownerID, "error", err)
		return false, fmt.Errorf("ошибка при сбросе основного фото: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE profile_photos SET is_primary = true WHERE id = $1 AND user_id = $2`,
		photoID, ownerID); err != nil {
		s.logger.Error("failed to set primary photo", "id", photoID, "error", err)
		return false, fmt.Errorf("ошибка при установке основного фото: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	s.logger.Info("primary photo set",
		"id", photoID,
		"user_id", ownerID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true, nil
}

// UpdateThumbnail сохраняет ссылку на миниатюру
func (s *PostgresStorage) UpdateThumbnail(ctx context.Context, id uuid.UUID, thumbnailURL string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE profile_photos SET thumbnail_url = $1 WHERE id = $2`, thumbnailURL, id)
	if err != nil {
		s.logger.Error("failed to update thumbnail", "id", id, "error", err)
		return fmt.Errorf("ошибка при сохранении миниатюры: %w", err)
	}
	return nil
}

// DeletePhoto удаляет запись о фото. Возвращает false, если записи не было.
func (s *PostgresStorage) DeletePhoto(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profile_photos WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to delete photo", "id", id, "error", err)
		return false, fmt.Errorf("ошибка при удалении фото: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка при удалении фото: %w", err)
	}

	s.logger.Info("photo deleted", "id", id, "deleted", n > 0)
	return n > 0, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && pqErr.Constraint == constraint
}

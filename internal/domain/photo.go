package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProfilePhoto представляет фотографию профиля пользователя,
// соответствует таблице profile_photos в бд
type ProfilePhoto struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       string    `json:"userId" db:"user_id"`
	URL          string    `json:"url" db:"url"`
	ObjectKey    string    `json:"-" db:"object_key"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty" db:"thumbnail_url"`
	UploadedAt   time.Time `json:"uploadedAt" db:"uploaded_at"`
	IsPrimary    bool      `json:"isPrimary" db:"is_primary"`
}

// PrimaryPhoto возвращает основную фотографию из набора или nil
func PrimaryPhoto(photos []ProfilePhoto) *ProfilePhoto {
	for i := range photos {
		if photos[i].IsPrimary {
			return &photos[i]
		}
	}
	return nil
}

// CountPrimary считает фотографии с флагом isPrimary
func CountPrimary(photos []ProfilePhoto) int {
	n := 0
	for _, p := range photos {
		if p.IsPrimary {
			n++
		}
	}
	return n
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Service - услуга, которую предлагает исполнитель.
// Соответствует таблице 'services'.
type Service struct {
	ID          uuid.UUID `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	ProviderID  string    `json:"providerId" gorm:"column:provider_id"`
	Title       string    `json:"title" gorm:"column:title"`
	Description string    `json:"description" gorm:"column:description"`
	Price       float64   `json:"price" gorm:"column:price"`
	Duration    int       `json:"duration" gorm:"column:duration"` // в минутах
	Category    string    `json:"category" gorm:"column:category"`
	CreatedAt   time.Time `json:"createdAt" gorm:"column:created_at"`
	IsActive    bool      `json:"isActive" gorm:"column:is_active"`
}

func (Service) TableName() string {
	return "services"
}

// NewService - входные данные для создания услуги
type NewService struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Duration    int     `json:"duration"`
	Category    string  `json:"category"`
}

// ServiceListing - услуга вместе с профилем и фото исполнителя (для каталога)
type ServiceListing struct {
	Service
	ProviderProfile *User          `json:"providerProfile,omitempty"`
	ProviderPhotos  []ProfilePhoto `json:"providerPhotos"`
}

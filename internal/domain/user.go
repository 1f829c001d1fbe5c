package domain

import (
	"time"
)

// User представляет профиль пользователя маркетплейса.
// Соответствует таблице 'users' в базе данных.
type User struct {
	UID         string    `json:"uid" gorm:"column:uid;primaryKey"`
	Email       string    `json:"email" gorm:"column:email"`
	DisplayName *string   `json:"displayName,omitempty" gorm:"column:display_name"`
	IsProvider  *bool     `json:"isProvider,omitempty" gorm:"column:is_provider"`
	IsClient    *bool     `json:"isClient,omitempty" gorm:"column:is_client"`
	PhoneNumber *string   `json:"phoneNumber,omitempty" gorm:"column:phone_number"`
	Location    *string   `json:"location,omitempty" gorm:"column:location"`
	CreatedAt   time.Time `json:"createdAt" gorm:"column:created_at"`
	IsVerified  bool      `json:"isVerified" gorm:"column:is_verified"`
}

func (User) TableName() string {
	return "users"
}

// Provider сообщает, предлагает ли пользователь услуги
func (u User) Provider() bool {
	return u.IsProvider != nil && *u.IsProvider
}

// ProfileUpdate описывает частичное обновление профиля.
// nil означает "не менять", пустая строка очищает поле.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName"`
	IsProvider  *bool   `json:"isProvider"`
	IsClient    *bool   `json:"isClient"`
	PhoneNumber *string `json:"phoneNumber"`
	Location    *string `json:"location"`
}

// ProviderCard - профиль исполнителя вместе с его фотографиями
type ProviderCard struct {
	Profile User           `json:"profile"`
	Photos  []ProfilePhoto `json:"photos"`
}

// Identity - данные пользователя из токена доступа
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Package auth проверяет токены доступа, выданные внешним провайдером идентификации.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims - поля токена доступа
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity переводит claims в доменную модель
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{UID: c.UserID, Email: c.Email, DisplayName: c.Name}
}

// Verifier проверяет токены, подписанные HS256
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// ParseToken проверяет подпись и срок действия токена
func (v *Verifier) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken выпускает токен (используется в тестах и локальной разработке)
func (v *Verifier) GenerateToken(identity domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: identity.UID,
		Email:  identity.Email,
		Name:   identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

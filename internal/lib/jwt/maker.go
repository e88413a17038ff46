// Package jwt выпускает и проверяет токены доступа LMS.
package jwt

import (
	"time"
)

// Maker выпускает токен для пользователя и разбирает его обратно.
type Maker interface {
	GenerateToken(userID int64, email, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl подписывает токены HS256 секретным ключом.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт MakerImpl с заданным ключом и временем жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

package models

import (
	"errors"
	"fmt"
)

// Ошибки предметной области. Обработчики HTTP сопоставляют их со статусами ответа.
var (
	// ErrPermissionDenied действие запрещено политикой доступа.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound запрошенная запись отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrNotSubscribed у пользователя нет активной подписки на курс.
	ErrNotSubscribed = fmt.Errorf("not subscribed: %w", ErrNotFound)
	// ErrInvalidCredentials неверная пара email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive учётная запись деактивирована.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrInvalidVideoSource ссылка на видео ведёт не на разрешённый хостинг.
	ErrInvalidVideoSource = &ValidationError{Field: "video_url", Message: "video must be hosted on youtube.com or youtu.be"}
)

// ValidationError ошибка валидации входных данных с указанием поля.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Message)
}

// NewValidationError создаёт ошибку валидации для поля.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Package models содержит доменные структуры LMS: пользователей, курсы, уроки,
// подписки, платежи и задания на отправку уведомлений.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	City         string     `json:"city,omitempty"`
	IsAdmin      bool       `json:"is_admin"`
	IsModerator  bool       `json:"is_moderator"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

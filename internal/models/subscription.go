package models

import "time"

// Subscription связь пользователя с курсом. Для пары (UserID, CourseID)
// существует не более одной записи, повторная подписка её реактивирует.
type Subscription struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	CourseID     int64     `json:"course_id"`
	IsActive     bool      `json:"is_active"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

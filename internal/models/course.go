package models

import "time"

// Course учебный курс. OwnerID равен nil, если владелец удалён.
type Course struct {
	ID                   int64      `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	OwnerID              *int64     `json:"owner_id"`
	Price                int64      `json:"price"`
	LastNotificationSent *time.Time `json:"last_notification_sent,omitempty"`
	LessonsCount         int        `json:"lessons_count"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// CourseInput данные для создания курса.
type CourseInput struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"min=0"`
}

// CourseUpdate частичное обновление курса, nil означает "не менять".
type CourseUpdate struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" validate:"omitempty,min=0"`
}

// Lesson урок, принадлежит ровно одному курсу.
type Lesson struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoURL    string    `json:"video_url,omitempty"`
	OwnerID     *int64    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LessonInput данные для создания урока.
type LessonInput struct {
	CourseID    int64  `json:"course_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	VideoURL    string `json:"video_url"`
}

// LessonUpdate частичное обновление урока.
type LessonUpdate struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	VideoURL    *string `json:"video_url"`
}

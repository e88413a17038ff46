package models

import "time"

// NotificationKind тип письма.
type NotificationKind string

const (
	NotificationCourseUpdate     NotificationKind = "course_update"
	NotificationInactivityReport NotificationKind = "inactivity_report"
	NotificationWelcome          NotificationKind = "welcome"
	NotificationAccountUnblocked NotificationKind = "account_unblocked"
)

// Notification задание на отправку одного письма списку получателей.
// Публикуется в RabbitMQ и доставляется сервисом sender.
type Notification struct {
	ID         string           `json:"id"`
	Kind       NotificationKind `json:"kind"`
	Subject    string           `json:"subject"`
	Body       string           `json:"body"`
	Recipients []string         `json:"recipients"`
	CourseID   int64            `json:"course_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NotificationClaim результат попытки занять окно рассылки по курсу.
// Due истинно, если окно cooldown истекло. Claimed истинно, только если
// время последней рассылки сдвинуто и письмо нужно отправить Recipients.
type NotificationClaim struct {
	CourseID   int64
	Title      string
	Recipients []string
	Due        bool
	Claimed    bool
}

// Email одно письмо, готовое к отправке транспортом.
type Email struct {
	To      []string
	Subject string
	Body    string
}

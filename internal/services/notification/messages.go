package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

const signature = "\n\nС уважением,\nКоманда LMS платформы"

func newJob(kind models.NotificationKind, subject, body string, recipients []string) models.Notification {
	return models.Notification{
		ID:         uuid.NewString(),
		Kind:       kind,
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
		CreatedAt:  time.Now().UTC(),
	}
}

func courseLink(frontendURL string, courseID int64) string {
	return fmt.Sprintf("%s/courses/%d/", strings.TrimRight(frontendURL, "/"), courseID)
}

// CourseUpdated письмо подписчикам об изменении курса.
func CourseUpdated(frontendURL string, courseID int64, title string, recipients []string) models.Notification {
	body := fmt.Sprintf("Добрый день!\n\nКурс \"%s\" был обновлен.\n\n"+
		"Новые материалы уже доступны в вашем личном кабинете.\n\nСсылка на курс: %s",
		title, courseLink(frontendURL, courseID)) + signature
	job := newJob(models.NotificationCourseUpdate, "Обновление курса: "+title, body, recipients)
	job.CourseID = courseID
	return job
}

// LessonUpdated письмо подписчикам об изменении урока курса.
func LessonUpdated(frontendURL string, courseID int64, courseTitle, lessonTitle string, recipients []string) models.Notification {
	body := fmt.Sprintf("Добрый день!\n\nВ курсе \"%s\" был обновлен урок \"%s\".\n\n"+
		"Новые материалы уже доступны в вашем личном кабинете.\n\nСсылка на курс: %s",
		courseTitle, lessonTitle, courseLink(frontendURL, courseID)) + signature
	job := newJob(models.NotificationCourseUpdate, "Обновление курса: "+courseTitle, body, recipients)
	job.CourseID = courseID
	return job
}

// InactivityReport отчёт администраторам о деактивированных пользователях.
func InactivityReport(deactivated []string, at time.Time, admins []string) models.Notification {
	body := fmt.Sprintf("Отчет о выполнении периодической задачи:\n\n"+
		"Заблокировано неактивных пользователей: %d\n\nЗаблокированные пользователи:\n%s\n\n"+
		"Время выполнения: %s\n\nЭто автоматическое сообщение от системы LMS.",
		len(deactivated), strings.Join(deactivated, "\n"), at.Format(time.RFC3339))
	return newJob(models.NotificationInactivityReport, "Отчет о неактивных пользователях", body, admins)
}

// AccountUnblocked письмо пользователю о разблокировке.
func AccountUnblocked(frontendURL, email string) models.Notification {
	body := fmt.Sprintf("Добрый день!\n\nВаш аккаунт был разблокирован.\n\n"+
		"Теперь вы можете снова войти в систему по адресу:\n%s/login/",
		strings.TrimRight(frontendURL, "/")) + signature
	return newJob(models.NotificationAccountUnblocked, "Ваш аккаунт разблокирован", body, []string{email})
}

// Welcome приветственное письмо после регистрации.
func Welcome(frontendURL string, user *models.User) models.Notification {
	name := user.FirstName
	if name == "" {
		name = "пользователь"
	}
	body := fmt.Sprintf("Добро пожаловать в нашу образовательную платформу!\n\n"+
		"Ваш email для входа: %s\n\nНачните обучение прямо сейчас: %s", user.Email, frontendURL) + signature
	return newJob(models.NotificationWelcome, "Добро пожаловать в LMS, "+name+"!", body, []string{user.Email})
}

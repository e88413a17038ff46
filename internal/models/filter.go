package models

// Page параметры постраничной выборки.
type Page struct {
	Limit  int
	Offset int
}

// NewPage строит Page из номера страницы (с 1) и размера. Нулевой размер
// заменяется на defaultSize, слишком большой обрезается до maxSize.
func NewPage(page, size, defaultSize, maxSize int) Page {
	if size <= 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	if page < 1 {
		page = 1
	}
	return Page{Limit: size, Offset: (page - 1) * size}
}

// PaymentFilter фильтры списка платежей.
// UserID ограничивает выборку платежами одного пользователя.
type PaymentFilter struct {
	UserID    *int64
	CourseID  *int64
	LessonID  *int64
	Method    PaymentMethod
	Ascending bool
	Page      Page
}

// LessonFilter фильтры списка уроков.
type LessonFilter struct {
	OwnerID  *int64
	CourseID *int64
	Page     Page
}

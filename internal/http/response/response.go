// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON-ответов HTTP-обработчиков и сопоставления доменных
// ошибок со статусами HTTP.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lms-platform/internal/models"
	"github.com/magabrotheeeer/lms-platform/internal/paymentprovider"
)

// Response описывает стандартную структуру JSON-ответа сервера.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OK возвращает успешный Response без данных.
func OK() Response {
	return Response{Status: StatusOK}
}

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ответ с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response на основе ошибок валидатора.
// Каждое нарушение превращается в текст, сообщения объединяются через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "url":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid url", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// StatusFor сопоставляет ошибку сервиса со статусом HTTP.
func StatusFor(err error) int {
	var vErr *models.ValidationError
	var apiErr *paymentprovider.APIError
	switch {
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrPermissionDenied), errors.Is(err, models.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, paymentprovider.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, paymentprovider.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor текст ошибки для клиента. Внутренние детали не раскрываются.
func MessageFor(err error) string {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr.Error()
	case errors.Is(err, models.ErrNotSubscribed):
		return models.ErrNotSubscribed.Error()
	case errors.Is(err, models.ErrInvalidCredentials):
		return models.ErrInvalidCredentials.Error()
	case errors.Is(err, models.ErrAccountInactive):
		return models.ErrAccountInactive.Error()
	case errors.Is(err, models.ErrPermissionDenied):
		return models.ErrPermissionDenied.Error()
	case errors.Is(err, models.ErrNotFound):
		return models.ErrNotFound.Error()
	case errors.Is(err, paymentprovider.ErrInvalidSignature):
		return paymentprovider.ErrInvalidSignature.Error()
	case errors.Is(err, paymentprovider.ErrUnavailable):
		return paymentprovider.ErrUnavailable.Error()
	}
	if StatusFor(err) == http.StatusBadGateway {
		return "payment gateway error"
	}
	return "internal error"
}

// ServiceError пишет ответ с ошибкой сервиса.
func ServiceError(w http.ResponseWriter, r *http.Request, err error) {
	w.WriteHeader(StatusFor(err))
	render.JSON(w, r, Error(MessageFor(err)))
}

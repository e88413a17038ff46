package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, email, password, firstName string) (*models.User, error) {
	args := m.Called(ctx, email, password, firstName)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	args := m.Called(ctx, email, password)
	if res := args.Get(1); res != nil {
		return args.String(0), res.(*models.User), args.Error(2)
	}
	return args.String(0), nil, args.Error(2)
}

func (m *MockService) Me(ctx context.Context, actor access.Actor) (*models.User, error) {
	args := m.Called(ctx, actor)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestHandler_Register(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная регистрация",
			body: `{"email":"new@example.com","password":"secret123","first_name":"Анна"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, "new@example.com", "secret123", "Анна").
					Return(&models.User{ID: 1, Email: "new@example.com", IsActive: true}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"email":"new@example.com"`,
		},
		{
			name:           "некорректный email",
			body:           `{"email":"nope","password":"secret123"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Email must be a valid email`,
		},
		{
			name:           "короткий пароль",
			body:           `{"email":"new@example.com","password":"123"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Password must be at least 8`,
		},
		{
			name: "email занят",
			body: `{"email":"taken@example.com","password":"secret123"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, "taken@example.com", "secret123", "").
					Return(nil, fmt.Errorf("auth.Register: %w", models.NewValidationError("email", "already registered")))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `already registered`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			New(logger, svc).Register(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			assert.NotContains(t, w.Body.String(), "password")
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Login(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешный вход",
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "u@example.com", "secret123").
					Return("jwt-token", &models.User{ID: 1, Email: "u@example.com"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"token":"jwt-token"`,
		},
		{
			name: "неверный пароль",
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "u@example.com", "secret123").
					Return("", nil, models.ErrInvalidCredentials)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `invalid credentials`,
		},
		{
			name: "учетная запись деактивирована",
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "u@example.com", "secret123").
					Return("", nil, models.ErrAccountInactive)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `account is inactive`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/auth/login",
				strings.NewReader(`{"email":"u@example.com","password":"secret123"}`))
			w := httptest.NewRecorder()
			New(logger, svc).Login(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Me(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	actor := access.Actor{UserID: 1, Email: "u@example.com", Role: access.RoleUser}
	svc := new(MockService)
	svc.On("Me", mock.Anything, actor).Return(&models.User{ID: 1, Email: "u@example.com"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req = req.WithContext(middlewarectx.WithActor(req.Context(), actor))
	w := httptest.NewRecorder()
	New(logger, svc).Me(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":1`)
	svc.AssertExpectations(t)
}

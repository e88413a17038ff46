package course

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, actor access.Actor, input models.CourseInput) (*models.Course, error) {
	args := m.Called(ctx, actor, input)
	if res := args.Get(0); res != nil {
		return res.(*models.Course), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Get(ctx context.Context, actor access.Actor, id int64) (*models.Course, error) {
	args := m.Called(ctx, actor, id)
	if res := args.Get(0); res != nil {
		return res.(*models.Course), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) List(ctx context.Context, actor access.Actor, page, size int) ([]*models.Course, error) {
	args := m.Called(ctx, actor, page, size)
	if res := args.Get(0); res != nil {
		return res.([]*models.Course), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Update(ctx context.Context, actor access.Actor, id int64, upd models.CourseUpdate) (*models.Course, error) {
	args := m.Called(ctx, actor, id, upd)
	if res := args.Get(0); res != nil {
		return res.(*models.Course), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, actor access.Actor, id int64) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

var owner = access.Actor{UserID: 1, Email: "owner@example.com", Role: access.RoleUser}

func newRequest(method, url, body, id string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	} else {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
	}
	rctx := chi.NewRouteContext()
	if id != "" {
		rctx.URLParams.Add("id", id)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middlewarectx.WithActor(ctx, owner))
}

func TestHandler_Create(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное создание",
			body: `{"title":"Go","description":"курс","price":1000}`,
			setupMock: func(m *MockService) {
				in := models.CourseInput{Title: "Go", Description: "курс", Price: 1000}
				m.On("Create", mock.Anything, owner, in).Return(&models.Course{ID: 7, Title: "Go", Price: 1000}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":7`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"title":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "пустое название",
			body:           `{"title":""}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Title is a required field`,
		},
		{
			name:           "владелец задаётся сервером",
			body:           `{"title":"Go","owner_id":5}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name: "модератору запрещено",
			body: `{"title":"Go"}`,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, owner, models.CourseInput{Title: "Go"}).
					Return(nil, models.ErrPermissionDenied)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"permission denied"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			New(logger, svc).Create(w, newRequest(http.MethodPost, "/courses", tt.body, ""))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Get(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "курс найден",
			id:   "7",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, owner, int64(7)).Return(&models.Course{ID: 7, Title: "Go", LessonsCount: 3}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"lessons_count":3`,
		},
		{
			name:           "некорректный id",
			id:             "abc",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid id in url`,
		},
		{
			name: "курс не найден",
			id:   "8",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, owner, int64(8)).Return(nil, models.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `not found`,
		},
		{
			name: "ошибка базы не раскрывается",
			id:   "9",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, owner, int64(9)).Return(nil, errors.New("pq: connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			New(logger, svc).Get(w, newRequest(http.MethodGet, "/courses/"+tt.id, "", tt.id))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Price(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := new(MockService)
	svc.On("Get", mock.Anything, owner, int64(7)).
		Return(&models.Course{ID: 7, Title: "Go", Description: "d", Price: 4990}, nil)

	w := httptest.NewRecorder()
	New(logger, svc).Price(w, newRequest(http.MethodGet, "/courses/7/price", "", "7"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"title":"Go","description":"d","price":4990}`, w.Body.String())
}

func TestHandler_ListPagination(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := new(MockService)
	svc.On("List", mock.Anything, owner, 2, 5).Return([]*models.Course{{ID: 1}}, nil)

	w := httptest.NewRecorder()
	New(logger, svc).List(w, newRequest(http.MethodGet, "/courses?page=2&page_size=5", "", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)

	w = httptest.NewRecorder()
	New(logger, svc).List(w, newRequest(http.MethodGet, "/courses?page=x", "", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UpdatePartial(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := new(MockService)
	svc.On("Update", mock.Anything, owner, int64(7), mock.MatchedBy(func(u models.CourseUpdate) bool {
		return u.Title == nil && u.Price != nil && *u.Price == 500
	})).Return(&models.Course{ID: 7, Price: 500}, nil)

	w := httptest.NewRecorder()
	New(logger, svc).Update(w, newRequest(http.MethodPatch, "/courses/7", `{"price":500}`, "7"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"price":500`)
	svc.AssertExpectations(t)
}

func TestHandler_UpdateNegativePrice(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := new(MockService)

	w := httptest.NewRecorder()
	New(logger, svc).Update(w, newRequest(http.MethodPatch, "/courses/7", `{"price":-1}`, "7"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Delete(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "удалён", err: nil, expectedStatus: http.StatusNoContent},
		{name: "чужой курс", err: models.ErrPermissionDenied, expectedStatus: http.StatusForbidden},
		{name: "нет курса", err: models.ErrNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Delete", mock.Anything, owner, int64(7)).Return(tt.err)

			w := httptest.NewRecorder()
			New(logger, svc).Delete(w, newRequest(http.MethodDelete, "/courses/7", "", "7"))

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

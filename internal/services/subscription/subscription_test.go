package subscription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) Subscribe(ctx context.Context, userID, courseID int64) (*models.Subscription, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) Unsubscribe(ctx context.Context, userID, courseID int64) (*models.Subscription, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) ListSubscriptions(ctx context.Context, userID int64, page models.Page) ([]*models.Subscription, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var student = access.Actor{UserID: 5, Email: "student@example.com", Role: access.RoleUser}

func TestService_SubscribeTwiceKeepsOneActiveRecord(t *testing.T) {
	repo := new(RepoMock)
	sub := &models.Subscription{ID: 1, UserID: 5, CourseID: 9, IsActive: true}
	repo.On("Subscribe", mock.Anything, int64(5), int64(9)).Return(sub, nil).Twice()

	s := NewService(repo, newNoopLogger())
	first, err := s.Subscribe(context.Background(), student, 9)
	require.NoError(t, err)
	second, err := s.Subscribe(context.Background(), student, 9)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsActive)
	repo.AssertExpectations(t)
}

func TestService_Subscribe(t *testing.T) {
	tests := []struct {
		name    string
		actor   access.Actor
		setup   func(*RepoMock)
		wantErr error
	}{
		{
			name:  "unknown course",
			actor: student,
			setup: func(r *RepoMock) {
				r.On("Subscribe", mock.Anything, int64(5), int64(9)).
					Return(nil, fmt.Errorf("storage.Subscribe: %w", models.ErrNotFound)).Once()
			},
			wantErr: models.ErrNotFound,
		},
		{
			name:    "anonymous",
			actor:   access.Actor{},
			setup:   func(_ *RepoMock) {},
			wantErr: models.ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setup(repo)

			_, err := NewService(repo, newNoopLogger()).Subscribe(context.Background(), tt.actor, 9)
			require.ErrorIs(t, err, tt.wantErr)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_UnsubscribeNeverSubscribed(t *testing.T) {
	repo := new(RepoMock)
	repo.On("Unsubscribe", mock.Anything, int64(5), int64(9)).Return(nil, models.ErrNotSubscribed).Once()

	_, err := NewService(repo, newNoopLogger()).Unsubscribe(context.Background(), student, 9)
	require.ErrorIs(t, err, models.ErrNotSubscribed)
	assert.ErrorIs(t, err, models.ErrNotFound)
	repo.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ListPagination(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		limit    int
		wantPage models.Page
	}{
		{name: "defaults", page: 0, limit: 0, wantPage: models.Page{Limit: 20, Offset: 0}},
		{name: "second page", page: 2, limit: 10, wantPage: models.Page{Limit: 10, Offset: 10}},
		{name: "clamped", page: 1, limit: 1000, wantPage: models.Page{Limit: 100, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("ListSubscriptions", mock.Anything, int64(5), tt.wantPage).Return([]*models.Subscription{}, nil).Once()

			_, err := NewService(repo, newNoopLogger()).List(context.Background(), student, tt.page, tt.limit)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

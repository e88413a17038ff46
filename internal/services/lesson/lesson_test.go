package lesson

import (
	"context"
	"errors"
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

func (m *RepoMock) CreateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error) {
	args := m.Called(ctx, lesson)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lesson), args.Error(1)
}

func (m *RepoMock) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lesson), args.Error(1)
}

func (m *RepoMock) ListLessons(ctx context.Context, filter models.LessonFilter) ([]*models.Lesson, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lesson), args.Error(1)
}

func (m *RepoMock) UpdateLesson(ctx context.Context, id int64, upd models.LessonUpdate) (*models.Lesson, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lesson), args.Error(1)
}

func (m *RepoMock) DeleteLesson(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepoMock) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Invalidate(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) OnLessonUpdated(ctx context.Context, lesson *models.Lesson, course *models.Course) bool {
	return m.Called(ctx, lesson, course).Bool(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

var (
	owner     = access.Actor{UserID: 1, Role: access.RoleUser}
	other     = access.Actor{UserID: 2, Role: access.RoleUser}
	moderator = access.Actor{UserID: 3, Role: access.RoleModerator}
	admin     = access.Actor{UserID: 4, Role: access.RoleAdmin}

	parentCourse = &models.Course{ID: 7, Title: "Go", OwnerID: int64Ptr(1)}
)

func TestService_Create(t *testing.T) {
	tests := []struct {
		name      string
		actor     access.Actor
		input     models.LessonInput
		wantErr   error
		wantField string
	}{
		{name: "course owner", actor: owner, input: models.LessonInput{CourseID: 7, Title: "Intro", VideoURL: "https://youtu.be/abc123"}},
		{name: "admin", actor: admin, input: models.LessonInput{CourseID: 7, Title: "Intro"}},
		{name: "other user", actor: other, input: models.LessonInput{CourseID: 7, Title: "Intro"}, wantErr: models.ErrPermissionDenied},
		{name: "moderator", actor: moderator, input: models.LessonInput{CourseID: 7, Title: "Intro"}, wantErr: models.ErrPermissionDenied},
		{name: "foreign video host", actor: owner, input: models.LessonInput{CourseID: 7, Title: "Intro", VideoURL: "https://vimeo.com/123"}, wantField: "video_url"},
		{name: "blank title", actor: owner, input: models.LessonInput{CourseID: 7, Title: " "}, wantField: "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			c := new(CacheMock)
			repo.On("GetCourse", mock.Anything, int64(7)).Return(parentCourse, nil).Once()
			success := tt.wantErr == nil && tt.wantField == ""
			if success {
				repo.On("CreateLesson", mock.Anything, mock.MatchedBy(func(l models.Lesson) bool {
					return l.CourseID == 7 && l.OwnerID != nil && *l.OwnerID == tt.actor.UserID
				})).Return(&models.Lesson{ID: 11, CourseID: 7, Title: "Intro", OwnerID: int64Ptr(tt.actor.UserID)}, nil).Once()
				c.On("Invalidate", mock.Anything, []string{"course:7"}).Return(nil).Once()
			}

			n := new(NotifierMock)
			l, err := NewService(repo, c, n, access.NewPolicy(false), newNoopLogger()).
				Create(context.Background(), tt.actor, tt.input)

			switch {
			case success:
				require.NoError(t, err)
				assert.Equal(t, int64(11), l.ID)
			case tt.wantField != "":
				var vErr *models.ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, tt.wantField, vErr.Field)
			default:
				require.ErrorIs(t, err, tt.wantErr)
			}
			if !success {
				repo.AssertNotCalled(t, "CreateLesson", mock.Anything, mock.Anything)
			}
			n.AssertNotCalled(t, "OnLessonUpdated", mock.Anything, mock.Anything, mock.Anything)
			repo.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestService_CreateUnknownCourse(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetCourse", mock.Anything, int64(99)).Return(nil, models.ErrNotFound).Once()

	_, err := NewService(repo, new(CacheMock), new(NotifierMock), access.NewPolicy(false), newNoopLogger()).
		Create(context.Background(), owner, models.LessonInput{CourseID: 99, Title: "x"})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_UpdateNotifiesWithParentCourse(t *testing.T) {
	current := &models.Lesson{ID: 11, CourseID: 7, OwnerID: int64Ptr(1)}
	updated := &models.Lesson{ID: 11, CourseID: 7, Title: "New", OwnerID: int64Ptr(1)}
	upd := models.LessonUpdate{Title: strPtr("New")}

	for _, actor := range []access.Actor{owner, moderator, admin} {
		t.Run(actor.Role.String(), func(t *testing.T) {
			repo := new(RepoMock)
			n := new(NotifierMock)
			repo.On("GetLesson", mock.Anything, int64(11)).Return(current, nil).Once()
			repo.On("UpdateLesson", mock.Anything, int64(11), upd).Return(updated, nil).Once()
			repo.On("GetCourse", mock.Anything, int64(7)).Return(parentCourse, nil).Once()
			n.On("OnLessonUpdated", mock.Anything, updated, parentCourse).Return(true).Once()

			got, err := NewService(repo, new(CacheMock), n, access.NewPolicy(false), newNoopLogger()).
				Update(context.Background(), actor, 11, upd)
			require.NoError(t, err)
			assert.Equal(t, "New", got.Title)
			repo.AssertExpectations(t)
			n.AssertExpectations(t)
		})
	}
}

func TestService_UpdateRejected(t *testing.T) {
	current := &models.Lesson{ID: 11, CourseID: 7, OwnerID: int64Ptr(1)}

	tests := []struct {
		name    string
		actor   access.Actor
		upd     models.LessonUpdate
		isValid bool
	}{
		{name: "other user", actor: other, upd: models.LessonUpdate{Title: strPtr("x")}},
		{name: "bad video url", actor: owner, upd: models.LessonUpdate{VideoURL: strPtr("https://notyoutube.com.evil.example/x")}, isValid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			n := new(NotifierMock)
			repo.On("GetLesson", mock.Anything, int64(11)).Return(current, nil).Once()

			_, err := NewService(repo, new(CacheMock), n, access.NewPolicy(false), newNoopLogger()).
				Update(context.Background(), tt.actor, 11, tt.upd)
			if tt.isValid {
				require.ErrorIs(t, err, models.ErrInvalidVideoSource)
			} else {
				require.ErrorIs(t, err, models.ErrPermissionDenied)
			}
			repo.AssertNotCalled(t, "UpdateLesson", mock.Anything, mock.Anything, mock.Anything)
			n.AssertNotCalled(t, "OnLessonUpdated", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_UpdateParentLookupFailureKeepsUpdate(t *testing.T) {
	current := &models.Lesson{ID: 11, CourseID: 7, OwnerID: int64Ptr(1)}
	repo := new(RepoMock)
	n := new(NotifierMock)
	repo.On("GetLesson", mock.Anything, int64(11)).Return(current, nil).Once()
	repo.On("UpdateLesson", mock.Anything, int64(11), models.LessonUpdate{}).Return(current, nil).Once()
	repo.On("GetCourse", mock.Anything, int64(7)).Return(nil, errors.New("db down")).Once()

	got, err := NewService(repo, new(CacheMock), n, access.NewPolicy(false), newNoopLogger()).
		Update(context.Background(), owner, 11, models.LessonUpdate{})
	require.NoError(t, err)
	assert.Equal(t, current, got)
	n.AssertNotCalled(t, "OnLessonUpdated", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_List(t *testing.T) {
	tests := []struct {
		name      string
		actor     access.Actor
		courseID  *int64
		wantOwner *int64
	}{
		{name: "user own lessons", actor: owner, wantOwner: int64Ptr(1)},
		{name: "user own lessons in course", actor: owner, courseID: int64Ptr(7), wantOwner: int64Ptr(1)},
		{name: "moderator all", actor: moderator},
		{name: "admin all in course", actor: admin, courseID: int64Ptr(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			want := models.LessonFilter{OwnerID: tt.wantOwner, CourseID: tt.courseID, Page: models.Page{Limit: 15}}
			repo.On("ListLessons", mock.Anything, want).Return([]*models.Lesson{}, nil).Once()

			_, err := NewService(repo, new(CacheMock), new(NotifierMock), access.NewPolicy(false), newNoopLogger()).
				List(context.Background(), tt.actor, tt.courseID, 0, 0)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}

	t.Run("anonymous", func(t *testing.T) {
		_, err := NewService(new(RepoMock), new(CacheMock), new(NotifierMock), access.NewPolicy(false), newNoopLogger()).
			List(context.Background(), access.Actor{}, nil, 1, 10)
		require.ErrorIs(t, err, models.ErrPermissionDenied)
	})
}

func TestService_GetOtherDenied(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetLesson", mock.Anything, int64(11)).Return(&models.Lesson{ID: 11, OwnerID: int64Ptr(1)}, nil).Once()

	_, err := NewService(repo, new(CacheMock), new(NotifierMock), access.NewPolicy(false), newNoopLogger()).
		Get(context.Background(), other, 11)
	require.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestService_Delete(t *testing.T) {
	current := &models.Lesson{ID: 11, CourseID: 7, OwnerID: int64Ptr(1)}

	tests := []struct {
		name                 string
		actor                access.Actor
		adminDeleteOwnerOnly bool
		wantErr              error
	}{
		{name: "owner", actor: owner},
		{name: "owner with owner-only flag", actor: owner, adminDeleteOwnerOnly: true},
		{name: "admin bypass", actor: admin},
		{name: "admin owner-only", actor: admin, adminDeleteOwnerOnly: true, wantErr: models.ErrPermissionDenied},
		{name: "moderator", actor: moderator, wantErr: models.ErrPermissionDenied},
		{name: "other", actor: other, wantErr: models.ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			c := new(CacheMock)
			repo.On("GetLesson", mock.Anything, int64(11)).Return(current, nil).Once()
			if tt.wantErr == nil {
				repo.On("DeleteLesson", mock.Anything, int64(11)).Return(nil).Once()
				c.On("Invalidate", mock.Anything, []string{"course:7"}).Return(errors.New("redis down")).Once()
			}

			err := NewService(repo, c, new(NotifierMock), access.NewPolicy(tt.adminDeleteOwnerOnly), newNoopLogger()).
				Delete(context.Background(), tt.actor, 11)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "DeleteLesson", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

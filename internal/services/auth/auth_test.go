package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-platform/internal/lib/password"
	"github.com/magabrotheeeer/lms-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepoMock) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *UserRepoMock) SetUserActive(ctx context.Context, id int64, active bool) (*models.User, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) SetUserRole(ctx context.Context, email string, isAdmin, isModerator bool) (*models.User, error) {
	args := m.Called(ctx, email, isAdmin, isModerator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const testSecret = "test-secret"

func newTestService(repo *UserRepoMock, pub *PublisherMock) *Service {
	s := NewService(repo, jwt.NewJWTMaker(testSecret, time.Hour), pub, "https://lms.example.com", newNoopLogger())
	s.now = func() time.Time { return fixedNow }
	return s
}

func mustHash(t *testing.T, raw string) string {
	t.Helper()
	h, err := password.GetHash(raw)
	require.NoError(t, err)
	return h
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		setup     func(*UserRepoMock, *PublisherMock)
		wantField string
		wantErr   bool
	}{
		{
			name:     "success normalizes email and sends welcome",
			email:    "  Student@Example.COM ",
			password: "secret123",
			setup: func(r *UserRepoMock, p *PublisherMock) {
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Email == "student@example.com" &&
						u.PasswordHash != "" && u.PasswordHash != "secret123" &&
						u.IsActive && !u.IsAdmin && !u.IsModerator
				})).Return(int64(5), nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingAccount, mock.MatchedBy(func(n models.Notification) bool {
					return n.Kind == models.NotificationWelcome && assert.ObjectsAreEqual([]string{"student@example.com"}, n.Recipients)
				})).Return(nil).Once()
			},
		},
		{
			name:     "publish failure does not fail registration",
			email:    "a@example.com",
			password: "secret123",
			setup: func(r *UserRepoMock, p *PublisherMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(int64(6), nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingAccount, mock.Anything).Return(errors.New("broker down")).Once()
			},
		},
		{
			name:     "duplicate email",
			email:    "taken@example.com",
			password: "secret123",
			setup: func(r *UserRepoMock, _ *PublisherMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).
					Return(int64(0), models.NewValidationError("email", "already exists")).Once()
			},
			wantField: "email",
		},
		{
			name:      "empty password",
			email:     "a@example.com",
			setup:     func(_ *UserRepoMock, _ *PublisherMock) {},
			wantField: "password",
		},
		{
			name:      "empty email",
			email:     "  ",
			password:  "secret123",
			setup:     func(_ *UserRepoMock, _ *PublisherMock) {},
			wantField: "email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			pub := new(PublisherMock)
			tt.setup(repo, pub)

			u, err := newTestService(repo, pub).Register(context.Background(), tt.email, tt.password, "Ivan")
			if tt.wantField != "" {
				var vErr *models.ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, tt.wantField, vErr.Field)
				pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, u.ID)
			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	hash := mustHash(t, "secret123")

	tests := []struct {
		name     string
		password string
		setup    func(*UserRepoMock)
		wantErr  error
		wantRole string
	}{
		{
			name:     "moderator gets token with role",
			password: "secret123",
			setup: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "user@example.com").
					Return(&models.User{ID: 3, Email: "user@example.com", PasswordHash: hash, IsActive: true, IsModerator: true}, nil).Once()
				r.On("UpdateLastLogin", mock.Anything, int64(3), fixedNow).Return(nil).Once()
			},
			wantRole: "moderator",
		},
		{
			name:     "wrong password",
			password: "nope",
			setup: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "user@example.com").
					Return(&models.User{ID: 3, PasswordHash: hash, IsActive: true}, nil).Once()
			},
			wantErr: models.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			password: "secret123",
			setup: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "user@example.com").Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrInvalidCredentials,
		},
		{
			name:     "inactive account",
			password: "secret123",
			setup: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "user@example.com").
					Return(&models.User{ID: 3, PasswordHash: hash, IsActive: false}, nil).Once()
			},
			wantErr: models.ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			tt.setup(repo)

			token, user, err := newTestService(repo, new(PublisherMock)).Login(context.Background(), "User@Example.com", tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, user.LastLogin)
			assert.Equal(t, fixedNow, *user.LastLogin)

			claims, err := jwt.NewJWTMaker(testSecret, time.Hour).ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, int64(3), claims.UserID)
			assert.Equal(t, tt.wantRole, claims.Role)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Unblock(t *testing.T) {
	admin := access.Actor{UserID: 1, Role: access.RoleAdmin}
	moderator := access.Actor{UserID: 2, Role: access.RoleModerator}

	t.Run("admin unblocks and user is notified", func(t *testing.T) {
		repo := new(UserRepoMock)
		pub := new(PublisherMock)
		repo.On("SetUserActive", mock.Anything, int64(9), true).
			Return(&models.User{ID: 9, Email: "idle@example.com", IsActive: true}, nil).Once()
		pub.On("Publish", mock.Anything, rabbitmq.RoutingAccount, mock.MatchedBy(func(n models.Notification) bool {
			return n.Kind == models.NotificationAccountUnblocked && n.Recipients[0] == "idle@example.com"
		})).Return(nil).Once()

		u, err := newTestService(repo, pub).Unblock(context.Background(), admin, 9)
		require.NoError(t, err)
		assert.True(t, u.IsActive)
		repo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("moderator denied", func(t *testing.T) {
		repo := new(UserRepoMock)
		_, err := newTestService(repo, new(PublisherMock)).Unblock(context.Background(), moderator, 9)
		require.ErrorIs(t, err, models.ErrPermissionDenied)
		repo.AssertNotCalled(t, "SetUserActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("SetUserActive", mock.Anything, int64(9), true).Return(nil, models.ErrNotFound).Once()
		_, err := newTestService(repo, new(PublisherMock)).Unblock(context.Background(), admin, 9)
		require.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestService_UnblockByEmail(t *testing.T) {
	repo := new(UserRepoMock)
	pub := new(PublisherMock)
	repo.On("GetUserByEmail", mock.Anything, "idle@example.com").Return(&models.User{ID: 9, Email: "idle@example.com"}, nil).Once()
	repo.On("SetUserActive", mock.Anything, int64(9), true).Return(&models.User{ID: 9, Email: "idle@example.com", IsActive: true}, nil).Once()
	pub.On("Publish", mock.Anything, rabbitmq.RoutingAccount, mock.Anything).Return(nil).Once()

	_, err := newTestService(repo, pub).UnblockByEmail(context.Background(), "IDLE@example.com")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Promote(t *testing.T) {
	tests := []struct {
		role          access.Role
		wantAdmin     bool
		wantModerator bool
	}{
		{role: access.RoleModerator, wantModerator: true},
		{role: access.RoleAdmin, wantAdmin: true},
		{role: access.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			repo := new(UserRepoMock)
			repo.On("SetUserRole", mock.Anything, "m@example.com", tt.wantAdmin, tt.wantModerator).
				Return(&models.User{ID: 4, Email: "m@example.com"}, nil).Once()

			_, err := newTestService(repo, new(PublisherMock)).Promote(context.Background(), "M@example.com", tt.role)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Me(t *testing.T) {
	repo := new(UserRepoMock)
	repo.On("GetUser", mock.Anything, int64(3)).Return(&models.User{ID: 3, Email: "me@example.com"}, nil).Once()

	s := newTestService(repo, new(PublisherMock))
	u, err := s.Me(context.Background(), access.Actor{UserID: 3})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", u.Email)

	_, err = s.Me(context.Background(), access.Actor{})
	require.ErrorIs(t, err, models.ErrPermissionDenied)
}

// Package auth отвечает за учётные записи: регистрацию, вход по паролю,
// выдачу JWT и административные операции над пользователями.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-platform/internal/lib/password"
	"github.com/magabrotheeeer/lms-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
	"github.com/magabrotheeeer/lms-platform/internal/services/notification"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (int64, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	SetUserActive(ctx context.Context, id int64, active bool) (*models.User, error)
	SetUserRole(ctx context.Context, email string, isAdmin, isModerator bool) (*models.User, error)
}

// Publisher ставит письма в очередь отправки.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service регистрация, вход и управление учётными записями.
type Service struct {
	users       UserRepository
	jwtMaker    jwt.Maker
	publisher   Publisher
	frontendURL string
	log         *slog.Logger
	now         func() time.Time
}

// NewService создаёт Service.
func NewService(users UserRepository, jwtMaker jwt.Maker, publisher Publisher, frontendURL string, log *slog.Logger) *Service {
	return &Service{
		users:       users,
		jwtMaker:    jwtMaker,
		publisher:   publisher,
		frontendURL: frontendURL,
		log:         log,
		now:         time.Now,
	}
}

// NormalizeEmail приводит email к виду, в котором он хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт обычного пользователя и отправляет приветственное письмо.
// Занятый email возвращает ValidationError по полю email.
func (s *Service) Register(ctx context.Context, email, rawPassword, firstName string) (*models.User, error) {
	const op = "auth.Register"
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%s: %w", op, models.NewValidationError("email", "must not be empty"))
	}
	if rawPassword == "" {
		return nil, fmt.Errorf("%s: %w", op, models.NewValidationError("password", "must not be empty"))
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(firstName),
		IsActive:     true,
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.ID = id
	s.log.Info("user registered", slog.Int64("user_id", id))

	if err := s.publisher.Publish(ctx, rabbitmq.RoutingAccount, notification.Welcome(s.frontendURL, &user)); err != nil {
		s.log.Error("failed to publish welcome email", slog.Int64("user_id", id), sl.Err(err))
	}
	return &user, nil
}

// Login проверяет пароль, обновляет время последнего входа и выдаёт токен.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, *models.User, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrAccountInactive)
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	user.LastLogin = &now

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Email, access.RoleOf(user).String())
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user logged in", slog.Int64("user_id", user.ID))
	return token, user, nil
}

// Me возвращает учётную запись actor.
func (s *Service) Me(ctx context.Context, actor access.Actor) (*models.User, error) {
	const op = "auth.Me"
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}
	user, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Unblock снова активирует пользователя и сообщает ему об этом письмом.
// Доступно только администратору.
func (s *Service) Unblock(ctx context.Context, actor access.Actor, userID int64) (*models.User, error) {
	const op = "auth.Unblock"
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}
	return s.activate(ctx, op, userID)
}

// UnblockByEmail то же, что Unblock, для операторской утилиты.
func (s *Service) UnblockByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "auth.UnblockByEmail"
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.activate(ctx, op, user.ID)
}

func (s *Service) activate(ctx context.Context, op string, userID int64) (*models.User, error) {
	user, err := s.users.SetUserActive(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user unblocked", slog.Int64("user_id", user.ID))

	if err := s.publisher.Publish(ctx, rabbitmq.RoutingAccount, notification.AccountUnblocked(s.frontendURL, user.Email)); err != nil {
		s.log.Error("failed to publish unblock email", slog.Int64("user_id", user.ID), sl.Err(err))
	}
	return user, nil
}

// Promote выставляет пользователю роль. Используется из lmsctl.
func (s *Service) Promote(ctx context.Context, email string, role access.Role) (*models.User, error) {
	const op = "auth.Promote"
	user, err := s.users.SetUserRole(ctx, NormalizeEmail(email), role == access.RoleAdmin, role == access.RoleModerator)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user role changed", slog.Int64("user_id", user.ID), slog.String("role", role.String()))
	return user, nil
}
